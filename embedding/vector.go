package embedding

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// epsilon keeps norms away from zero.
const epsilon = 1e-9

// Vector is a fixed-length voiceprint.
type Vector []float64

// Clone returns a copy of v.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Normalize returns v scaled to unit L2 norm.
func Normalize(v Vector) Vector {
	out := v.Clone()
	if len(out) == 0 {
		return out
	}
	floats.Scale(1/(floats.Norm(out, 2)+epsilon), out)
	return out
}

// Cosine returns the cosine similarity of a and b in [-1, 1]. Vectors of
// different or zero length score 0.
func Cosine(a, b Vector) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na := floats.Norm(a, 2) + epsilon
	nb := floats.Norm(b, 2) + epsilon
	s := floats.Dot(a, b) / (na * nb)
	switch {
	case s > 1:
		return 1
	case s < -1:
		return -1
	}
	return s
}

// Mean returns the element-wise arithmetic mean of vs.
func Mean(vs ...Vector) (Vector, error) {
	if len(vs) == 0 {
		return nil, fmt.Errorf("mean of zero vectors")
	}
	dim := len(vs[0])
	if dim == 0 {
		return nil, fmt.Errorf("mean of empty vectors")
	}
	out := make(Vector, dim)
	for i, v := range vs {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
		floats.Add(out, v)
	}
	floats.Scale(1/float64(len(vs)), out)
	return out, nil
}
