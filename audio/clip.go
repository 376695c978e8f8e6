package audio

import (
	"math"

	apperrors "github.com/kbukum/speakerid/errors"
)

// DefaultSampleRate is the rate speaker-embedding models expect.
const DefaultSampleRate = 16000

// Clip is interleaved PCM audio with samples in [-1, 1].
type Clip struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames (samples per channel).
func (c Clip) Frames() int {
	ch := c.channels()
	return len(c.Samples) / ch
}

// Duration returns the clip length in seconds.
func (c Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(c.Frames()) / float64(c.SampleRate)
}

// Empty reports whether the clip has no usable frames.
func (c Clip) Empty() bool {
	return c.SampleRate <= 0 || c.Frames() == 0
}

// Mono downmixes to a single channel by averaging channels. The result never
// shares memory with c.
func (c Clip) Mono() Clip {
	ch := c.channels()
	frames := c.Frames()
	out := make([]float32, frames)
	if ch == 1 {
		copy(out, c.Samples)
		return Clip{Samples: out, SampleRate: c.SampleRate, Channels: 1}
	}
	for i := 0; i < frames; i++ {
		var sum float32
		for j := 0; j < ch; j++ {
			sum += c.Samples[i*ch+j]
		}
		out[i] = sum / float32(ch)
	}
	return Clip{Samples: out, SampleRate: c.SampleRate, Channels: 1}
}

// Resample converts the clip to rate using linear interpolation. The result
// is mono and never shares memory with c.
func (c Clip) Resample(rate int) Clip {
	m := c.Mono()
	if rate <= 0 || m.SampleRate <= 0 || m.SampleRate == rate {
		return m
	}
	if len(m.Samples) == 0 {
		m.SampleRate = rate
		return m
	}

	n := len(m.Samples)
	outLen := int(math.Round(float64(n) * float64(rate) / float64(m.SampleRate)))
	out := make([]float32, outLen)
	step := float64(m.SampleRate) / float64(rate)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= n-1 {
			out[i] = m.Samples[n-1]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = m.Samples[j]*(1-frac) + m.Samples[j+1]*frac
	}
	return Clip{Samples: out, SampleRate: rate, Channels: 1}
}

// Normalize returns c as mono audio at rate.
func (c Clip) Normalize(rate int) Clip {
	return c.Resample(rate)
}

// Slice returns the mono sub-clip between start and end seconds, clamped to
// the clip bounds. The result never shares memory with c.
func (c Clip) Slice(start, end float64) Clip {
	m := c.Mono()
	if m.SampleRate <= 0 {
		return Clip{SampleRate: c.SampleRate, Channels: 1}
	}
	from := clampFrame(start, m.SampleRate, len(m.Samples))
	to := clampFrame(end, m.SampleRate, len(m.Samples))
	if to < from {
		to = from
	}
	out := make([]float32, to-from)
	copy(out, m.Samples[from:to])
	return Clip{Samples: out, SampleRate: m.SampleRate, Channels: 1}
}

// Require returns an EMPTY_AUDIO error naming what when the clip is empty.
func (c Clip) Require(what string) error {
	if c.Empty() {
		return apperrors.EmptyAudio(what)
	}
	return nil
}

func (c Clip) channels() int {
	if c.Channels <= 0 {
		return 1
	}
	return c.Channels
}

func clampFrame(sec float64, rate, n int) int {
	f := int(math.Round(sec * float64(rate)))
	if f < 0 {
		return 0
	}
	if f > n {
		return n
	}
	return f
}
