package provider_test

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/kbukum/speakerid/provider"
)

var errTransient = errors.New("model warming up")

// embedder maps a clip name to a vector whose length is the name length.
type embedder struct {
	name      string
	available bool
	calls     atomic.Int32
	failUntil int32
	inited    bool
	closed    bool
}

func newEmbedder(name string) *embedder { return &embedder{name: name, available: true} }

func (e *embedder) Name() string                       { return e.name }
func (e *embedder) IsAvailable(_ context.Context) bool { return e.available && !e.closed }

func (e *embedder) Execute(_ context.Context, clip string) ([]float32, error) {
	if n := e.calls.Add(1); n <= e.failUntil {
		return nil, errTransient
	}
	return make([]float32, len(clip)), nil
}

func (e *embedder) Init(_ context.Context) error {
	e.inited = true
	return nil
}

func (e *embedder) Close(_ context.Context) error {
	e.closed = true
	return nil
}

var (
	_ provider.RequestResponse[string, []float32] = (*embedder)(nil)
	_ provider.Initializable                      = (*embedder)(nil)
	_ provider.Closeable                          = (*embedder)(nil)
)

type extractor = provider.RequestResponse[string, []float32]

func factoryFor(e *embedder) provider.Factory[extractor] {
	return func(_ map[string]any) (extractor, error) { return e, nil }
}
