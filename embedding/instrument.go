package embedding

import (
	"context"
	"time"

	"github.com/kbukum/speakerid/audio"
	"github.com/kbukum/speakerid/observability"
	"github.com/kbukum/speakerid/provider"
)

// Instrument returns middleware recording every extraction on the
// embedding.duration histogram, labeled by backend name.
func Instrument(m *observability.AttributionMetrics) provider.Middleware[audio.Clip, Vector] {
	return func(inner provider.RequestResponse[audio.Clip, Vector]) provider.RequestResponse[audio.Clip, Vector] {
		return &instrumented{inner: inner, metrics: m}
	}
}

type instrumented struct {
	inner   provider.RequestResponse[audio.Clip, Vector]
	metrics *observability.AttributionMetrics
}

func (i *instrumented) Name() string                         { return i.inner.Name() }
func (i *instrumented) IsAvailable(ctx context.Context) bool { return i.inner.IsAvailable(ctx) }

func (i *instrumented) Execute(ctx context.Context, clip audio.Clip) (Vector, error) {
	start := time.Now()
	v, err := i.inner.Execute(ctx, clip)
	i.metrics.RecordEmbedding(ctx, i.inner.Name(), time.Since(start))
	return v, err
}
