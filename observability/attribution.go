package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Segment outcomes reported on segments.total.
const (
	OutcomeAccepted     = "accepted"
	OutcomeUnknown      = "unknown"
	OutcomeSkippedEmpty = "skipped_empty"
	OutcomeSkippedShort = "skipped_short"
	OutcomeFailed       = "failed"
)

// Enrollment clip outcomes reported on enrollment.clips.
const (
	ClipUsed     = "used"
	ClipTooShort = "too_short"
	ClipFiltered = "filtered"
	ClipFailed   = "failed"
)

// AttributionMetrics holds the instruments recorded by an attribution run.
type AttributionMetrics struct {
	segments          metric.Int64Counter
	clips             metric.Int64Counter
	embeddingDuration metric.Float64Histogram
}

// NewAttributionMetrics creates attribution instruments on the given meter.
func NewAttributionMetrics(meter metric.Meter) (*AttributionMetrics, error) {
	segments, err := meter.Int64Counter("segments.total",
		metric.WithDescription("Segments processed by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating segments.total counter: %w", err)
	}

	clips, err := meter.Int64Counter("enrollment.clips",
		metric.WithDescription("Enrollment clips by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating enrollment.clips counter: %w", err)
	}

	embeddingDuration, err := meter.Float64Histogram("embedding.duration",
		metric.WithDescription("Duration of a single embedding extraction in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embedding.duration histogram: %w", err)
	}

	return &AttributionMetrics{
		segments:          segments,
		clips:             clips,
		embeddingDuration: embeddingDuration,
	}, nil
}

// RecordSegment counts one segment with the given outcome.
// A nil receiver is a no-op.
func (m *AttributionMetrics) RecordSegment(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.segments.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordClip counts one enrollment clip with the given outcome.
func (m *AttributionMetrics) RecordClip(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.clips.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordEmbedding records the time spent on one extraction.
func (m *AttributionMetrics) RecordEmbedding(ctx context.Context, extractor string, d time.Duration) {
	if m == nil {
		return
	}
	m.embeddingDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("extractor", extractor)))
}
