package observability

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumFor(t *testing.T, m metricdata.Metrics, outcome string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected int64 sum, got %T", m.Name, m.Data)
	}
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key("outcome")); ok && v.AsString() == outcome {
			return dp.Value
		}
	}
	return 0
}

func TestAttributionMetricsRecords(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	m, err := NewAttributionMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	m.RecordSegment(ctx, OutcomeAccepted)
	m.RecordSegment(ctx, OutcomeAccepted)
	m.RecordSegment(ctx, OutcomeUnknown)
	m.RecordClip(ctx, ClipTooShort)
	m.RecordEmbedding(ctx, "spectral", 20*time.Millisecond)

	got := collect(t, reader)
	if v := sumFor(t, got["segments.total"], OutcomeAccepted); v != 2 {
		t.Errorf("accepted = %d, want 2", v)
	}
	if v := sumFor(t, got["segments.total"], OutcomeUnknown); v != 1 {
		t.Errorf("unknown = %d, want 1", v)
	}
	if v := sumFor(t, got["enrollment.clips"], ClipTooShort); v != 1 {
		t.Errorf("too_short = %d, want 1", v)
	}
	hist, ok := got["embedding.duration"].Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Errorf("expected one embedding.duration observation, got %+v", got["embedding.duration"].Data)
	}
}

func TestAttributionMetricsNilReceiver(t *testing.T) {
	var m *AttributionMetrics
	ctx := context.Background()
	m.RecordSegment(ctx, OutcomeFailed)
	m.RecordClip(ctx, ClipFailed)
	m.RecordEmbedding(ctx, "sidecar", time.Second)
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" || cfg.SampleRate != 1.0 || cfg.Interval != 15*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled config should validate: %v", err)
	}

	cfg.Enabled = true
	cfg.SampleRate = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected sample_rate error")
	}

	tc := cfg.TracerConfig("speakerid", "0.1.0", "test")
	if tc.ServiceName != "speakerid" || tc.Endpoint != cfg.Endpoint {
		t.Errorf("unexpected tracer config: %+v", tc)
	}
	mc := cfg.MeterConfig("speakerid", "0.1.0", "test")
	if mc.Interval != cfg.Interval {
		t.Errorf("unexpected meter config: %+v", mc)
	}
}

func TestComponentDisabledIsNoop(t *testing.T) {
	c := NewComponent(Config{}, "speakerid", "0.1.0", "test")
	ctx := context.Background()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if h := c.Health(ctx); h.Message != "disabled" {
		t.Errorf("expected disabled health message, got %q", h.Message)
	}
	if d := c.Describe(); d.Details != "disabled" {
		t.Errorf("expected disabled description, got %q", d.Details)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
