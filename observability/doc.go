// Package observability provides OpenTelemetry tracing and metrics for
// attribution runs.
//
// Telemetry is opt-in. Register the Component and it installs OTLP/HTTP
// tracer and meter providers when enabled:
//
//	app.RegisterComponent(observability.NewComponent(cfg.Observability, name, version, env))
//
// Spans:
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanAttributionRun)
//	defer span.End()
//
// Metrics:
//
//	m, err := observability.NewAttributionMetrics(observability.Meter("speakerid"))
//	m.RecordSegment(ctx, observability.OutcomeAccepted)
package observability
