// Package embedding defines speaker-embedding extractors and the vector math
// used to compare voiceprints.
//
// Backends implement Extractor, a provider.RequestResponse from a normalized
// audio.Clip to a Vector, and are managed by a Service: a lifecycle component
// that loads the configured backend once, falls back to a secondary backend
// when the primary is unavailable, and enforces the mono/sample-rate
// precondition before every extraction.
//
//	svc := embedding.NewService(cfg)
//	svc.Register(spectral.ProviderName, spectral.Factory())
//	svc.Register(sidecar.ProviderName, sidecar.Factory())
//	if err := svc.Start(ctx); err != nil { ... }
//	v, err := svc.Embed(ctx, clip)
package embedding
