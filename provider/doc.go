// Package provider holds swappable backends behind one generic contract,
// used for speaker embedding extractors and for external tools such as
// ffmpeg.
//
// A backend implements RequestResponse[I, O]. Backends that load a model or
// open a session implement Initializable and Closeable; the Manager calls
// them from Load and CloseAll.
//
// Middleware wraps a backend. Compose with Chain, outermost first:
//
//	served := provider.Chain(
//	    provider.WithTracing[In, Out]("embedding"),
//	    provider.WithLogging[In, Out](log),
//	)(provider.WithResilience(raw, rc))
//
// A Manager with a PrioritySelector serves the first available backend, so
// a primary model falls back to a secondary one while it is down:
//
//	mgr := provider.NewManager(reg, &provider.PrioritySelector[Extractor]{Priority: []string{"sidecar", "spectral"}})
//	mgr.Register("spectral", spectral.Factory())
//	if err := mgr.Load(ctx, "spectral", opts, nil); err != nil { ... }
//	ex, err := mgr.Get(ctx)
package provider
