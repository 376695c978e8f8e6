package provider

import "context"

// RequestResponse is a provider that turns one input into one output:
// an embedding model, a sidecar HTTP call, or a subprocess run.
type RequestResponse[I, O any] interface {
	Provider
	Execute(ctx context.Context, input I) (O, error)
}
