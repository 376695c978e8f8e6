package provider

import "context"

// Provider is a named backend that can report whether it is ready.
type Provider interface {
	Name() string
	IsAvailable(ctx context.Context) bool
}

// Factory creates a provider from its option map, as decoded from config.
type Factory[T Provider] func(opts map[string]any) (T, error)
