package provider

import (
	"context"

	"github.com/kbukum/speakerid/observability"
)

// WithTracing wraps each Execute in a span named "<scope>.<provider>".
func WithTracing[I, O any](scope string) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &traced[I, O]{RequestResponse: inner, span: scope + "." + inner.Name()}
	}
}

type traced[I, O any] struct {
	RequestResponse[I, O]
	span string
}

func (t *traced[I, O]) Execute(ctx context.Context, in I) (O, error) {
	ctx, span := observability.StartSpan(ctx, t.span, observability.AttrProvider.String(t.Name()))
	defer span.End()
	out, err := t.RequestResponse.Execute(ctx, in)
	observability.FailSpan(ctx, err)
	return out, err
}
