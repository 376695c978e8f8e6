package provider

import (
	"context"
	"errors"

	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/resilience"
)

// WithResilience wraps p with the policies in cfg. Calls pass through the
// rate limiter, then the bulkhead, then the circuit breaker, and finally the
// retry loop around p.Execute. An empty config returns p unchanged.
//
// An open breaker surfaces as MODEL_UNAVAILABLE so callers abort the run
// instead of failing every remaining segment one by one.
func WithResilience[I, O any](p RequestResponse[I, O], cfg ResilienceConfig) RequestResponse[I, O] {
	if cfg.IsEmpty() {
		return p
	}
	return &resilientRR[I, O]{inner: p, pol: buildPolicies(cfg)}
}

type resilientRR[I, O any] struct {
	inner RequestResponse[I, O]
	pol   *policies
}

func (r *resilientRR[I, O]) Name() string                         { return r.inner.Name() }
func (r *resilientRR[I, O]) IsAvailable(ctx context.Context) bool { return r.inner.IsAvailable(ctx) }

func (r *resilientRR[I, O]) Execute(ctx context.Context, in I) (O, error) {
	return execute(ctx, r.pol, func() (O, error) { return r.inner.Execute(ctx, in) })
}

func execute[T any](ctx context.Context, p *policies, fn func() (T, error)) (T, error) {
	var zero T
	if p.rl != nil {
		if err := p.rl.Wait(ctx); err != nil {
			return zero, p.wrap(err)
		}
	}

	call := fn
	if p.retry != nil {
		cfg := *p.retry
		call = func() (T, error) { return resilience.Retry(ctx, cfg, fn) }
	}

	if p.cb != nil {
		inner := call
		call = func() (T, error) {
			var out T
			var callErr error
			err := p.cb.Execute(func() error {
				out, callErr = inner()
				return callErr
			})
			if err != nil && callErr == nil {
				return zero, p.wrap(err)
			}
			return out, callErr
		}
	}

	if p.bh == nil {
		return call()
	}
	out, err := resilience.ExecuteWithResult(ctx, p.bh, call)
	if err != nil {
		return zero, p.wrap(err)
	}
	return out, nil
}

// wrap turns policy sentinels into AppErrors. Errors from the provider
// itself pass through untouched.
func (p *policies) wrap(err error) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return apperrors.ModelUnavailable(p.name, err)
	case errors.Is(err, resilience.ErrRateLimited):
		return apperrors.RateLimited().WithCause(err)
	case errors.Is(err, resilience.ErrBulkheadFull), errors.Is(err, resilience.ErrBulkheadTimeout):
		return apperrors.ServiceUnavailable(p.name).WithCause(err).WithDetail("reason", "concurrency limit reached")
	case errors.Is(err, context.Canceled):
		return apperrors.Timeout("request canceled").WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Timeout("deadline exceeded").WithCause(err)
	}
	return err
}
