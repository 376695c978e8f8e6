package provider

import (
	"github.com/kbukum/speakerid/resilience"
)

// ResilienceConfig selects the policies wrapped around a provider. Nil
// policies are skipped; an empty config leaves the provider unwrapped.
type ResilienceConfig struct {
	// Name identifies the backend in errors raised by the policies.
	Name string

	CircuitBreaker *resilience.CircuitBreakerConfig
	Retry          *resilience.RetryConfig
	RateLimiter    *resilience.RateLimiterConfig
	Bulkhead       *resilience.BulkheadConfig
}

// IsEmpty reports whether no policy is set.
func (c ResilienceConfig) IsEmpty() bool {
	return c.CircuitBreaker == nil && c.Retry == nil && c.RateLimiter == nil && c.Bulkhead == nil
}

// policies holds the live primitives built from a ResilienceConfig. The
// breaker, limiter, and bulkhead are shared by every call through one wrapper.
type policies struct {
	name  string
	cb    *resilience.CircuitBreaker
	rl    *resilience.RateLimiter
	bh    *resilience.Bulkhead
	retry *resilience.RetryConfig
}

func buildPolicies(cfg ResilienceConfig) *policies {
	p := &policies{name: cfg.Name, retry: cfg.Retry}
	if p.name == "" {
		p.name = "provider"
	}
	if cfg.CircuitBreaker != nil {
		p.cb = resilience.NewCircuitBreaker(*cfg.CircuitBreaker)
	}
	if cfg.RateLimiter != nil {
		p.rl = resilience.NewRateLimiter(*cfg.RateLimiter)
	}
	if cfg.Bulkhead != nil {
		p.bh = resilience.NewBulkhead(*cfg.Bulkhead)
	}
	return p
}
