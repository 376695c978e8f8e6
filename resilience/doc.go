// Package resilience holds the fault-tolerance primitives wrapped around
// out-of-process embedding backends such as the model sidecar.
//
// The provider package composes them through provider.ResilienceConfig.
// Backends opt in through their option maps:
//
//	sidecar:
//	  retries: 2
//	  breaker_failures: 5
//	  max_concurrent: 4
//
// RateLimiter is also reused per client by the HTTP rate-limit middleware.
package resilience
