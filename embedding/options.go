package embedding

import (
	"time"

	"github.com/spf13/cast"

	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/logger"
	"github.com/kbukum/speakerid/provider"
	"github.com/kbukum/speakerid/resilience"
)

// Option helpers read factory options decoded by viper, where numbers and
// durations may arrive as strings, ints, or floats.

// OptString returns opts[key] as a string, or def.
func OptString(opts map[string]any, key, def string) string {
	if v, ok := opts[key]; ok {
		if s, err := cast.ToStringE(v); err == nil && s != "" {
			return s
		}
	}
	return def
}

// OptInt returns opts[key] as an int, or def.
func OptInt(opts map[string]any, key string, def int) int {
	if v, ok := opts[key]; ok {
		if n, err := cast.ToIntE(v); err == nil {
			return n
		}
	}
	return def
}

// OptFloat returns opts[key] as a float64, or def.
func OptFloat(opts map[string]any, key string, def float64) float64 {
	if v, ok := opts[key]; ok {
		if f, err := cast.ToFloat64E(v); err == nil {
			return f
		}
	}
	return def
}

// OptDuration returns opts[key] as a duration ("30s", 30s, or seconds), or def.
func OptDuration(opts map[string]any, key string, def time.Duration) time.Duration {
	v, ok := opts[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return time.Duration(n) * time.Second
	case float64:
		return time.Duration(n * float64(time.Second))
	}
	if d, err := cast.ToDurationE(v); err == nil && d > 0 {
		return d
	}
	return def
}

// ResilienceFor builds the resilience policies requested in a backend's
// options: "retries", "breaker_failures", "max_concurrent", "rate_limit".
// Backends without these keys run unwrapped.
func ResilienceFor(name string, opts map[string]any) provider.ResilienceConfig {
	rc := provider.ResilienceConfig{Name: name}
	if n := OptInt(opts, "retries", 0); n > 0 {
		cfg := resilience.DefaultRetryConfig()
		cfg.MaxAttempts = n + 1
		cfg.InitialBackoff = OptDuration(opts, "retry_backoff", cfg.InitialBackoff)
		cfg.RetryIf = retryable
		cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
			logger.Get("embedding").Debug("retrying backend", logger.Fields(
				"backend", name, "attempt", attempt, "backoff", wait.String(), logger.FieldError, err.Error()))
		}
		rc.Retry = &cfg
	}
	if n := OptInt(opts, "breaker_failures", 0); n > 0 {
		cfg := resilience.DefaultCircuitBreakerConfig(name)
		cfg.MaxFailures = n
		cfg.OnStateChange = func(backend string, from, to resilience.State) {
			logger.Get("embedding").Warn("backend circuit changed", logger.Fields(
				"backend", backend, "from", from.String(), "to", to.String()))
		}
		rc.CircuitBreaker = &cfg
	}
	if n := OptInt(opts, "max_concurrent", 0); n > 0 {
		rc.Bulkhead = &resilience.BulkheadConfig{
			Name:          name,
			MaxConcurrent: n,
			MaxWait:       OptDuration(opts, "max_wait", 30*time.Second),
		}
	}
	if r := OptFloat(opts, "rate_limit", 0); r > 0 {
		rc.RateLimiter = &resilience.RateLimiterConfig{
			Name:  name,
			Rate:  r,
			Burst: OptInt(opts, "burst", int(r)+1),
		}
	}
	return rc
}

// retryable retries transport failures and retryable AppErrors, never
// client-side rejections such as EMPTY_AUDIO.
func retryable(err error) bool {
	if !resilience.DefaultRetryIf(err) {
		return false
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Retryable
	}
	return true
}
