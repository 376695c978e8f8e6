package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned by Execute when the limiter has no capacity.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiterConfig configures a rate limiter.
type RateLimiterConfig struct {
	Name string
	// Rate is calls per second.
	Rate float64
	// Burst calls may run back to back after an idle period.
	Burst int
}

// RateLimiter admits Rate calls per second with bursts of up to Burst.
// It tracks a theoretical arrival time instead of a token count: a call
// is admitted when that time is no more than Burst-1 intervals ahead.
type RateLimiter struct {
	interval time.Duration
	slack    time.Duration

	mu  sync.Mutex
	tat time.Time
}

// NewRateLimiter returns an idle limiter. Rate defaults to 10/s and Burst
// to the rate.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = max(1, int(cfg.Rate))
	}
	interval := time.Duration(float64(time.Second) / cfg.Rate)
	return &RateLimiter{interval: interval, slack: time.Duration(cfg.Burst-1) * interval}
}

// Allow admits one call if there is capacity right now.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := time.Now()
	tat := later(rl.tat, now)
	if tat.Sub(now) > rl.slack {
		return false
	}
	rl.tat = tat.Add(rl.interval)
	return true
}

// Wait blocks until the call is admitted or ctx is done. The slot is
// reserved up front, so concurrent waiters queue in arrival order.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	now := time.Now()
	tat := later(rl.tat, now)
	delay := tat.Sub(now) - rl.slack
	rl.tat = tat.Add(rl.interval)
	rl.mu.Unlock()
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		rl.mu.Lock()
		rl.tat = rl.tat.Add(-rl.interval)
		rl.mu.Unlock()
		return ctx.Err()
	}
}

// Execute runs fn if admitted, else returns ErrRateLimited.
func (rl *RateLimiter) Execute(fn func() error) error {
	if !rl.Allow() {
		return ErrRateLimited
	}
	return fn()
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
