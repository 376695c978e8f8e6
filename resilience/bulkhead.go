package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

var (
	ErrBulkheadFull    = errors.New("bulkhead is full")
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

type BulkheadConfig struct {
	Name          string
	MaxConcurrent int
	// MaxWait is how long a call may queue for a slot. Zero rejects at once.
	MaxWait time.Duration
}

// Bulkhead caps the calls in flight to one backend so a slow sidecar
// cannot absorb every worker.
type Bulkhead struct {
	cfg      BulkheadConfig
	sem      *semaphore.Weighted
	inFlight atomic.Int64
}

// NewBulkhead allows 10 concurrent calls unless configured otherwise.
func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	return &Bulkhead{cfg: cfg, sem: semaphore.NewWeighted(int64(cfg.MaxConcurrent))}
}

// Execute runs fn once a slot is free. It fails with ErrBulkheadFull or
// ErrBulkheadTimeout when none frees up in time, and with ctx's error if
// ctx ends first.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	b.inFlight.Add(1)
	defer func() {
		b.inFlight.Add(-1)
		b.sem.Release(1)
	}()
	return fn()
}

// ExecuteWithResult is Execute for calls returning a value.
func ExecuteWithResult[T any](ctx context.Context, b *Bulkhead, fn func() (T, error)) (T, error) {
	var out T
	err := b.Execute(ctx, func() (err error) {
		out, err = fn()
		return err
	})
	return out, err
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	if b.sem.TryAcquire(1) {
		return nil
	}
	if b.cfg.MaxWait <= 0 {
		return ErrBulkheadFull
	}
	waitCtx, cancel := context.WithTimeout(ctx, b.cfg.MaxWait)
	defer cancel()
	if err := b.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrBulkheadTimeout
	}
	return nil
}

// Available is the number of free slots.
func (b *Bulkhead) Available() int { return b.cfg.MaxConcurrent - int(b.inFlight.Load()) }

func (b *Bulkhead) MaxConcurrent() int { return b.cfg.MaxConcurrent }
