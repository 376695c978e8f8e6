package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var errSidecar = errors.New("sidecar: 503")

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestRetry(t *testing.T) {
	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		var retried []int
		cfg := fastRetry(3)
		cfg.OnRetry = func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) }

		got, err := Retry(context.Background(), cfg, func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errSidecar
			}
			return 192, nil
		})
		if err != nil || got != 192 {
			t.Fatalf("Retry() = %d, %v", got, err)
		}
		if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
			t.Errorf("OnRetry attempts = %v", retried)
		}
	})

	t.Run("returns last error when attempts run out", func(t *testing.T) {
		calls := 0
		_, err := Retry(context.Background(), fastRetry(2), func() (int, error) {
			calls++
			return 0, errSidecar
		})
		if !errors.Is(err, errSidecar) || calls != 2 {
			t.Errorf("err = %v after %d calls", err, calls)
		}
	})

	t.Run("RetryIf stops early", func(t *testing.T) {
		calls := 0
		cfg := fastRetry(5)
		cfg.RetryIf = func(error) bool { return false }
		_, err := Retry(context.Background(), cfg, func() (int, error) {
			calls++
			return 0, errSidecar
		})
		if calls != 1 || err == nil {
			t.Errorf("calls = %d, err = %v", calls, err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Retry(ctx, fastRetry(3), func() (int, error) { return 1, nil })
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestDefaultRetryIf(t *testing.T) {
	if DefaultRetryIf(context.Canceled) || DefaultRetryIf(context.DeadlineExceeded) {
		t.Error("context errors must not be retried")
	}
	if !DefaultRetryIf(errSidecar) {
		t.Error("transport errors should be retried")
	}
}

func TestBackoffIsCapped(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: time.Second, MaxBackoff: 3 * time.Second, BackoffFactor: 2}.withDefaults()
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}
	for i, w := range want {
		if got := cfg.backoff(i + 1); got != w {
			t.Errorf("backoff(%d) = %s, want %s", i+1, got, w)
		}
	}
}

func TestCircuitBreaker(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "sidecar",
		MaxFailures: 2,
		Timeout:     20 * time.Millisecond,
		OnStateChange: func(_ string, from, to State) {
			transitions = append(transitions, from.String()+">"+to.String())
		},
	})
	fail := func() error { return errSidecar }

	_ = cb.Execute(fail)
	if cb.State() != StateClosed {
		t.Fatalf("state after one failure = %s", cb.State())
	}
	_ = cb.Execute(fail)
	if cb.State() != StateOpen {
		t.Fatalf("state after two failures = %s", cb.State())
	}

	called := false
	if err := cb.Execute(func() error { called = true; return nil }); !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("open breaker: err = %v, called = %v", err, called)
	}

	time.Sleep(30 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("state after timeout = %s", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("trial call: %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("state after trial call = %s", cb.State())
	}

	want := []string{"closed>open", "open>half-open", "half-open>closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v", transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transitions = %v, want %v", transitions, want)
		}
	}
}

func TestCircuitBreakerFailedTrialReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: 10 * time.Millisecond})
	_ = cb.Execute(func() error { return errSidecar })
	time.Sleep(15 * time.Millisecond)
	_ = cb.Execute(func() error { return errSidecar })
	if cb.State() != StateOpen {
		t.Errorf("state = %s, want open", cb.State())
	}
}

func TestBulkhead(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{Name: "sidecar", MaxConcurrent: 2})

	var inFlight, peak atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Execute(context.Background(), func() error {
				n := inFlight.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				<-release
				inFlight.Add(-1)
				return nil
			})
		}()
	}
	for b.Available() != 0 {
		time.Sleep(time.Millisecond)
	}

	if err := b.Execute(context.Background(), func() error { return nil }); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("third call: %v, want ErrBulkheadFull", err)
	}
	close(release)
	wg.Wait()

	if peak.Load() != 2 || b.Available() != 2 {
		t.Errorf("peak = %d, available = %d", peak.Load(), b.Available())
	}
}

func TestBulkheadWaitTimeout(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 10 * time.Millisecond})
	hold := make(chan struct{})
	go func() { _ = b.Execute(context.Background(), func() error { <-hold; return nil }) }()
	for b.Available() != 0 {
		time.Sleep(time.Millisecond)
	}
	defer close(hold)

	_, err := ExecuteWithResult(context.Background(), b, func() (int, error) { return 1, nil })
	if !errors.Is(err, ErrBulkheadTimeout) {
		t.Errorf("err = %v, want ErrBulkheadTimeout", err)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Name: "sidecar", Rate: 50, Burst: 2})
	if !rl.Allow() || !rl.Allow() {
		t.Fatal("burst of 2 should be allowed")
	}
	if err := rl.Execute(func() error { return nil }); !errors.Is(err, ErrRateLimited) {
		t.Errorf("Execute() = %v, want ErrRateLimited", err)
	}

	start := time.Now()
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if d := time.Since(start); d < 10*time.Millisecond {
		t.Errorf("Wait returned after %s, expected to block for a refill", d)
	}
}

func TestRateLimiterWaitCanceled(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.01, Burst: 1})
	rl.Allow()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() = %v", err)
	}
}
