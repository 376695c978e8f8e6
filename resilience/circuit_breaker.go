package resilience

import (
	"errors"
	"sync"
	"time"
)

// State is a circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var stateNames = [...]string{StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// ErrCircuitOpen is returned without calling through while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	Name string
	// MaxFailures consecutive failures open the circuit.
	MaxFailures int
	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration
	// HalfOpenMaxCalls trial calls must succeed to close the circuit again.
	HalfOpenMaxCalls int
	OnStateChange    func(name string, from, to State)
}

// DefaultCircuitBreakerConfig opens after 5 failures for 30s.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{Name: name, MaxFailures: 5, Timeout: 30 * time.Second, HalfOpenMaxCalls: 1}
}

// counts resets on every state change.
type counts struct {
	inFlight  int // trial calls admitted while half-open
	successes int
	failures  int // consecutive
}

// CircuitBreaker stops calling a backend that keeps failing, so a dead
// sidecar costs one fast error per segment instead of one timeout.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu     sync.Mutex
	state  State
	counts counts
	// expiry is when an open circuit starts admitting trial calls.
	expiry time.Time
}

// NewCircuitBreaker creates a closed circuit breaker. Zero fields take
// the defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig(cfg.Name)
	cfg.MaxFailures = positive(cfg.MaxFailures, def.MaxFailures)
	cfg.HalfOpenMaxCalls = positive(cfg.HalfOpenMaxCalls, def.HalfOpenMaxCalls)
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &CircuitBreaker{cfg: cfg}
}

// Execute runs fn unless the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.before(); err != nil {
		return err
	}
	err := fn()
	cb.after(err == nil)
	return err
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.advance(time.Now())
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.advance(time.Now()) {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.counts.inFlight >= cb.cfg.HalfOpenMaxCalls {
			return ErrCircuitOpen
		}
		cb.counts.inFlight++
	}
	return nil
}

func (cb *CircuitBreaker) after(ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	now := time.Now()
	state := cb.advance(now)
	c := &cb.counts
	switch {
	case ok && state == StateHalfOpen:
		if c.successes++; c.successes >= cb.cfg.HalfOpenMaxCalls {
			cb.set(StateClosed, now)
		}
	case ok:
		c.failures = 0
	case state == StateHalfOpen:
		cb.set(StateOpen, now)
	default:
		if c.failures++; c.failures >= cb.cfg.MaxFailures {
			cb.set(StateOpen, now)
		}
	}
}

// advance moves an open circuit to half-open once its expiry passed.
func (cb *CircuitBreaker) advance(now time.Time) State {
	if cb.state == StateOpen && !now.Before(cb.expiry) {
		cb.set(StateHalfOpen, now)
	}
	return cb.state
}

func (cb *CircuitBreaker) set(state State, now time.Time) {
	if cb.state == state {
		return
	}
	from := cb.state
	cb.state = state
	cb.counts = counts{}
	if state == StateOpen {
		cb.expiry = now.Add(cb.cfg.Timeout)
	}
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, from, state)
	}
}

func positive(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
