package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/speakerid/logger"
)

// StopTimeout bounds each component's Stop call.
const StopTimeout = 10 * time.Second

type entry struct {
	c       Component
	started bool
}

// Registry starts components in registration order and stops the started
// ones in reverse, so a component may rely on anything registered before it.
type Registry struct {
	mu      sync.RWMutex
	entries []*entry
	byName  map[string]*entry
}

// lg resolves the logger per call so it follows logger.Init, which runs
// after the registry is created.
func lg() *logger.Logger { return logger.Get("components") }

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*entry)}
}

// Register appends c. Names must be unique.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := c.Name()
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("component %s already registered", name)
	}
	e := &entry{c: c}
	r.entries = append(r.entries, e)
	r.byName[name] = e
	lg().Debug("component registered", logger.Fields("component", name))
	return nil
}

// StartAll starts every component in order and stops at the first failure.
// Components started before the failure stay started for StopAll.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		name := e.c.Name()
		start := time.Now()
		if err := e.c.Start(ctx); err != nil {
			lg().Error("component start failed", logger.Fields("component", name, logger.FieldError, err.Error()))
			return fmt.Errorf("start %s: %w", name, err)
		}
		e.started = true
		lg().Debug("component started", logger.Fields("component", name, "took", time.Since(start).String()))
	}
	lg().Info("components started", logger.Fields("count", len(r.entries)))
	return nil
}

// StopAll stops started components in reverse order, giving each up to
// StopTimeout. Every component is attempted; errors are joined.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if !e.started {
			continue
		}
		name := e.c.Name()
		stopCtx, cancel := context.WithTimeout(ctx, StopTimeout)
		err := e.c.Stop(stopCtx)
		cancel()
		e.started = false
		if err != nil {
			lg().Error("component stop failed", logger.Fields("component", name, logger.FieldError, err.Error()))
			errs = append(errs, fmt.Errorf("stop %s: %w", name, err))
			continue
		}
		lg().Debug("component stopped", logger.Fields("component", name))
	}
	return errors.Join(errs...)
}

// HealthAll collects the health of every registered component in order.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Health, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.c.Health(ctx))
	}
	return out
}

// Get returns the component registered under name, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.byName[name]; ok {
		return e.c
	}
	return nil
}

// All returns the registered components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Component, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.c
	}
	return out
}
