package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kbukum/speakerid/logger"
)

// Manager loads providers from a Registry, keeps them for the life of the
// process, and hands out the one its Selector picks.
type Manager[T Provider] struct {
	registry *Registry[T]
	selector Selector[T]
	log      *logger.Logger

	mu      sync.RWMutex
	loaded  map[string]T
	unwraps map[string]T
}

func NewManager[T Provider](registry *Registry[T], selector Selector[T]) *Manager[T] {
	return &Manager[T]{
		registry: registry,
		selector: selector,
		log:      logger.Get("provider"),
		loaded:   make(map[string]T),
		unwraps:  make(map[string]T),
	}
}

// Register adds a factory to the underlying registry.
func (m *Manager[T]) Register(name string, f Factory[T]) {
	m.registry.RegisterFactory(name, f)
	m.log.Debug("factory registered", logger.Fields("provider", name))
}

// Load creates the provider registered under name, runs its Init hook, and
// stores it behind wrap. wrap may be nil. CloseAll reaches the unwrapped
// instance, so middleware need not forward Close.
func (m *Manager[T]) Load(ctx context.Context, name string, opts map[string]any, wrap func(T) T) error {
	p, err := m.registry.Create(name, opts)
	if err != nil {
		return fmt.Errorf("load provider %q: %w", name, err)
	}
	if ini, ok := any(p).(Initializable); ok {
		if err := ini.Init(ctx); err != nil {
			return fmt.Errorf("init provider %q: %w", name, err)
		}
	}
	served := p
	if wrap != nil {
		served = wrap(p)
	}

	m.mu.Lock()
	m.unwraps[name] = p
	m.loaded[name] = served
	m.mu.Unlock()
	m.log.Info("provider loaded", logger.Fields("provider", name))
	return nil
}

// Get returns the provider chosen by the selector among the loaded ones.
func (m *Manager[T]) Get(ctx context.Context) (T, error) {
	m.mu.RLock()
	loaded := make(map[string]T, len(m.loaded))
	for k, v := range m.loaded {
		loaded[k] = v
	}
	m.mu.RUnlock()
	return m.selector.Select(ctx, loaded)
}

// CloseAll closes every loaded Closeable provider and forgets all of them.
func (m *Manager[T]) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	unwraps := m.unwraps
	m.unwraps = make(map[string]T)
	m.loaded = make(map[string]T)
	m.mu.Unlock()

	var errs []error
	for name, p := range unwraps {
		if c, ok := any(p).(Closeable); ok {
			if err := c.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("close provider %q: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}
