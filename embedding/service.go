package embedding

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kbukum/speakerid/audio"
	"github.com/kbukum/speakerid/component"
	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/logger"
	"github.com/kbukum/speakerid/observability"
	"github.com/kbukum/speakerid/provider"
)

const componentName = "embedding"

var (
	_ component.Component   = (*Service)(nil)
	_ component.Describable = (*Service)(nil)
	_ Embedder              = (*Service)(nil)
)

// Service owns the loaded embedding backends for the life of the process.
// Backends are created from registered factories on Start, wrapped with
// instrumentation, logging, tracing, and their resilience policies, and
// closed on Stop.
type Service struct {
	cfg     Config
	manager *provider.Manager[Extractor]
	metrics *observability.AttributionMetrics
	log     *logger.Logger

	mu     sync.RWMutex
	loaded []string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMetrics records extraction durations on m.
func WithMetrics(m *observability.AttributionMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLogger overrides the component logger.
func WithLogger(l *logger.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

// NewService creates a Service. Factories must be registered before Start.
func NewService(cfg Config, opts ...ServiceOption) *Service {
	cfg.ApplyDefaults()
	s := &Service{
		cfg: cfg,
		log: logger.Get(componentName),
	}
	for _, o := range opts {
		o(s)
	}
	s.manager = provider.NewManager(NewRegistry(), &provider.PrioritySelector[Extractor]{Priority: cfg.Chain()})
	return s
}

// Register adds a backend factory under name.
func (s *Service) Register(name string, f provider.Factory[Extractor]) {
	s.manager.Register(name, f)
}

// SampleRate is the rate every clip is normalized to before extraction.
func (s *Service) SampleRate() int { return s.cfg.SampleRate }

// Workers is the configured extraction parallelism.
func (s *Service) Workers() int { return s.cfg.Workers }

func (s *Service) Name() string { return componentName }

// Start loads the configured backends in priority order. A failing primary
// is tolerated when a fallback loads; with no usable backend Start returns
// MODEL_UNAVAILABLE.
func (s *Service) Start(ctx context.Context) error {
	var lastErr error
	var loaded []string
	for _, name := range s.cfg.Chain() {
		err := s.manager.Load(ctx, name, s.cfg.Options(name), s.wrap(name))
		if err != nil {
			lastErr = err
			s.log.Warn("embedding backend failed to load", logger.Fields(
				"backend", name, logger.FieldError, err.Error()))
			continue
		}
		loaded = append(loaded, name)
	}
	if len(loaded) == 0 {
		return apperrors.ModelUnavailable(s.cfg.Provider, lastErr)
	}

	s.mu.Lock()
	s.loaded = loaded
	s.mu.Unlock()

	if _, err := s.manager.Get(ctx); err != nil {
		return apperrors.ModelUnavailable(s.cfg.Provider, err)
	}
	s.log.Info("embedding backends loaded", logger.Fields(
		"backends", strings.Join(loaded, ","), "sample_rate", s.cfg.SampleRate))
	return nil
}

// Stop releases every loaded backend.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.loaded = nil
	s.mu.Unlock()
	return s.manager.CloseAll(ctx)
}

// Health reports whether any backend can serve extractions.
func (s *Service) Health(ctx context.Context) component.Health {
	ex, err := s.manager.Get(ctx)
	if err != nil {
		return component.Health{Name: componentName, Status: component.StatusUnhealthy, Message: err.Error()}
	}
	if ex.Name() != s.cfg.Provider {
		return component.Health{
			Name:    componentName,
			Status:  component.StatusDegraded,
			Message: fmt.Sprintf("serving from fallback %s", ex.Name()),
		}
	}
	return component.Health{Name: componentName, Status: component.StatusHealthy}
}

func (s *Service) Describe() component.Description {
	details := fmt.Sprintf("%s rate=%d workers=%d", s.cfg.Provider, s.cfg.SampleRate, s.cfg.Workers)
	if s.cfg.Fallback != "" {
		details += " fallback=" + s.cfg.Fallback
	}
	return component.Description{Name: "Embedding", Type: "embedding", Details: details}
}

// Loaded returns the backends loaded by Start in priority order.
func (s *Service) Loaded() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.loaded...)
}

// Embed normalizes clip and extracts its voiceprint with the first
// available backend.
func (s *Service) Embed(ctx context.Context, clip audio.Clip) (Vector, error) {
	c, err := Prepare(clip, s.cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	ex, err := s.manager.Get(ctx)
	if err != nil {
		return nil, apperrors.ModelUnavailable(s.cfg.Provider, err)
	}
	return ex.Execute(ctx, c)
}

func (s *Service) wrap(name string) func(Extractor) Extractor {
	rc := ResilienceFor(name, s.cfg.Options(name))
	return func(ex Extractor) Extractor {
		return provider.Chain(
			Instrument(s.metrics),
			provider.WithTracing[audio.Clip, Vector](componentName),
			provider.WithLogging[audio.Clip, Vector](s.log),
		)(provider.WithResilience[audio.Clip, Vector](ex, rc))
	}
}
