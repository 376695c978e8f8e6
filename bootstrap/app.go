package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/speakerid/component"
	"github.com/kbukum/speakerid/logger"
)

// DefaultGracefulTimeout bounds OnStop hooks plus component shutdown.
const DefaultGracefulTimeout = 15 * time.Second

// Hook runs at a fixed point of the lifecycle. A failing OnStart or
// OnReady hook aborts startup.
type Hook func(ctx context.Context) error

// Option configures an App.
type Option func(*options)

type options struct {
	log   *logger.Logger
	grace time.Duration
}

// WithLogger uses l instead of initializing the global logger from config.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithGracefulTimeout overrides DefaultGracefulTimeout.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *options) { o.grace = d }
}

// App owns the typed config, the logger and the components of one
// speakerid process.
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger

	grace   time.Duration
	onStart []Hook
	onReady []Hook
	onStop  []Hook
}

// NewApp defaults and validates cfg, then initializes logging from it.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	o := options{grace: DefaultGracefulTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	svc := cfg.GetServiceConfig()
	if o.log == nil {
		logger.Init(&svc.Logging)
		o.log = logger.GetGlobalLogger()
	}
	return &App[C]{
		Name:       svc.Name,
		Version:    svc.Version,
		Cfg:        cfg,
		Components: component.NewRegistry(),
		Logger:     o.log,
		grace:      o.grace,
	}, nil
}

func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// OnStart hooks run after every component has started.
func (a *App[C]) OnStart(hooks ...Hook) { a.onStart = append(a.onStart, hooks...) }

// OnReady hooks run after the ready check, just before work begins.
func (a *App[C]) OnReady(hooks ...Hook) { a.onReady = append(a.onReady, hooks...) }

// OnStop hooks run before components are stopped.
func (a *App[C]) OnStop(hooks ...Hook) { a.onStop = append(a.onStop, hooks...) }

// ReadyCheck returns one joined error naming every component that is not
// healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var errs []error
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status == component.StatusHealthy {
			continue
		}
		if h.Message != "" {
			errs = append(errs, fmt.Errorf("%s is %s: %s", h.Name, h.Status, h.Message))
		} else {
			errs = append(errs, fmt.Errorf("%s is %s", h.Name, h.Status))
		}
	}
	return errors.Join(errs...)
}

// Run starts the app and serves until ctx is done or SIGINT/SIGTERM
// arrives, then shuts down.
func (a *App[C]) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.start(ctx); err != nil {
		a.cleanup()
		return err
	}
	a.Logger.Info("serving; waiting for shutdown signal")
	<-ctx.Done()
	a.Logger.Info("shutdown requested", logger.Fields("cause", context.Cause(ctx).Error()))
	return a.stop()
}

// RunTask starts the app, runs task and shuts down. A signal cancels the
// task's context. Components are stopped on every exit path and the task
// error wins over a shutdown error.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.start(ctx); err != nil {
		a.cleanup()
		return err
	}
	taskErr := task(ctx)
	if stopErr := a.stop(); taskErr == nil {
		return stopErr
	}
	return taskErr
}

func (a *App[C]) start(ctx context.Context) error {
	began := time.Now()
	a.Logger.Info("starting", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("start components: %w", err)
	}
	if err := runHooks(ctx, "start", a.onStart); err != nil {
		return err
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}
	if err := runHooks(ctx, "ready", a.onReady); err != nil {
		return err
	}
	logSummary(ctx, a.Logger, a.Components, time.Since(began))
	return nil
}

// cleanup stops whatever started before a failed startup.
func (a *App[C]) cleanup() {
	if err := a.stop(); err != nil {
		a.Logger.Warn("cleanup after failed startup", logger.Fields(logger.FieldError, err.Error()))
	}
}

func (a *App[C]) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.grace)
	defer cancel()

	err := errors.Join(
		runHooks(ctx, "stop", a.onStop),
		a.Components.StopAll(ctx),
	)
	if err != nil {
		a.Logger.Error("shutdown finished with errors", logger.Fields(logger.FieldError, err.Error()))
		return err
	}
	a.Logger.Info("shutdown complete")
	return nil
}

func runHooks(ctx context.Context, phase string, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			return fmt.Errorf("%s hook %d: %w", phase, i, err)
		}
	}
	return nil
}
