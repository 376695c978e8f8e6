package provider

import (
	"context"
	"time"

	"github.com/kbukum/speakerid/logger"
)

// WithLogging logs every Execute with the provider name and its duration.
// Failures are logged at WARN; callers decide whether they are fatal.
func WithLogging[I, O any](log *logger.Logger) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &loggingRR[I, O]{inner: inner, log: log}
	}
}

type loggingRR[I, O any] struct {
	inner RequestResponse[I, O]
	log   *logger.Logger
}

func (l *loggingRR[I, O]) Name() string                         { return l.inner.Name() }
func (l *loggingRR[I, O]) IsAvailable(ctx context.Context) bool { return l.inner.IsAvailable(ctx) }

func (l *loggingRR[I, O]) Execute(ctx context.Context, in I) (O, error) {
	start := time.Now()
	out, err := l.inner.Execute(ctx, in)
	fields := logger.Fields("provider", l.inner.Name(), "duration", time.Since(start).String())
	if err != nil {
		fields[logger.FieldError] = err.Error()
		l.log.WithContext(ctx).Warn("provider execute failed", fields)
		return out, err
	}
	l.log.WithContext(ctx).Debug("provider execute ok", fields)
	return out, nil
}
