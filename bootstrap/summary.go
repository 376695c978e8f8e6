package bootstrap

import (
	"context"
	"time"

	"github.com/kbukum/speakerid/component"
	"github.com/kbukum/speakerid/logger"
)

// logSummary logs what the process started with: one line per described
// component, one per route, and one health line per component.
func logSummary(ctx context.Context, log *logger.Logger, reg *component.Registry, took time.Duration) {
	log.Info("startup complete", logger.Fields(logger.FieldDuration, took.Milliseconds()))

	for _, c := range reg.All() {
		if d, ok := c.(component.Describable); ok {
			desc := d.Describe()
			fields := logger.Fields(logger.FieldComponent, c.Name(), "type", desc.Type, "details", desc.Details)
			if desc.Port > 0 {
				fields["port"] = desc.Port
			}
			log.Debug("component", fields)
		}
		if rp, ok := c.(component.RouteProvider); ok {
			for _, r := range rp.Routes() {
				log.Debug("route", logger.Fields("method", r.Method, "path", r.Path, "handler", r.Handler))
			}
		}
	}

	for _, h := range reg.HealthAll(ctx) {
		fields := logger.Fields(logger.FieldComponent, h.Name, logger.FieldStatus, string(h.Status))
		if h.Status == component.StatusHealthy {
			log.Debug("health", fields)
			continue
		}
		fields["message"] = h.Message
		log.Warn("health", fields)
	}
}
