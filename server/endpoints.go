package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/speakerid/component"
	"github.com/kbukum/speakerid/version"
)

// HealthFunc reports the health of every registered component.
type HealthFunc func(ctx context.Context) []component.Health

// opsPaths are the operational routes added by HealthRoutes.
var opsPaths = map[string]bool{"/health": true, "/ready": true, "/version": true}

var started = time.Now()

// HealthRoutes registers /health, /ready and /version.
//
// /health always answers: 200 when nothing is unhealthy, 503 otherwise,
// with the per-component list. /ready is the same verdict without the
// detail, for load balancers.
func (s *Server) HealthRoutes(service string, health HealthFunc) {
	s.engine.GET("/health", func(c *gin.Context) {
		status, comps := overall(c.Request.Context(), health)
		c.JSON(httpStatus(status), gin.H{
			"service":    service,
			"status":     status,
			"components": comps,
		})
	})
	s.engine.GET("/ready", func(c *gin.Context) {
		status, _ := overall(c.Request.Context(), health)
		if status == component.StatusUnhealthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ready": true})
	})
	s.engine.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": service,
			"build":   version.Get(),
			"uptime":  time.Since(started).Round(time.Second).String(),
		})
	})
}

// overall folds component statuses: any unhealthy wins, then any degraded.
func overall(ctx context.Context, health HealthFunc) (component.HealthStatus, []component.Health) {
	status := component.StatusHealthy
	if health == nil {
		return status, nil
	}
	comps := health(ctx)
	for _, h := range comps {
		switch h.Status {
		case component.StatusUnhealthy:
			return component.StatusUnhealthy, comps
		case component.StatusDegraded:
			status = component.StatusDegraded
		}
	}
	return status, comps
}

func httpStatus(s component.HealthStatus) int {
	if s == component.StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
