package component

import "context"

type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Health is one component's entry in /health.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a part of the process with a start and stop: telemetry,
// the scratch workspace, the embedding backends, the HTTP server.
// Start must not block past readiness; Stop must honor ctx.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is the startup-summary line for a component, e.g.
// {Type: "embedding", Details: "spectral dim=64 fallback=sidecar"}.
type Description struct {
	Name    string
	Type    string
	Details string
	Port    int
}

// Describable components are listed in the startup summary.
type Describable interface {
	Describe() Description
}

type Route struct {
	Method  string
	Path    string
	Handler string
}

// RouteProvider components have their routes listed in the startup summary.
type RouteProvider interface {
	Routes() []Route
}
