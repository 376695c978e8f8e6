package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/speakerid/component"
	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/logger"
	"github.com/kbukum/speakerid/server/middleware"
)

func newServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := Config{Host: "127.0.0.1", Port: 0}
	cfg.ApplyDefaults()
	cfg.Port = 0
	return New(cfg, logger.NewDefault("test"))
}

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, http.NoBody))
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("%s: invalid JSON %q: %v", path, rr.Body.String(), err)
	}
	return rr, body
}

func healthOf(statuses ...component.HealthStatus) HealthFunc {
	return func(context.Context) []component.Health {
		out := make([]component.Health, len(statuses))
		for i, s := range statuses {
			out[i] = component.Health{Name: fmt.Sprintf("c%d", i), Status: s}
		}
		return out
	}
}

func TestConfig(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Port != 8080 || cfg.MaxBodySize != "512MB" || cfg.WriteTimeout != 10*time.Minute {
		t.Errorf("defaults = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	for name, bad := range map[string]Config{
		"port":       {Port: 70000},
		"timeout":    {Port: 80, IdleTimeout: -time.Second},
		"rate limit": {Port: 80, RateLimit: middleware.RateLimitConfig{RequestsPerMinute: -1}},
	} {
		if err := bad.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestHealthVerdict(t *testing.T) {
	tests := []struct {
		name     string
		health   HealthFunc
		want     string
		wantCode int
		ready    bool
	}{
		{"no checker", nil, "healthy", http.StatusOK, true},
		{"all healthy", healthOf(component.StatusHealthy, component.StatusHealthy), "healthy", http.StatusOK, true},
		{"degraded sidecar", healthOf(component.StatusHealthy, component.StatusDegraded), "degraded", http.StatusOK, true},
		{"unhealthy wins", healthOf(component.StatusDegraded, component.StatusUnhealthy), "unhealthy", http.StatusServiceUnavailable, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer(t)
			s.Use()
			s.HealthRoutes("speakerid", tt.health)

			rr, body := get(t, s, "/health")
			if rr.Code != tt.wantCode || body["status"] != tt.want {
				t.Errorf("/health = %d %v", rr.Code, body)
			}
			if rr.Header().Get(middleware.HeaderRequestID) == "" {
				t.Error("server middleware not applied")
			}
			_, ready := get(t, s, "/ready")
			if ready["ready"] != tt.ready {
				t.Errorf("/ready = %v", ready)
			}
		})
	}
}

func TestVersionEndpoint(t *testing.T) {
	s := newServer(t)
	s.HealthRoutes("speakerid", nil)
	rr, body := get(t, s, "/version")
	if rr.Code != http.StatusOK || body["service"] != "speakerid" {
		t.Fatalf("/version = %d %v", rr.Code, body)
	}
	if build, ok := body["build"].(map[string]any); !ok || build["version"] == "" {
		t.Errorf("build = %v", body["build"])
	}
}

func TestPanicBecomesInternalError(t *testing.T) {
	s := newServer(t)
	s.Use()
	s.Engine().GET("/boom", func(*gin.Context) { panic("boom") })
	rr, body := get(t, s, "/boom")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if e, _ := body["error"].(map[string]any); e["code"] != string(apperrors.ErrCodeInternal) {
		t.Errorf("body = %v", body)
	}
}

func TestRespondWithError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", apperrors.NoEnrollment("/data/enroll"), http.StatusUnprocessableEntity},
		{"wrapped app error", fmt.Errorf("run: %w", apperrors.EmptyAudio("seg-3")), http.StatusUnprocessableEntity},
		{"plain error", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rr)
			RespondWithError(c, tt.err)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestGuard(t *testing.T) {
	s := newServer(t)
	if s.Guard() != nil {
		t.Fatal("limiter without requests_per_minute")
	}
	s.cfg.RateLimit.RequestsPerMinute = 10
	if s.Guard() == nil {
		t.Fatal("no limiter with requests_per_minute set")
	}
}

func TestComponentLifecycle(t *testing.T) {
	s := newServer(t)
	s.HealthRoutes("speakerid", nil)
	s.Engine().POST("/api/v1/attributions", func(c *gin.Context) { c.Status(http.StatusOK) })
	s.Engine().GET("/api/v1/identities", func(c *gin.Context) { c.Status(http.StatusOK) })

	c := NewComponent(s)
	if h := c.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Fatalf("health before start = %+v", h)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	resp, err := http.Get("http://" + s.Addr() + "/ready")
	if err != nil {
		t.Fatalf("GET /ready: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/ready over TCP = %d", resp.StatusCode)
	}
	if h := c.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("health after start = %+v", h)
	}

	routes := c.Routes()
	if len(routes) != 5 || routes[0].Path != "/api/v1/attributions" || routes[1].Path != "/api/v1/identities" {
		t.Fatalf("routes = %+v", routes)
	}
	if !opsPaths[routes[len(routes)-1].Path] {
		t.Errorf("health routes should come last: %+v", routes)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestHandlerName(t *testing.T) {
	tests := map[string]string{
		"github.com/kbukum/speakerid/attribution.(*Handler).Attribute-fm": "attribution.Handler.Attribute",
		"main.reload": "main.reload",
	}
	for in, want := range tests {
		if got := handlerName(in); got != want {
			t.Errorf("handlerName(%q) = %q, want %q", in, got, want)
		}
	}
}
