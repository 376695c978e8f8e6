package server

import (
	"context"
	"path"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/kbukum/speakerid/component"
)

var (
	_ component.Component     = (*Component)(nil)
	_ component.Describable   = (*Component)(nil)
	_ component.RouteProvider = (*Component)(nil)
)

// Component runs a Server under the app lifecycle.
type Component struct {
	srv     *Server
	running atomic.Bool
}

func NewComponent(s *Server) *Component { return &Component{srv: s} }

func (c *Component) Name() string { return "http-server" }

func (c *Component) Start(ctx context.Context) error {
	if err := c.srv.Start(ctx); err != nil {
		return err
	}
	c.running.Store(true)
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.running.Store(false)
	return c.srv.Stop(ctx)
}

func (c *Component) Health(context.Context) component.Health {
	if !c.running.Load() {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "not listening"}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

func (c *Component) Describe() component.Description {
	return component.Description{Name: "HTTP API", Type: "server", Details: c.srv.Addr(), Port: c.srv.cfg.Port}
}

// Routes lists API routes by path, then the health routes.
func (c *Component) Routes() []component.Route {
	var api, ops []component.Route
	for _, r := range c.srv.engine.Routes() {
		route := component.Route{Method: r.Method, Path: r.Path, Handler: handlerName(r.Handler)}
		if opsPaths[r.Path] {
			ops = append(ops, route)
		} else {
			api = append(api, route)
		}
	}
	byPath := func(a, b component.Route) int {
		return strings.Compare(a.Path+" "+a.Method, b.Path+" "+b.Method)
	}
	slices.SortFunc(api, byPath)
	slices.SortFunc(ops, byPath)
	return append(api, ops...)
}

// handlerName shortens Gin's reflected name:
// "github.com/kbukum/speakerid/attribution.(*Handler).Attribute-fm"
// becomes "attribution.Handler.Attribute".
func handlerName(full string) string {
	name := path.Base(strings.TrimSuffix(full, "-fm"))
	return strings.NewReplacer("(*", "", ")", "").Replace(name)
}
