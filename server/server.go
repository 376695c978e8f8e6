package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/speakerid/logger"
	"github.com/kbukum/speakerid/server/middleware"
)

// ShutdownTimeout caps how long Stop waits for in-flight attributions.
const ShutdownTimeout = 30 * time.Second

// Server serves a Gin engine over cleartext HTTP/1.1 and h2c, so large
// recordings can be uploaded over HTTP/2 without TLS.
type Server struct {
	cfg    Config
	engine *gin.Engine
	http   *http.Server
	h2     *http2.Server
	log    *logger.Logger

	mu   sync.Mutex
	addr net.Addr
}

// New builds a server with no middleware and no routes.
func New(cfg Config, log *logger.Logger) *Server {
	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		cfg:    cfg,
		engine: gin.New(),
		h2:     &http2.Server{MaxConcurrentStreams: 250, IdleTimeout: cfg.IdleTimeout},
		log:    log.WithComponent("server"),
	}
	s.http = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           h2c.NewHandler(s.engine, s.h2),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return s
}

// Engine is where API routes are registered.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Handler is the full root handler, middleware included.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Addr is the bound address once started, the configured one before.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr != nil {
		return s.addr.String()
	}
	return s.http.Addr
}

// Use installs the server-level middleware around the engine: recovery,
// request ids, request logging, CORS and the upload size limit.
func (s *Server) Use() {
	chain := middleware.Chain(
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.RequestLogger(s.log),
		middleware.CORS(s.cfg.CORS),
		middleware.BodySizeLimit(s.cfg.MaxBodySize),
	)
	s.http.Handler = h2c.NewHandler(chain(s.engine), s.h2)
}

// Guard returns the per-client limiter for attribution routes, or nil
// when rate limiting is off.
func (s *Server) Guard() gin.HandlerFunc {
	if s.cfg.RateLimit.RequestsPerMinute <= 0 {
		return nil
	}
	return middleware.RateLimit(s.cfg.RateLimit)
}

// Start binds the listener and serves in the background. It returns once
// the port is bound.
func (s *Server) Start(context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.http.Addr, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("serve failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}()
	s.log.Info("listening", logger.Fields("addr", ln.Addr().String()))
	return nil
}

// Stop drains in-flight requests, giving up after ShutdownTimeout or when
// ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("stopped")
	return nil
}
