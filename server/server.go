package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/gohost/component"
	"github.com/kbukum/gohost/logger"
)

var (
	_ component.Component     = (*Server)(nil)
	_ component.Describable   = (*Server)(nil)
	_ component.RouteProvider = (*Server)(nil)
)

// Server is a hosted HTTP component backed by Gin and served over h2c, so
// HTTP/1.1 and cleartext HTTP/2 clients share one port. Additional
// http.Handler mounts live on the same root mux.
type Server struct {
	cfg        Config
	log        *logger.Logger
	engine     *gin.Engine
	mux        *http.ServeMux
	httpServer *http.Server
	gatherer   prometheus.Gatherer
	metrics    *httpMetrics
	checker    HealthChecker

	mu       sync.Mutex
	listener net.Listener
	serving  bool
	serveErr error
}

// Option customizes a Server.
type Option func(*serverOptions)

type serverOptions struct {
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
	checker    HealthChecker
}

// WithMetricsRegistry sets where request metrics are registered and what
// /metrics exposes. Defaults to the Prometheus default registry.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(o *serverOptions) {
		o.registerer = reg
		o.gatherer = reg
	}
}

// WithHealthChecker adds component health to /health and /readyz.
func WithHealthChecker(fn HealthChecker) Option {
	return func(o *serverOptions) { o.checker = fn }
}

// New creates a Server with the standard middleware stack and the system
// endpoints registered. It does not bind until Start.
func New(cfg Config, log *logger.Logger, opts ...Option) (*Server, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &serverOptions{
		registerer: prometheus.DefaultRegisterer,
		gatherer:   prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(o)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	// Set Gin mode based on global zerolog level.
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics, err := newHTTPMetrics(o.registerer)
	if err != nil {
		return nil, err
	}

	engine := gin.New()
	mux := http.NewServeMux()
	mux.Handle("/", engine)

	h2s := &http2.Server{
		MaxConcurrentStreams: cfg.MaxConcurrentStreams,
		IdleTimeout:          cfg.IdleTimeout,
	}

	s := &Server{
		cfg:      cfg,
		log:      log.WithComponent(cfg.Name),
		engine:   engine,
		mux:      mux,
		gatherer: o.gatherer,
		metrics:  metrics,
		checker:  o.checker,
		httpServer: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      h2c.NewHandler(mux, h2s),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}

	engine.Use(
		Recovery(s.log),
		RequestID(),
		Tracing(),
		RequestMetrics(s.metrics),
		RequestLogger(s.log),
	)
	s.registerSystemEndpoints()
	return s, nil
}

// Engine returns the Gin engine for route registration.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Handle mounts an http.Handler at pattern on the root mux, next to Gin.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
	s.log.Debug("Handler mounted", map[string]interface{}{
		"pattern": pattern,
	})
}

// Name implements component.Component.
func (s *Server) Name() string { return s.cfg.Name }

// Start binds the port and begins serving. It returns once the listener is
// bound so the caller knows the port is ready; serving continues in a
// goroutine.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.serving {
		return fmt.Errorf("server %s already started", s.cfg.Name)
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.listener = listener
	s.serving = true
	s.serveErr = nil

	go s.serve(listener)

	s.log.Info("HTTP server started", map[string]interface{}{
		"addr": listener.Addr().String(),
	})
	return nil
}

func (s *Server) serve(listener net.Listener) {
	err := s.httpServer.Serve(listener)
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return
	}
	s.log.Error("Server error", logger.ErrorFields("serve", err))

	s.mu.Lock()
	s.serving = false
	s.serveErr = err
	s.mu.Unlock()
}

// Stop gracefully shuts down the server. The shutdown is bounded by ctx and
// the configured shutdown timeout, whichever ends first.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	wasServing := s.serving || s.listener != nil
	s.serving = false
	s.mu.Unlock()
	if !wasServing {
		return nil
	}

	s.log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("Server shutdown error", logger.ErrorFields("shutdown", err))
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.mu.Lock()
	s.listener = nil
	s.mu.Unlock()
	s.log.Info("HTTP server shut down successfully")
	return nil
}

// Addr returns the bound address once started, otherwise the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Health implements component.Component.
func (s *Server) Health(context.Context) component.Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.serving:
		return component.Health{Name: s.cfg.Name, Status: component.StatusHealthy}
	case s.serveErr != nil:
		return component.Health{Name: s.cfg.Name, Status: component.StatusUnhealthy, Message: s.serveErr.Error()}
	default:
		return component.Health{Name: s.cfg.Name, Status: component.StatusUnhealthy, Message: "not serving"}
	}
}

// Describe implements component.Describable.
func (s *Server) Describe() component.Description {
	return component.Description{
		Name:    "HTTP Server",
		Type:    "server",
		Details: s.Addr() + " h2c",
		Port:    s.cfg.Port,
	}
}
