package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kbukum/gohost/component"
	"github.com/kbukum/gohost/version"
)

// HealthChecker returns health for components other than the server itself.
type HealthChecker func(ctx context.Context) []component.Health

// System paths registered by every Server.
const (
	PathHealth  = "/health"
	PathLive    = "/livez"
	PathReady   = "/readyz"
	PathMetrics = "/metrics"
	PathVersion = "/version"
)

var systemPaths = map[string]bool{
	PathHealth:  true,
	PathLive:    true,
	PathReady:   true,
	PathMetrics: true,
	PathVersion: true,
}

func (s *Server) registerSystemEndpoints() {
	s.engine.GET(PathHealth, s.healthHandler)
	s.engine.GET(PathLive, s.livenessHandler)
	s.engine.GET(PathReady, s.readinessHandler)
	s.engine.GET(PathMetrics, gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	s.engine.GET(PathVersion, versionHandler)
}

// collectHealth returns the server's own health followed by the checker's.
func (s *Server) collectHealth(ctx context.Context) []component.Health {
	healths := []component.Health{s.Health(ctx)}
	if s.checker != nil {
		healths = append(healths, s.checker(ctx)...)
	}
	return healths
}

// overallStatus folds component statuses: any unhealthy wins over degraded.
func overallStatus(healths []component.Health) component.HealthStatus {
	status := component.StatusHealthy
	for _, h := range healths {
		switch h.Status {
		case component.StatusUnhealthy:
			return component.StatusUnhealthy
		case component.StatusDegraded:
			status = component.StatusDegraded
		}
	}
	return status
}

func (s *Server) healthHandler(c *gin.Context) {
	healths := s.collectHealth(c.Request.Context())
	status := overallStatus(healths)

	httpStatus := http.StatusOK
	if status == component.StatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, gin.H{
		"status":     status,
		"service":    s.cfg.Name,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"components": healths,
	})
}

// livenessHandler confirms the process can serve HTTP at all.
func (s *Server) livenessHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"service":   s.cfg.Name,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// readinessHandler reports whether traffic should be routed here; degraded
// components still accept traffic.
func (s *Server) readinessHandler(c *gin.Context) {
	status := "ready"
	httpStatus := http.StatusOK
	if overallStatus(s.collectHealth(c.Request.Context())) == component.StatusUnhealthy {
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, gin.H{
		"status":    status,
		"service":   s.cfg.Name,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func versionHandler(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get())
}
