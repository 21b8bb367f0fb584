// Package startup is the sample application run by the gohost binary: an
// HTTP server component with a greeting route and a request counter.
package startup

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/gohost/config"
	"github.com/kbukum/gohost/di"
	"github.com/kbukum/gohost/hosting"
	"github.com/kbukum/gohost/lifetime"
	"github.com/kbukum/gohost/logger"
	"github.com/kbukum/gohost/observability"
	"github.com/kbukum/gohost/pipeline"
	"github.com/kbukum/gohost/server"
)

// Name is the registered Startup name.
const Name = "sample"

// Service keys.
const (
	KeyServer    = "sample.http"
	KeyTelemetry = "sample.telemetry"
)

func init() {
	hosting.RegisterStartup(Name, New)
}

// Settings is the application configuration read from appsettings files.
type Settings struct {
	Greeting  string               `yaml:"greeting" mapstructure:"greeting"`
	Server    server.Config        `yaml:"server" mapstructure:"server"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// RequestCounter counts greetings served.
type RequestCounter struct {
	n atomic.Int64
}

// Inc increments the counter and returns the new value.
func (c *RequestCounter) Inc() int64 { return c.n.Add(1) }

// Value returns the current count.
func (c *RequestCounter) Value() int64 { return c.n.Load() }

// Startup wires the sample application.
type Startup struct {
	settings Settings
}

// New loads Settings from the content root of env.
func New(env hosting.Environment) (*Startup, error) {
	s := Settings{
		Greeting:  "Hello from gohost",
		Server:    server.Config{Port: 8080},
		Telemetry: observability.DefaultConfig(env.ApplicationName()),
	}
	s.Telemetry.Environment = env.EnvironmentName()
	if err := config.LoadSettings(env.ContentRootPath(), env.EnvironmentName(), &s); err != nil {
		return nil, err
	}
	if s.Telemetry.ServiceName == "" {
		s.Telemetry.ServiceName = env.ApplicationName()
	}
	return &Startup{settings: s}, nil
}

// Settings returns the loaded settings.
func (s *Startup) Settings() Settings { return s.settings }

// RegisterServices binds telemetry, the request counter and the HTTP server.
func (s *Startup) RegisterServices(reg *di.Registry) error {
	if err := reg.AddSingleton(KeyTelemetry, func(p di.Provider) (*observability.Telemetry, error) {
		log := di.MustResolve[*logger.Logger](p, di.Keys.Logger)
		return observability.New(context.Background(), s.settings.Telemetry,
			observability.WithLogger(log.WithComponent("telemetry")),
			observability.WithGlobal(),
		)
	}); err != nil {
		return err
	}

	if err := reg.AddSingleton(di.KeyOf[*RequestCounter](), func() *RequestCounter {
		return &RequestCounter{}
	}); err != nil {
		return err
	}

	return reg.AddComponent(KeyServer, func(p di.Provider) (*server.Server, error) {
		log := di.MustResolve[*logger.Logger](p, di.Keys.Logger)
		return server.New(s.settings.Server, log.WithComponent("http"))
	})
}

// ConfigurePipeline composes recovery, logging and telemetry around a
// terminal handler that registers the application routes.
func (s *Startup) ConfigurePipeline(b *pipeline.Builder, env hosting.Environment, loggers logger.Factory, lt *lifetime.Notifier) error {
	log := loggers.Get(Name)

	telemetry, err := di.Resolve[*observability.Telemetry](b.Services(), KeyTelemetry)
	if err != nil {
		return err
	}

	if err := b.Use(pipeline.Recover()); err != nil {
		return err
	}
	if err := b.Use(pipeline.Logging(log, "app")); err != nil {
		return err
	}
	if err := b.Use(telemetry.Middleware("app")); err != nil {
		return err
	}

	lt.OnStarted(func() {
		log.Info("Application started", map[string]interface{}{
			logger.FieldEnvironment: env.EnvironmentName(),
		})
	})
	lt.OnStopping(func() {
		log.Info("Application stopping")
	})

	return b.Run(func(ctx context.Context) error {
		srv, err := di.Resolve[*server.Server](b.Services(), KeyServer)
		if err != nil {
			return err
		}
		counter, err := di.Resolve[*RequestCounter](b.Services(), di.KeyOf[*RequestCounter]())
		if err != nil {
			return err
		}
		s.routes(srv.Engine(), counter, env)
		return nil
	})
}

func (s *Startup) routes(r *gin.Engine, counter *RequestCounter, env hosting.Environment) {
	r.GET("/", func(c *gin.Context) {
		n := counter.Inc()
		c.JSON(http.StatusOK, gin.H{
			"message":     s.settings.Greeting,
			"environment": env.EnvironmentName(),
			"count":       n,
		})
	})
	r.GET("/requests", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"count": counter.Value()})
	})
}
