package hosting

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/gohost/component"
	"github.com/kbukum/gohost/config"
	"github.com/kbukum/gohost/di"
	apperrors "github.com/kbukum/gohost/errors"
	"github.com/kbukum/gohost/lifetime"
	"github.com/kbukum/gohost/logger"
	"github.com/kbukum/gohost/pipeline"
)

// Sentinel errors for errors.Is matching.
var (
	ErrNotConfigured     = apperrors.NotConfigured()
	ErrAlreadyConfigured = apperrors.AlreadyConfigured()
	ErrInvalidState      = apperrors.New(apperrors.ErrCodeInvalidState, "invalid host state")

	// errStopped tells Run that Stop began before startup could.
	errStopped = errors.New("host stopped before run")
)

// Host drives an application through its lifecycle: it selects the Startup,
// builds the service registry, composes the pipeline, runs it until a
// termination signal and tears everything down exactly once.
//
// Example:
//
//	h, err := hosting.New(cfg)
//	if err != nil {
//	    return err
//	}
//	if err := h.Configure(ctx); err != nil {
//	    return err
//	}
//	return h.Run(ctx)
type Host struct {
	id      string
	cfg     config.HostConfig
	env     Environment
	opts    *hostOptions
	log     *logger.Logger
	loggers logger.Factory
	metrics *hostMetrics

	// lifecycleMu serializes startup in Run against teardown in Stop so
	// components are never started after they were stopped.
	lifecycleMu sync.Mutex

	mu          sync.Mutex
	state       State
	configuring bool
	lifetime    *lifetime.Notifier
	resolver    *di.Resolver
	builder     *pipeline.Builder
	components  *component.Registry
	startupName string
	summary     *Summary
	cancelRun   context.CancelFunc

	stopOnce  sync.Once
	stopErr   error
	stopBegin chan struct{}
	done      chan struct{}
}

// New creates a host from typed config. It applies defaults, validates the
// config and initializes the logger.
func New(cfg config.HostConfig, opts ...Option) (*Host, error) {
	o := resolveOptions(opts)

	cfg.ApplyDefaults()
	if o.shutdownTimeout != nil {
		cfg.ShutdownTimeout = *o.shutdownTimeout
	}
	if err := cfg.Validate(); err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.InvalidConfig(err)
	}

	env, err := NewEnvironment(cfg)
	if err != nil {
		return nil, err
	}

	// Logger: use custom if provided, otherwise init from config.
	log := o.logger
	if log == nil {
		logger.Init(&cfg.Logging, cfg.Name)
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("host")

	loggers := o.loggerFactory
	if loggers == nil {
		loggers = logger.NewRegistry(log)
	}
	if len(o.signals) == 0 {
		o.signals = []SignalSource{OSSignals()}
	}
	metrics, err := newHostMetrics(o.registerer, cfg.Name)
	if err != nil {
		return nil, err
	}

	h := &Host{
		id:        uuid.NewString(),
		cfg:       cfg,
		env:       env,
		opts:      o,
		log:       log,
		loggers:   loggers,
		metrics:   metrics,
		state:     StateUnconfigured,
		lifetime:  lifetime.New(log.WithComponent("lifetime")),
		stopBegin: make(chan struct{}),
		done:      make(chan struct{}),
	}
	h.metrics.setState(StateUnconfigured)
	return h, nil
}

// ID returns the unique id of this host instance.
func (h *Host) ID() string { return h.id }

// Environment returns the host environment.
func (h *Host) Environment() Environment { return h.env }

// State returns the current lifecycle state.
func (h *Host) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Lifetime returns the notifier the host fires. After Configure it is the
// instance resolved from the registry.
func (h *Host) Lifetime() *lifetime.Notifier {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lifetime
}

// Services returns the resolver, or nil before Configure.
func (h *Host) Services() di.Provider {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.resolver == nil {
		return nil
	}
	return h.resolver
}

// Done returns a channel closed once the host reaches Stopped.
func (h *Host) Done() <-chan struct{} { return h.done }

func (h *Host) setState(s State) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
	h.metrics.setState(s)
	h.log.Debug("Host state changed", map[string]interface{}{logger.FieldState: s.String()})
}

// Configure registers the built-in services, selects and constructs the
// Startup, lets it register services, builds the resolver and lets the
// Startup compose the pipeline. A failed Configure leaves the host
// Unconfigured; calling Configure on a configured host fails with
// ErrAlreadyConfigured.
func (h *Host) Configure(ctx context.Context) error {
	h.mu.Lock()
	if h.state != StateUnconfigured || h.configuring {
		state := h.state
		h.mu.Unlock()
		if state == StateUnconfigured || state == StateConfigured {
			return apperrors.AlreadyConfigured()
		}
		return apperrors.InvalidState("configure", state.String())
	}
	h.configuring = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.configuring = false
		h.mu.Unlock()
	}()

	start := time.Now()
	h.log.Info("Configuring host", map[string]interface{}{
		logger.FieldHostID:      h.id,
		logger.FieldEnvironment: h.env.EnvironmentName(),
		"content_root":          h.env.ContentRootPath(),
	})

	registry := di.NewRegistry(di.WithLogger(h.log.WithComponent("di")))
	builder := pipeline.NewBuilder(nil)
	builtins := []struct {
		key   string
		value interface{}
	}{
		{di.Keys.Environment, h.env},
		{di.Keys.Lifetime, h.lifetime},
		{di.Keys.PipelineBuilder, builder},
		{di.Keys.LoggerFactory, h.loggers},
		{di.Keys.Logger, h.log},
		{di.Keys.Config, h.cfg},
	}
	for _, b := range builtins {
		if err := registry.AddInstance(b.key, b.value); err != nil {
			return fmt.Errorf("register %s: %w", b.key, err)
		}
	}

	startup, name, err := selectStartup(h.opts, h.env)
	if err != nil {
		h.log.Error("Startup selection failed", logger.ErrorFields("select_startup", err))
		return err
	}
	h.log.Debug("Startup selected", map[string]interface{}{"startup": name})

	if err := startup.RegisterServices(registry); err != nil {
		return fmt.Errorf("startup %s: register services: %w", name, err)
	}

	resolver := registry.Build()
	fail := func(err error) error {
		if closeErr := resolver.Close(ctx); closeErr != nil {
			h.log.Warn("Dispose after failed configure", logger.ErrorFields("dispose", closeErr))
		}
		return err
	}

	// Built-ins are resolved rather than reused so a Startup that replaced
	// one of them gets its own instance back.
	env, err := di.Resolve[Environment](resolver, di.Keys.Environment)
	if err != nil {
		return fail(err)
	}
	lt, err := di.Resolve[*lifetime.Notifier](resolver, di.Keys.Lifetime)
	if err != nil {
		return fail(err)
	}
	b, err := di.Resolve[*pipeline.Builder](resolver, di.Keys.PipelineBuilder)
	if err != nil {
		return fail(err)
	}
	loggers, err := di.Resolve[logger.Factory](resolver, di.Keys.LoggerFactory)
	if err != nil {
		return fail(err)
	}
	b.SetServices(resolver)

	if err := startup.ConfigurePipeline(b, env, loggers, lt); err != nil {
		return fail(fmt.Errorf("startup %s: configure pipeline: %w", name, err))
	}

	regs := registry.Registrations()
	h.mu.Lock()
	if h.state != StateUnconfigured {
		state := h.state
		h.mu.Unlock()
		return fail(apperrors.InvalidState("configure", state.String()))
	}
	h.resolver = resolver
	h.builder = b
	h.lifetime = lt
	h.startupName = name
	h.components = component.NewRegistry(
		component.WithLogger(h.log.WithComponent("component")),
	)
	h.summary = NewSummary(h.id, env)
	h.mu.Unlock()

	h.summary.TrackRegistrations(regs)
	h.metrics.observeRegistrations(regs)
	h.setState(StateConfigured)

	h.log.Info("Host configured", map[string]interface{}{
		"startup":            name,
		"registrations":      len(regs),
		logger.FieldDuration: time.Since(start).Milliseconds(),
	})
	return nil
}

// Run compiles and invokes the pipeline, starts hosted components, reports
// Started and blocks until a termination signal, ctx cancellation or a
// StopApplication request. It then waits for Stop to complete and returns
// its error. A failing pipeline or component start stops the host and is
// returned.
//
// The pipeline and component starts receive a context that is canceled as
// soon as shutdown is requested, so a startup still in flight unwinds and
// teardown proceeds.
func (h *Host) Run(ctx context.Context) error {
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	sigCh := make(chan os.Signal, 1)
	for _, src := range h.opts.signals {
		cancel := src.Listen(func(sig os.Signal) {
			select {
			case sigCh <- sig:
			default:
			}
			cancelRun()
		})
		defer cancel()
	}

	lt := h.Lifetime()
	go func() {
		select {
		case <-lt.StopRequested():
			cancelRun()
		case <-runCtx.Done():
		}
	}()

	if err := h.startup(runCtx, cancelRun); err != nil {
		if errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrInvalidState) {
			return err
		}
		if errors.Is(err, errStopped) || runCtx.Err() != nil {
			h.log.Info("Shutdown requested during startup", logger.Fields("cause", err.Error()))
			return h.Stop(context.Background())
		}
		h.log.Error("Host startup failed", logger.ErrorFields("run", err))
		if stopErr := h.Stop(context.Background()); stopErr != nil {
			return errors.Join(err, stopErr)
		}
		return err
	}

	lt = h.Lifetime()
	h.log.Info("Host running, waiting for shutdown signal")
	select {
	case sig := <-sigCh:
		h.log.Info("Received shutdown signal, starting graceful shutdown", map[string]interface{}{
			logger.FieldSignal: sig.String(),
		})
	case <-lt.StopRequested():
		h.log.Info("Application requested shutdown")
	case <-h.stopBegin:
	case <-runCtx.Done():
		h.log.Info("Context canceled, shutting down")
	}

	return h.Stop(context.Background())
}

// startup runs the pipeline and starts hosted components under the
// lifecycle lock. cancel is recorded so Stop can abort a startup in flight.
func (h *Host) startup(ctx context.Context, cancel context.CancelFunc) error {
	h.lifecycleMu.Lock()
	defer h.lifecycleMu.Unlock()

	h.mu.Lock()
	state := h.state
	switch state {
	case StateConfigured:
		h.state = StateRunning
		h.cancelRun = cancel
	case StateUnconfigured:
		h.mu.Unlock()
		return apperrors.NotConfigured()
	case StateStopping, StateStopped:
		h.mu.Unlock()
		return errStopped
	default:
		h.mu.Unlock()
		return apperrors.InvalidState("run", state.String())
	}
	builder, resolver, components, lt, summary := h.builder, h.resolver, h.components, h.lifetime, h.summary
	h.mu.Unlock()
	h.metrics.setState(StateRunning)

	start := time.Now()
	app, err := builder.Compile()
	if err != nil {
		return err
	}
	if err := app(ctx); err != nil {
		return fmt.Errorf("application pipeline: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, reg := range resolver.Registrations() {
		if !reg.Component {
			continue
		}
		c, err := di.Resolve[component.Component](resolver, reg.Key)
		if err != nil {
			return fmt.Errorf("hosted component %s: %w", reg.Key, err)
		}
		if err := components.Register(c); err != nil {
			return fmt.Errorf("hosted component %s: %w", reg.Key, err)
		}
	}
	if err := components.StartAll(ctx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := h.ReadyCheck(ctx); err != nil {
		h.log.Warn("Ready check reported issues", logger.ErrorFields("ready_check", err))
	}

	lt.NotifyStarted()

	elapsed := time.Since(start)
	h.metrics.observeStartup(elapsed)
	summary.SetStartupDuration(elapsed)
	summary.TrackMiddleware(builder.Len())
	summary.TrackComponents(ctx, components)
	summary.Log(h.log)
	if h.opts.summaryOutput != nil {
		summary.Print(h.opts.summaryOutput)
	}
	return nil
}

// ReadyCheck verifies that all hosted components are started and healthy.
func (h *Host) ReadyCheck(ctx context.Context) error {
	h.mu.Lock()
	components := h.components
	h.mu.Unlock()
	if components == nil {
		return apperrors.NotConfigured()
	}
	return components.Ready(ctx)
}

// Stop tears the host down exactly once: it fires Stopping, stops hosted
// components in reverse order, disposes the resolver and fires Stopped. Every
// step runs even if an earlier one failed. Concurrent callers block until the
// first call completes and receive its error.
//
// ctx and the configured shutdown timeout bound the disposers; the timeout is
// advisory and never skips a step.
//
// Stop must not be called from a lifetime subscriber or the pipeline; use
// lifetime.Notifier.StopApplication there.
func (h *Host) Stop(ctx context.Context) error {
	h.stopOnce.Do(func() {
		h.stopErr = h.stop(ctx)
	})
	return h.stopErr
}

func (h *Host) stop(ctx context.Context) error {
	h.mu.Lock()
	prev := h.state
	h.state = StateStopping
	cancelRun := h.cancelRun
	h.mu.Unlock()
	close(h.stopBegin)
	h.metrics.setState(StateStopping)

	// Abort a startup in flight so it releases the lifecycle lock.
	if cancelRun != nil {
		cancelRun()
	}

	// Wait for an in-flight startup to finish before tearing it down.
	h.lifecycleMu.Lock()
	defer h.lifecycleMu.Unlock()

	start := time.Now()
	h.log.Info("Shutting down host", map[string]interface{}{
		"timeout":         h.cfg.ShutdownTimeout.String(),
		logger.FieldState: prev.String(),
	})

	ctx, cancel := context.WithTimeout(ctx, h.cfg.ShutdownTimeout)
	defer cancel()

	h.mu.Lock()
	lt, components, resolver := h.lifetime, h.components, h.resolver
	h.mu.Unlock()

	lt.NotifyStopping()

	var errs []error
	if components != nil {
		if err := components.StopAll(ctx); err != nil {
			h.log.Error("Hosted components stopped with errors", logger.ErrorFields("stop_components", err))
			errs = append(errs, err)
		}
	}
	if resolver != nil {
		if err := resolver.Close(ctx); err != nil {
			h.log.Error("Service disposal completed with errors", logger.ErrorFields("dispose", err))
			errs = append(errs, err)
		}
	}

	lt.NotifyStopped()
	h.setState(StateStopped)
	h.metrics.observeShutdown(time.Since(start))
	close(h.done)

	h.log.Info("Host shutdown complete", logger.DurationFields("stop", time.Since(start)))
	return errors.Join(errs...)
}
