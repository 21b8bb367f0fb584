package hosting

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kbukum/gohost/component"
	"github.com/kbukum/gohost/config"
	"github.com/kbukum/gohost/di"
	apperrors "github.com/kbukum/gohost/errors"
	"github.com/kbukum/gohost/lifetime"
	"github.com/kbukum/gohost/logger"
	"github.com/kbukum/gohost/pipeline"
)

// funcStartup implements Startup with optional callbacks.
type funcStartup struct {
	register  func(reg *di.Registry) error
	configure func(b *pipeline.Builder, env Environment, loggers logger.Factory, lt *lifetime.Notifier) error
}

func (s *funcStartup) RegisterServices(reg *di.Registry) error {
	if s.register == nil {
		return nil
	}
	return s.register(reg)
}

func (s *funcStartup) ConfigurePipeline(b *pipeline.Builder, env Environment, loggers logger.Factory, lt *lifetime.Notifier) error {
	if s.configure == nil {
		return nil
	}
	return s.configure(b, env, loggers, lt)
}

// counterService is a disposable singleton counting pipeline invocations.
type counterService struct {
	n      atomic.Int32
	closed atomic.Int32
}

func (c *counterService) Close() error {
	c.closed.Add(1)
	return nil
}

// recorder collects lifecycle events from several goroutines.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func testConfig(t *testing.T) config.HostConfig {
	return config.HostConfig{
		Name:            "test-host",
		Environment:     config.EnvironmentDevelopment,
		ContentRoot:     t.TempDir(),
		ShutdownTimeout: 2 * time.Second,
	}
}

func newTestHost(t *testing.T, opts ...Option) (*Host, *ManualSignals) {
	t.Helper()
	sig := NewManualSignals()
	base := []Option{WithLogger(logger.Nop()), WithSignalSource(sig)}
	h, err := New(testConfig(t), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return h, sig
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func runAsync(h *Host, ctx context.Context) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- h.Run(ctx) }()
	return errCh
}

func waitErr(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Run to return")
		return nil
	}
}

func TestEndToEndCounter(t *testing.T) {
	var (
		rec     recorder
		counter atomic.Pointer[counterService]
	)
	key := di.KeyOf[*counterService]()

	startup := &funcStartup{
		register: func(reg *di.Registry) error {
			return reg.AddSingleton(key, func() *counterService { return &counterService{} })
		},
		configure: func(b *pipeline.Builder, _ Environment, _ logger.Factory, lt *lifetime.Notifier) error {
			lt.OnStarted(func() { rec.add("started") })
			lt.OnStopped(func() {
				if c := counter.Load(); c != nil && c.closed.Load() == 1 {
					rec.add("stopped-after-dispose")
				} else {
					rec.add("stopped-before-dispose")
				}
			})
			return b.Use(func(next pipeline.Handler) pipeline.Handler {
				return func(ctx context.Context) error {
					c := di.MustResolve[*counterService](b.Services(), key)
					c.n.Add(1)
					counter.Store(c)
					return next(ctx)
				}
			})
		},
	}

	h, sig := newTestHost(t, WithStartup(startup))
	if err := h.Configure(context.Background()); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	errCh := runAsync(h, context.Background())
	waitFor(t, h.Lifetime().Started(), "Started")
	rec.add("signal")
	sig.Send(syscall.SIGTERM)

	if err := waitErr(t, errCh); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	c := counter.Load()
	if c == nil || c.n.Load() != 1 {
		t.Fatalf("expected counter to be 1, got %v", c)
	}
	if c.closed.Load() != 1 {
		t.Errorf("expected counter to be disposed once, got %d", c.closed.Load())
	}
	want := []string{"started", "signal", "stopped-after-dispose"}
	if got := rec.list(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected events %v, got %v", want, got)
	}
	if h.State() != StateStopped {
		t.Errorf("expected Stopped, got %s", h.State())
	}
	waitFor(t, h.Done(), "Done")
}

func TestRunBeforeConfigure(t *testing.T) {
	h, _ := newTestHost(t, WithStartup(&funcStartup{}))
	err := h.Run(context.Background())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if h.State() != StateUnconfigured {
		t.Errorf("expected host to stay Unconfigured, got %s", h.State())
	}
}

func TestConfigureTwice(t *testing.T) {
	h, _ := newTestHost(t, WithStartup(&funcStartup{}))
	if err := h.Configure(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := h.Configure(context.Background()); !errors.Is(err, ErrAlreadyConfigured) {
		t.Fatalf("expected ErrAlreadyConfigured, got %v", err)
	}
	_ = h.Stop(context.Background())
}

func TestFailedConfigureCanBeRetried(t *testing.T) {
	attempts := 0
	disposed := &counterService{}
	startup := &funcStartup{
		register: func(reg *di.Registry) error {
			return reg.AddSingleton("svc", func() *counterService { return disposed })
		},
		configure: func(b *pipeline.Builder, _ Environment, _ logger.Factory, _ *lifetime.Notifier) error {
			attempts++
			_, _ = b.Services().Resolve("svc")
			if attempts == 1 {
				return errors.New("settings missing")
			}
			return nil
		},
	}
	h, _ := newTestHost(t, WithStartup(startup))

	err := h.Configure(context.Background())
	if err == nil || !strings.Contains(err.Error(), "settings missing") {
		t.Fatalf("expected configure error, got %v", err)
	}
	if disposed.closed.Load() != 1 {
		t.Error("expected singletons built during a failed configure to be disposed")
	}
	if h.State() != StateUnconfigured {
		t.Fatalf("expected Unconfigured after failure, got %s", h.State())
	}
	if err := h.Configure(context.Background()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	_ = h.Stop(context.Background())
}

func TestBuiltInServices(t *testing.T) {
	var checked bool
	startup := &funcStartup{
		configure: func(b *pipeline.Builder, env Environment, loggers logger.Factory, lt *lifetime.Notifier) error {
			p := b.Services()
			cfg := di.MustResolve[config.HostConfig](p, di.Keys.Config)
			if cfg.Name != "test-host" {
				t.Errorf("expected config name 'test-host', got %q", cfg.Name)
			}
			if got := di.MustResolve[Environment](p, di.Keys.Environment); got != env {
				t.Errorf("expected resolved environment to match argument")
			}
			if di.MustResolve[*lifetime.Notifier](p, di.Keys.Lifetime) != lt {
				t.Error("expected resolved notifier to match argument")
			}
			if di.MustResolve[*pipeline.Builder](p, di.Keys.PipelineBuilder) != b {
				t.Error("expected resolved builder to match argument")
			}
			if _, err := di.Resolve[*logger.Logger](p, di.Keys.Logger); err != nil {
				t.Errorf("expected logger built-in: %v", err)
			}
			if loggers.Get("orders") == nil {
				t.Error("expected logger factory to hand out loggers")
			}
			checked = true
			return nil
		},
	}
	h, _ := newTestHost(t, WithStartup(startup))
	if err := h.Configure(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !checked {
		t.Fatal("expected ConfigurePipeline to run")
	}
	_ = h.Stop(context.Background())
}

func TestStartupCanReplaceBuiltIn(t *testing.T) {
	custom := logger.NewRegistry(logger.Nop())
	var got logger.Factory
	startup := &funcStartup{
		register: func(reg *di.Registry) error {
			return reg.Replace(di.Keys.LoggerFactory, di.Instance, logger.Factory(custom))
		},
		configure: func(_ *pipeline.Builder, _ Environment, loggers logger.Factory, _ *lifetime.Notifier) error {
			got = loggers
			return nil
		},
	}
	h, _ := newTestHost(t, WithStartup(startup))
	if err := h.Configure(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got != logger.Factory(custom) {
		t.Error("expected the replaced logger factory to reach ConfigurePipeline")
	}
	_ = h.Stop(context.Background())
}

func TestDuplicateBuiltInRegistrationFailsConfigure(t *testing.T) {
	startup := &funcStartup{
		register: func(reg *di.Registry) error {
			return reg.AddInstance(di.Keys.Logger, logger.Nop())
		},
	}
	h, _ := newTestHost(t, WithStartup(startup))
	if err := h.Configure(context.Background()); !errors.Is(err, di.ErrDuplicateRegistration) {
		t.Fatalf("expected ErrDuplicateRegistration, got %v", err)
	}
}

// stopFixture configures a host whose pipeline builds a disposable singleton
// and counts lifecycle notifications.
type stopFixture struct {
	host              *Host
	signals           *ManualSignals
	stopping, stopped atomic.Int32
	svc               *counterService
}

func newStopFixture(t *testing.T) *stopFixture {
	f := &stopFixture{svc: &counterService{}}
	startup := &funcStartup{
		register: func(reg *di.Registry) error {
			return reg.AddSingleton("svc", func() *counterService { return f.svc })
		},
		configure: func(b *pipeline.Builder, _ Environment, _ logger.Factory, lt *lifetime.Notifier) error {
			lt.OnStopping(func() { f.stopping.Add(1) })
			lt.OnStopped(func() { f.stopped.Add(1) })
			_, err := b.Services().Resolve("svc")
			return err
		},
	}
	f.host, f.signals = newTestHost(t, WithStartup(startup))
	if err := f.host.Configure(context.Background()); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f *stopFixture) assertOnce(t *testing.T) {
	t.Helper()
	if f.stopping.Load() != 1 || f.stopped.Load() != 1 {
		t.Errorf("expected Stopping and Stopped once, got %d and %d", f.stopping.Load(), f.stopped.Load())
	}
	if f.svc.closed.Load() != 1 {
		t.Errorf("expected one disposal, got %d", f.svc.closed.Load())
	}
}

func TestStopTwiceSequential(t *testing.T) {
	f := newStopFixture(t)
	first := f.host.Stop(context.Background())
	second := f.host.Stop(context.Background())
	if first != nil || second != nil {
		t.Fatalf("expected clean stops, got %v and %v", first, second)
	}
	f.assertOnce(t)
}

func TestStopConcurrent(t *testing.T) {
	f := newStopFixture(t)
	errCh := runAsync(f.host, context.Background())
	waitFor(t, f.host.Lifetime().Started(), "Started")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.host.Stop(context.Background()); err != nil {
				t.Errorf("Stop failed: %v", err)
			}
			// Every caller returns only after teardown completed.
			if f.host.State() != StateStopped {
				t.Errorf("expected Stopped after Stop returned, got %s", f.host.State())
			}
		}()
	}
	wg.Wait()

	if err := waitErr(t, errCh); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	f.assertOnce(t)
}

func TestSignalAndStopRace(t *testing.T) {
	f := newStopFixture(t)
	errCh := runAsync(f.host, context.Background())
	waitFor(t, f.host.Lifetime().Started(), "Started")

	go f.signals.Send(syscall.SIGINT)
	_ = f.host.Stop(context.Background())

	if err := waitErr(t, errCh); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	f.assertOnce(t)
}

func TestRunAfterStop(t *testing.T) {
	f := newStopFixture(t)
	_ = f.host.Stop(context.Background())
	if err := f.host.Run(context.Background()); err != nil {
		t.Fatalf("expected Run after Stop to return the stop result, got %v", err)
	}
	f.assertOnce(t)
}

func TestRunTwice(t *testing.T) {
	f := newStopFixture(t)
	errCh := runAsync(f.host, context.Background())
	waitFor(t, f.host.Lifetime().Started(), "Started")

	if err := f.host.Run(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for a second Run, got %v", err)
	}
	f.signals.Send(syscall.SIGTERM)
	_ = waitErr(t, errCh)
}

func TestFailingPipelineStopsHost(t *testing.T) {
	svc := &counterService{}
	var stopped atomic.Bool
	startup := &funcStartup{
		register: func(reg *di.Registry) error {
			return reg.AddSingleton("svc", func() *counterService { return svc })
		},
		configure: func(b *pipeline.Builder, _ Environment, _ logger.Factory, lt *lifetime.Notifier) error {
			lt.OnStopped(func() { stopped.Store(true) })
			return b.Run(func(ctx context.Context) error {
				_, _ = b.Services().Resolve("svc")
				return errors.New("routes failed")
			})
		},
	}
	h, _ := newTestHost(t, WithStartup(startup))
	if err := h.Configure(context.Background()); err != nil {
		t.Fatal(err)
	}

	err := h.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "routes failed") {
		t.Fatalf("expected pipeline error, got %v", err)
	}
	if !stopped.Load() || svc.closed.Load() != 1 {
		t.Error("expected a failed run to tear the host down")
	}
	select {
	case <-h.Lifetime().Started():
		t.Error("expected Started not to fire")
	default:
	}
}

func TestStopApplicationFromPipeline(t *testing.T) {
	startup := &funcStartup{
		configure: func(b *pipeline.Builder, _ Environment, _ logger.Factory, lt *lifetime.Notifier) error {
			return b.UseFunc(func(ctx context.Context, next pipeline.Handler) error {
				lt.StopApplication()
				return next(ctx)
			})
		},
	}
	h, _ := newTestHost(t, WithStartup(startup))
	if err := h.Configure(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := waitErr(t, runAsync(h, context.Background())); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if h.State() != StateStopped {
		t.Errorf("expected Stopped, got %s", h.State())
	}
}

func TestContextCancellationStopsHost(t *testing.T) {
	h, _ := newTestHost(t, WithStartup(&funcStartup{}))
	if err := h.Configure(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := runAsync(h, ctx)
	waitFor(t, h.Lifetime().Started(), "Started")
	cancel()

	if err := waitErr(t, errCh); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	waitFor(t, h.Lifetime().Stopped(), "Stopped")
}

func TestSignalListenersReleased(t *testing.T) {
	h, sig := newTestHost(t, WithStartup(&funcStartup{}))
	_ = h.Configure(context.Background())
	errCh := runAsync(h, context.Background())
	waitFor(t, h.Lifetime().Started(), "Started")
	if sig.Listeners() != 1 {
		t.Errorf("expected one listener while running, got %d", sig.Listeners())
	}
	sig.Send(syscall.SIGINT)
	_ = waitErr(t, errCh)
	if sig.Listeners() != 0 {
		t.Errorf("expected listener to be released, got %d", sig.Listeners())
	}
}

// hostedComponent records its lifecycle into a shared recorder.
type hostedComponent struct {
	name   string
	rec    *recorder
	status component.HealthStatus
}

func (c *hostedComponent) Name() string { return c.name }
func (c *hostedComponent) Start(context.Context) error {
	c.rec.add("start:" + c.name)
	return nil
}
func (c *hostedComponent) Stop(context.Context) error {
	c.rec.add("stop:" + c.name)
	return nil
}
func (c *hostedComponent) Health(context.Context) component.Health {
	return component.Health{Name: c.name, Status: c.status}
}
func (c *hostedComponent) Describe() component.Description {
	return component.Description{Type: "worker", Details: "test"}
}

type disposable struct {
	name string
	rec  *recorder
}

func (d *disposable) Close(context.Context) error {
	d.rec.add("dispose:" + d.name)
	return nil
}

func TestHostedComponents(t *testing.T) {
	var rec recorder
	startup := &funcStartup{
		register: func(reg *di.Registry) error {
			if err := reg.AddSingleton("store", func() *disposable { return &disposable{name: "store", rec: &rec} }); err != nil {
				return err
			}
			if err := reg.AddComponent("web", func(p di.Provider) (*hostedComponent, error) {
				if _, err := p.Resolve("store"); err != nil {
					return nil, err
				}
				return &hostedComponent{name: "web", rec: &rec, status: component.StatusHealthy}, nil
			}); err != nil {
				return err
			}
			return reg.AddComponent("jobs", func() *hostedComponent {
				return &hostedComponent{name: "jobs", rec: &rec, status: component.StatusHealthy}
			})
		},
		configure: func(_ *pipeline.Builder, _ Environment, _ logger.Factory, lt *lifetime.Notifier) error {
			lt.OnStarted(func() { rec.add("started") })
			lt.OnStopping(func() { rec.add("stopping") })
			lt.OnStopped(func() { rec.add("stopped") })
			return nil
		},
	}
	var out bytes.Buffer
	h, sig := newTestHost(t, WithStartup(startup), WithSummaryOutput(&out))
	if err := h.ReadyCheck(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured from ReadyCheck, got %v", err)
	}
	if err := h.Configure(context.Background()); err != nil {
		t.Fatal(err)
	}

	errCh := runAsync(h, context.Background())
	waitFor(t, h.Lifetime().Started(), "Started")
	if err := h.ReadyCheck(context.Background()); err != nil {
		t.Errorf("expected ready host, got %v", err)
	}
	sig.Send(syscall.SIGTERM)
	if err := waitErr(t, errCh); err != nil {
		t.Fatal(err)
	}

	want := []string{"start:web", "start:jobs", "started", "stopping", "stop:jobs", "stop:web", "dispose:store", "stopped"}
	if got := rec.list(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
	if !strings.Contains(out.String(), "test-host") || !strings.Contains(out.String(), "web") {
		t.Errorf("expected printed summary, got %q", out.String())
	}
}

func TestComponentThatIsNotAComponent(t *testing.T) {
	startup := &funcStartup{
		register: func(reg *di.Registry) error {
			return reg.AddComponent("bogus", func() string { return "not a component" })
		},
	}
	h, _ := newTestHost(t, WithStartup(startup))
	if err := h.Configure(context.Background()); err != nil {
		t.Fatal(err)
	}
	err := h.Run(context.Background())
	if !errors.Is(err, di.ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if h.State() != StateStopped {
		t.Errorf("expected Stopped, got %s", h.State())
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	invalidConfig := apperrors.New(apperrors.ErrCodeInvalidConfig, "")

	_, err := New(config.HostConfig{}, WithLogger(logger.Nop()))
	if !errors.Is(err, invalidConfig) {
		t.Errorf("expected invalid config for missing name, got %v", err)
	}

	cfg := testConfig(t)
	cfg.ContentRoot = "/nonexistent/gohost"
	_, err = New(cfg, WithLogger(logger.Nop()))
	if !errors.Is(err, invalidConfig) {
		t.Errorf("expected invalid config for missing content root, got %v", err)
	}
}

func TestShutdownTimeoutOption(t *testing.T) {
	h, _ := newTestHost(t, WithShutdownTimeout(250*time.Millisecond))
	if h.cfg.ShutdownTimeout != 250*time.Millisecond {
		t.Errorf("expected option to override timeout, got %v", h.cfg.ShutdownTimeout)
	}
	if h.ID() == "" {
		t.Error("expected host id")
	}
}

func TestLifecycleMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	startup := &funcStartup{
		register: func(r *di.Registry) error {
			return r.AddTransient("t", func() int { return 1 })
		},
	}
	h, sig := newTestHost(t, WithStartup(startup), WithMetricsRegisterer(reg))
	if got := testutil.ToFloat64(h.metrics.State.WithLabelValues("test-host", "Unconfigured")); got != 1 {
		t.Errorf("expected Unconfigured gauge 1, got %v", got)
	}
	if err := h.Configure(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(h.metrics.Registrations.WithLabelValues("test-host", "transient")); got != 1 {
		t.Errorf("expected 1 transient registration, got %v", got)
	}
	if got := testutil.ToFloat64(h.metrics.Registrations.WithLabelValues("test-host", "instance")); got != 6 {
		t.Errorf("expected 6 built-in instances, got %v", got)
	}

	errCh := runAsync(h, context.Background())
	waitFor(t, h.Lifetime().Started(), "Started")
	sig.Send(syscall.SIGTERM)
	_ = waitErr(t, errCh)

	if got := testutil.ToFloat64(h.metrics.State.WithLabelValues("test-host", "Stopped")); got != 1 {
		t.Errorf("expected Stopped gauge 1, got %v", got)
	}
	if got := testutil.ToFloat64(h.metrics.State.WithLabelValues("test-host", "Running")); got != 0 {
		t.Errorf("expected Running gauge 0, got %v", got)
	}

	// A second host in the same process reuses the registered collectors.
	h2, _ := newTestHost(t, WithMetricsRegisterer(reg))
	if h2.metrics.State != h.metrics.State {
		t.Error("expected collectors to be reused")
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		StateUnconfigured: "Unconfigured",
		StateConfigured:   "Configured",
		StateRunning:      "Running",
		StateStopping:     "Stopping",
		StateStopped:      "Stopped",
		State(42):         "State(42)",
	} {
		if s.String() != want {
			t.Errorf("expected %q, got %q", want, s.String())
		}
	}
}

// blockingStartup returns a Startup whose terminal handler waits for its
// context to end. entered is closed once the handler is running.
func blockingStartup(entered chan struct{}, lt **lifetime.Notifier, rec *recorder) *funcStartup {
	return &funcStartup{
		configure: func(b *pipeline.Builder, _ Environment, _ logger.Factory, n *lifetime.Notifier) error {
			*lt = n
			n.OnStarted(func() { rec.add("started") })
			n.OnStopping(func() { rec.add("stopping") })
			n.OnStopped(func() { rec.add("stopped") })
			return b.Run(func(ctx context.Context) error {
				close(entered)
				<-ctx.Done()
				return ctx.Err()
			})
		},
	}
}

func TestShutdownDuringPipeline(t *testing.T) {
	tests := []struct {
		name    string
		request func(h *Host, sig *ManualSignals, lt *lifetime.Notifier)
	}{
		{"signal", func(_ *Host, sig *ManualSignals, _ *lifetime.Notifier) { sig.Send(syscall.SIGTERM) }},
		{"stop", func(h *Host, _ *ManualSignals, _ *lifetime.Notifier) { go func() { _ = h.Stop(context.Background()) }() }},
		{"stop application", func(_ *Host, _ *ManualSignals, lt *lifetime.Notifier) { lt.StopApplication() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				rec     recorder
				lt      *lifetime.Notifier
				entered = make(chan struct{})
			)
			h, sig := newTestHost(t, WithStartup(blockingStartup(entered, &lt, &rec)))
			if err := h.Configure(context.Background()); err != nil {
				t.Fatal(err)
			}
			errCh := runAsync(h, context.Background())
			waitFor(t, entered, "pipeline")

			tt.request(h, sig, lt)
			if err := waitErr(t, errCh); err != nil {
				t.Fatalf("expected clean shutdown, got %v", err)
			}
			if h.State() != StateStopped {
				t.Errorf("expected Stopped, got %s", h.State())
			}
			want := []string{"stopping", "stopped"}
			if got := rec.list(); strings.Join(got, ",") != strings.Join(want, ",") {
				t.Errorf("expected %v, got %v", want, got)
			}
		})
	}
}

// failingComponent fails to stop and records its Close.
type failingComponent struct {
	hostedComponent
	stopErr error
}

func (c *failingComponent) Stop(context.Context) error {
	c.rec.add("stop:" + c.name)
	return c.stopErr
}

func (c *failingComponent) Close() error {
	c.rec.add("close:" + c.name)
	return nil
}

type brokenDisposable struct {
	rec *recorder
	err error
}

func (d *brokenDisposable) Close() error {
	d.rec.add("dispose:broken")
	return d.err
}

func TestStopCompletesDespiteDisposalFailure(t *testing.T) {
	var rec recorder
	diskErr := errors.New("disk gone")
	drainErr := errors.New("drain failed")
	startup := &funcStartup{
		register: func(reg *di.Registry) error {
			if err := reg.AddSingleton("store", func() *disposable { return &disposable{name: "store", rec: &rec} }); err != nil {
				return err
			}
			if err := reg.AddSingleton("broken", func() *brokenDisposable { return &brokenDisposable{rec: &rec, err: diskErr} }); err != nil {
				return err
			}
			return reg.AddComponent("worker", func() *failingComponent {
				return &failingComponent{
					hostedComponent: hostedComponent{name: "worker", rec: &rec, status: component.StatusHealthy},
					stopErr:         drainErr,
				}
			})
		},
		configure: func(b *pipeline.Builder, _ Environment, _ logger.Factory, lt *lifetime.Notifier) error {
			lt.OnStopping(func() { rec.add("stopping") })
			lt.OnStopped(func() { rec.add("stopped") })
			return b.Run(func(context.Context) error {
				for _, key := range []string{"store", "broken"} {
					if _, err := b.Services().Resolve(key); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	h, sig := newTestHost(t, WithStartup(startup))
	if err := h.Configure(context.Background()); err != nil {
		t.Fatal(err)
	}
	errCh := runAsync(h, context.Background())
	waitFor(t, h.Lifetime().Started(), "Started")
	sig.Send(syscall.SIGTERM)

	err := waitErr(t, errCh)
	if !errors.Is(err, diskErr) || !errors.Is(err, drainErr) {
		t.Fatalf("expected both teardown errors joined, got %v", err)
	}
	if !errors.Is(err, di.ErrDisposalFailed) {
		t.Errorf("expected disposal failure code, got %v", err)
	}
	if stopErr := h.Stop(context.Background()); stopErr != err {
		t.Errorf("expected later Stop to return the first result, got %v", stopErr)
	}
	if h.State() != StateStopped {
		t.Errorf("expected Stopped, got %s", h.State())
	}

	// The component is closed after it was stopped, and the store is still
	// disposed after the broken singleton failed.
	want := []string{"start:worker", "stopping", "stop:worker", "close:worker", "dispose:broken", "dispose:store", "stopped"}
	if got := rec.list(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestConflictingMetricsRegistererRejected(t *testing.T) {
	tests := []struct {
		name      string
		collector prometheus.Collector
	}{
		{"different help", prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gohost_host_state",
			Help: "something else",
		})},
		{"different type", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gohost_host_state",
			Help: "Current host lifecycle state (1 for the active state)",
		}, []string{"application", "state"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			reg.MustRegister(tt.collector)

			h, err := New(testConfig(t), WithLogger(logger.Nop()), WithMetricsRegisterer(reg))
			if err == nil || h != nil {
				t.Fatalf("expected New to fail on a conflicting registerer, got %v", err)
			}
		})
	}
}
