package hosting

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kbukum/gohost/di"
	"github.com/kbukum/gohost/observability"
)

// hostMetrics tracks host lifecycle Prometheus metrics.
//
// All metrics use the gohost_host_ prefix and carry the application name so
// several hosts can share one registry.
type hostMetrics struct {
	app string

	// State is 1 for the host's current state and 0 for every other state.
	State *prometheus.GaugeVec

	// StartupSeconds is the time from Run until Started fired.
	StartupSeconds *prometheus.GaugeVec

	// ShutdownSeconds is the duration of the last teardown.
	ShutdownSeconds *prometheus.GaugeVec

	// Registrations counts service bindings by scope.
	Registrations *prometheus.GaugeVec
}

// newHostMetrics creates host metrics registered with reg. A nil registerer
// disables metrics; every method is safe on a nil receiver.
func newHostMetrics(reg prometheus.Registerer, app string) (*hostMetrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &hostMetrics{
		app: app,
		State: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gohost_host_state",
				Help: "Current host lifecycle state (1 for the active state)",
			},
			[]string{"application", "state"},
		),
		StartupSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gohost_host_startup_seconds",
				Help: "Time from Run until the host reported Started",
			},
			[]string{"application"},
		),
		ShutdownSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gohost_host_shutdown_seconds",
				Help: "Duration of the host teardown",
			},
			[]string{"application"},
		),
		Registrations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gohost_host_registrations",
				Help: "Service registrations by scope",
			},
			[]string{"application", "scope"},
		),
	}

	for _, vec := range []**prometheus.GaugeVec{&m.State, &m.StartupSeconds, &m.ShutdownSeconds, &m.Registrations} {
		registered, err := observability.RegisterCollector(reg, *vec)
		if err != nil {
			return nil, fmt.Errorf("register host metrics: %w", err)
		}
		*vec = registered
	}
	return m, nil
}

func (m *hostMetrics) setState(s State) {
	if m == nil {
		return
	}
	for _, candidate := range allStates {
		v := 0.0
		if candidate == s {
			v = 1
		}
		m.State.WithLabelValues(m.app, candidate.String()).Set(v)
	}
}

func (m *hostMetrics) observeStartup(d time.Duration) {
	if m == nil {
		return
	}
	m.StartupSeconds.WithLabelValues(m.app).Set(d.Seconds())
}

func (m *hostMetrics) observeShutdown(d time.Duration) {
	if m == nil {
		return
	}
	m.ShutdownSeconds.WithLabelValues(m.app).Set(d.Seconds())
}

func (m *hostMetrics) observeRegistrations(regs []di.Registration) {
	if m == nil {
		return
	}
	counts := map[di.Scope]int{di.Singleton: 0, di.Transient: 0, di.Instance: 0}
	for _, r := range regs {
		counts[r.Scope]++
	}
	for scope, n := range counts {
		m.Registrations.WithLabelValues(m.app, scope.String()).Set(float64(n))
	}
}
