package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/kbukum/gohost/errors"
	"github.com/kbukum/gohost/logger"
)

// componentEntry holds a component and its started state.
type componentEntry struct {
	component Component
	started   bool
}

// Registry manages component lifecycle with deterministic ordering.
// Components are started in registration order and stopped in reverse order.
type Registry struct {
	entries     []*componentEntry
	lookup      map[string]*componentEntry
	stopTimeout time.Duration
	log         *logger.Logger
	mu          sync.RWMutex
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry's logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithStopTimeout bounds each component's Stop call. Zero leaves only the
// caller's context deadline.
func WithStopTimeout(d time.Duration) Option {
	return func(r *Registry) { r.stopTimeout = d }
}

// NewRegistry creates a new component registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: make([]*componentEntry, 0),
		lookup:  make(map[string]*componentEntry),
		log:     logger.WithComponent("component"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a component to the registry. Components are started in
// the order they are registered, so register dependencies first.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, exists := r.lookup[name]; exists {
		return apperrors.DuplicateRegistration(name)
	}

	entry := &componentEntry{component: c}
	r.entries = append(r.entries, entry)
	r.lookup[name] = entry

	r.log.Debug("Component registered", map[string]interface{}{
		logger.FieldComponent: name,
	})
	return nil
}

// StartAll starts all components in registration order. It stops at the
// first failure; components started before it stay started so StopAll can
// release them.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) == 0 {
		return nil
	}
	r.log.Info("Starting hosted components", map[string]interface{}{
		"count": len(r.entries),
	})

	for _, entry := range r.entries {
		if entry.started {
			continue
		}
		name := entry.component.Name()

		r.log.Debug("Starting component", map[string]interface{}{logger.FieldComponent: name})
		if err := entry.component.Start(ctx); err != nil {
			r.log.Error("Component start failed", map[string]interface{}{
				logger.FieldComponent: name,
				logger.FieldError:     err.Error(),
			})
			return fmt.Errorf("failed to start %s: %w", name, err)
		}

		entry.started = true
		r.log.Debug("Component started", map[string]interface{}{logger.FieldComponent: name})
	}
	return nil
}

// StopAll gracefully stops all started components in reverse registration
// order. Every component is stopped even if an earlier one fails; the
// failures are returned joined.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]
		if !entry.started {
			continue
		}

		name := entry.component.Name()
		r.log.Debug("Stopping component", map[string]interface{}{logger.FieldComponent: name})

		stopCtx, cancel := ctx, context.CancelFunc(func() {})
		if r.stopTimeout > 0 {
			stopCtx, cancel = context.WithTimeout(ctx, r.stopTimeout)
		}
		if err := entry.component.Stop(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", name, err))
			r.log.Error("Component stop failed", map[string]interface{}{
				logger.FieldComponent: name,
				logger.FieldError:     err.Error(),
			})
		} else {
			r.log.Info("Component stopped", map[string]interface{}{logger.FieldComponent: name})
		}
		entry.started = false
		cancel()
	}

	return errors.Join(errs...)
}

// HealthAll returns health status for all registered components.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]Health, 0, len(r.entries))
	for _, entry := range r.entries {
		h := entry.component.Health(ctx)
		if h.Name == "" {
			h.Name = entry.component.Name()
		}
		results = append(results, h)
	}
	return results
}

// Ready returns nil when every component is started and not unhealthy.
func (r *Registry) Ready(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, entry := range r.entries {
		name := entry.component.Name()
		if !entry.started {
			errs = append(errs, fmt.Errorf("%s: not started", name))
			continue
		}
		if h := entry.component.Health(ctx); h.Status == StatusUnhealthy {
			errs = append(errs, fmt.Errorf("%s: %s", name, h.Message))
		}
	}
	return errors.Join(errs...)
}

// Get returns a registered component by name, or nil if not found.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, exists := r.lookup[name]; exists {
		return entry.component
	}
	return nil
}

// All returns all registered components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Component, 0, len(r.entries))
	for _, entry := range r.entries {
		result = append(result, entry.component)
	}
	return result
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
