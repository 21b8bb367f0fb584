package di

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	apperrors "github.com/kbukum/gohost/errors"
	"github.com/kbukum/gohost/logger"
)

// Provider resolves services by key. Constructors receive a Provider scoped to
// the resolution in progress so nested lookups are checked for cycles.
type Provider interface {
	Resolve(key string) (interface{}, error)
}

// Resolver is the frozen, resolution-capable form of a Registry.
type Resolver struct {
	registry *Registry
	log      *logger.Logger

	// buildMu serializes singleton construction across goroutines. A
	// resolution holds it from the first singleton it builds until that
	// singleton returns, so nested resolutions on the same chain do not
	// reacquire it.
	buildMu sync.Mutex

	mu        sync.RWMutex
	instances map[string]interface{}
	closed    bool

	closeOnce sync.Once
	closeErr  error
}

func newResolver(r *Registry) *Resolver {
	return &Resolver{
		registry:  r,
		log:       r.log,
		instances: make(map[string]interface{}),
	}
}

// Resolve returns the service bound to key. Singletons are constructed at most
// once; constructor failures are returned and not memoized, so a later
// Resolve retries.
func (r *Resolver) Resolve(key string) (interface{}, error) {
	return r.resolve(&resolution{resolver: r, state: &resolutionState{}}, key)
}

// Registrations returns the bindings of the underlying registry in
// registration order.
func (r *Resolver) Registrations() []Registration {
	return r.registry.Registrations()
}

// Constructed reports whether the singleton bound to key has been built.
func (r *Resolver) Constructed(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.instances[key]
	return ok
}

// Close disposes every singleton this resolver constructed that implements
// Close() error or Close(context.Context) error, in reverse registration
// order. A failing disposal is logged and the rest still run; all failures are
// returned joined. Close runs once; later calls return the first result.
// Resolve fails with ErrResolverClosed afterwards.
func (r *Resolver) Close(ctx context.Context) error {
	r.closeOnce.Do(func() {
		r.closeErr = r.dispose(ctx)
	})
	return r.closeErr
}

func (r *Resolver) dispose(ctx context.Context) error {
	// Wait for in-flight singleton builds so nothing is constructed after the
	// snapshot below.
	r.buildMu.Lock()
	r.mu.Lock()
	r.closed = true
	instances := r.instances
	r.mu.Unlock()
	r.buildMu.Unlock()

	order := r.registry.Registrations()
	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		key := order[i].Key
		instance, ok := instances[key]
		if !ok || order[i].Scope != Singleton {
			continue
		}

		start := time.Now()
		err := closeInstance(ctx, instance)
		if err == nil {
			continue
		}
		fields := logger.MergeWithError(logger.DurationFields("dispose", time.Since(start)), err)
		fields[logger.FieldKey] = key
		r.log.Error("Failed to dispose service", fields)
		errs = append(errs, apperrors.DisposalFailed(key, err))
	}

	if len(errs) == 0 {
		r.log.Debug("Resolver closed", map[string]interface{}{"disposed": len(instances)})
		return nil
	}
	return errors.Join(errs...)
}

func closeInstance(ctx context.Context, instance interface{}) error {
	switch c := instance.(type) {
	case interface{ Close(context.Context) error }:
		return c.Close(ctx)
	case interface{ Close() error }:
		return c.Close()
	default:
		return nil
	}
}

// resolutionState is shared by every frame of one top-level resolution. It
// is only touched by the goroutine performing that resolution.
type resolutionState struct {
	holdsBuildLock bool
}

// resolution is the Provider handed to constructors. It remembers the chain of
// keys being constructed.
type resolution struct {
	resolver *Resolver
	chain    []string
	state    *resolutionState
}

func (s *resolution) Resolve(key string) (interface{}, error) {
	return s.resolver.resolve(s, key)
}

func (s *resolution) child(key string) *resolution {
	chain := make([]string, len(s.chain), len(s.chain)+1)
	copy(chain, s.chain)
	return &resolution{resolver: s.resolver, chain: append(chain, key), state: s.state}
}

func (r *Resolver) resolve(s *resolution, key string) (interface{}, error) {
	if r.isClosed() {
		return nil, apperrors.ResolverClosed(key)
	}

	b, ok := r.registry.lookup(key)
	if !ok {
		return nil, apperrors.UnresolvedCapability(key)
	}

	for _, k := range s.chain {
		if k == key {
			return nil, apperrors.CyclicDependency(append(append([]string{}, s.chain...), key))
		}
	}

	switch b.scope {
	case Instance:
		return b.instance, nil
	case Transient:
		return construct(s.child(key), b)
	}

	if instance, ok := r.cached(key); ok {
		return instance, nil
	}

	if !s.state.holdsBuildLock {
		r.buildMu.Lock()
		s.state.holdsBuildLock = true
		defer func() {
			s.state.holdsBuildLock = false
			r.buildMu.Unlock()
		}()

		// Another goroutine may have finished the build while we waited.
		if instance, ok := r.cached(key); ok {
			return instance, nil
		}
		if r.isClosed() {
			return nil, apperrors.ResolverClosed(key)
		}
	}

	instance, err := construct(s.child(key), b)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.instances[key] = instance
	r.mu.Unlock()
	return instance, nil
}

func (r *Resolver) cached(key string) (interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	instance, ok := r.instances[key]
	return instance, ok
}

func (r *Resolver) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

func construct(s *resolution, b *binding) (interface{}, error) {
	var args []reflect.Value
	if b.constructor.Type().NumIn() == 1 {
		args = []reflect.Value{reflect.ValueOf(Provider(s))}
	}

	results := b.constructor.Call(args)
	if len(results) == 2 && !results[1].IsNil() {
		err := results[1].Interface().(error)
		// Keep the innermost cycle report intact rather than wrapping it once
		// per frame.
		if errors.Is(err, ErrCyclicDependency) {
			return nil, err
		}
		return nil, apperrors.ConstructionFailed(b.key, err)
	}
	return results[0].Interface(), nil
}
