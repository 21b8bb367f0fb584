package di

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	apperrors "github.com/kbukum/gohost/errors"
	"github.com/kbukum/gohost/logger"
)

// Sentinel errors for errors.Is matching. Errors returned by the registry and
// resolver carry the key and chain as details and still match these.
var (
	ErrDuplicateRegistration = apperrors.New(apperrors.ErrCodeDuplicateRegistration, "duplicate registration")
	ErrRegistryFrozen        = apperrors.New(apperrors.ErrCodeRegistryFrozen, "registry is frozen")
	ErrUnresolvedCapability  = apperrors.New(apperrors.ErrCodeUnresolvedCapability, "unresolved capability")
	ErrCyclicDependency      = apperrors.New(apperrors.ErrCodeCyclicDependency, "cyclic dependency")
	ErrConstructionFailed    = apperrors.New(apperrors.ErrCodeConstructionFailed, "construction failed")
	ErrInvalidConstructor    = apperrors.New(apperrors.ErrCodeInvalidConstructor, "invalid constructor")
	ErrTypeMismatch          = apperrors.New(apperrors.ErrCodeTypeMismatch, "type mismatch")
	ErrResolverClosed        = apperrors.New(apperrors.ErrCodeResolverClosed, "resolver is closed")
	ErrDisposalFailed        = apperrors.New(apperrors.ErrCodeDisposalFailed, "disposal failed")
)

// Scope determines how long a resolved service lives.
type Scope int

const (
	Singleton Scope = iota // Built on first resolve, shared for the resolver's life
	Transient              // Built on every resolve
	Instance               // Pre-built by the caller, never disposed by the resolver
)

// String returns the scope name.
func (s Scope) String() string {
	switch s {
	case Singleton:
		return "singleton"
	case Transient:
		return "transient"
	case Instance:
		return "instance"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// Registration describes a binding for introspection.
type Registration struct {
	Key       string
	Scope     Scope
	Component bool // Started and stopped by the host
}

type binding struct {
	key         string
	scope       Scope
	constructor reflect.Value
	instance    interface{}
	component   bool
}

// Registry is the ordered, mutable collection of bindings. It is frozen by
// Build. All methods are safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	bindings map[string]*binding
	order    []string
	resolver *Resolver
	log      *logger.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger the resolver reports disposal through.
func WithLogger(l *logger.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		bindings: make(map[string]*binding),
		log:      logger.WithComponent("di"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds key to target under scope. For Instance, target is the
// instance itself; otherwise it must be a constructor of one of the forms
//
//	func(di.Provider) (T, error)
//	func(di.Provider) T
//	func() (T, error)
//	func() T
//
// A key that is already bound is rejected with ErrDuplicateRegistration and
// the first binding stays.
func (r *Registry) Register(key string, scope Scope, target interface{}) error {
	b, err := newBinding(key, scope, target)
	if err != nil {
		return err
	}
	return r.add(b, false)
}

// AddSingleton registers a constructor whose result is shared.
func (r *Registry) AddSingleton(key string, constructor interface{}) error {
	return r.Register(key, Singleton, constructor)
}

// AddTransient registers a constructor invoked on every resolution.
func (r *Registry) AddTransient(key string, constructor interface{}) error {
	return r.Register(key, Transient, constructor)
}

// AddInstance registers a pre-built instance. The caller keeps ownership.
func (r *Registry) AddInstance(key string, instance interface{}) error {
	return r.Register(key, Instance, instance)
}

// AddComponent registers a singleton that the host starts after the pipeline
// runs and stops before the resolver is closed. The constructed instance must
// implement component.Component.
//
// A component is still a disposable singleton: if it also has a Close method,
// the resolver calls Close after the host called Stop. Close must therefore
// tolerate a stopped component.
func (r *Registry) AddComponent(key string, constructor interface{}) error {
	b, err := newBinding(key, Singleton, constructor)
	if err != nil {
		return err
	}
	b.component = true
	return r.add(b, false)
}

// Replace binds key like Register but overwrites an existing binding in
// place, keeping its position in the registration order.
func (r *Registry) Replace(key string, scope Scope, target interface{}) error {
	b, err := newBinding(key, scope, target)
	if err != nil {
		return err
	}
	return r.add(b, true)
}

// Has reports whether key is bound.
func (r *Registry) Has(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.bindings[key]
	return ok
}

// Registrations returns every binding in registration order.
func (r *Registry) Registrations() []Registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registrationsLocked()
}

// Build freezes the registry and returns its resolver. Later calls return the
// same resolver.
func (r *Registry) Build() *Resolver {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolver == nil {
		r.resolver = newResolver(r)
	}
	return r.resolver
}

func (r *Registry) add(b *binding, replace bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolver != nil {
		return apperrors.RegistryFrozen(b.key)
	}
	if _, exists := r.bindings[b.key]; exists {
		if !replace {
			return apperrors.DuplicateRegistration(b.key)
		}
		r.bindings[b.key] = b
		return nil
	}
	r.bindings[b.key] = b
	r.order = append(r.order, b.key)
	return nil
}

func (r *Registry) registrationsLocked() []Registration {
	out := make([]Registration, 0, len(r.order))
	for _, key := range r.order {
		b := r.bindings[key]
		out = append(out, Registration{Key: key, Scope: b.scope, Component: b.component})
	}
	return out
}

// lookup is only called after Build, when bindings no longer change.
func (r *Registry) lookup(key string) (*binding, bool) {
	b, ok := r.bindings[key]
	return b, ok
}

var (
	providerType = reflect.TypeOf((*Provider)(nil)).Elem()
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
	contextType  = reflect.TypeOf((*context.Context)(nil)).Elem()
)

func newBinding(key string, scope Scope, target interface{}) (*binding, error) {
	if key == "" {
		return nil, apperrors.InvalidConstructor(key, "key must not be empty")
	}

	switch scope {
	case Instance:
		if target == nil {
			return nil, apperrors.InvalidConstructor(key, "instance must not be nil")
		}
		return &binding{key: key, scope: scope, instance: target}, nil
	case Singleton, Transient:
	default:
		return nil, apperrors.InvalidConstructor(key, fmt.Sprintf("unknown scope %s", scope))
	}

	fn := reflect.ValueOf(target)
	if fn.Kind() != reflect.Func {
		return nil, apperrors.InvalidConstructor(key, "constructor must be a function")
	}

	fnType := fn.Type()
	switch fnType.NumIn() {
	case 0:
	case 1:
		if fnType.In(0) != providerType {
			if fnType.In(0) == contextType {
				return nil, apperrors.InvalidConstructor(key, "constructors receive a di.Provider, not a context.Context")
			}
			return nil, apperrors.InvalidConstructor(key, "the only parameter must be a di.Provider")
		}
	default:
		return nil, apperrors.InvalidConstructor(key, "constructor takes at most one parameter")
	}

	switch fnType.NumOut() {
	case 1:
	case 2:
		if fnType.Out(1) != errorType {
			return nil, apperrors.InvalidConstructor(key, "second result must be an error")
		}
	default:
		return nil, apperrors.InvalidConstructor(key, "constructor must return either (instance) or (instance, error)")
	}

	return &binding{key: key, scope: scope, constructor: fn}, nil
}
