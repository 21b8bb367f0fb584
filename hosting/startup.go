package hosting

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/kbukum/gohost/di"
	apperrors "github.com/kbukum/gohost/errors"
	"github.com/kbukum/gohost/lifetime"
	"github.com/kbukum/gohost/logger"
	"github.com/kbukum/gohost/pipeline"
)

// Sentinel errors for errors.Is matching.
var (
	ErrStartupNotFound     = apperrors.StartupNotFound()
	ErrStartupConstruction = apperrors.New(apperrors.ErrCodeStartupConstruction, "startup cannot be constructed")
	ErrAmbiguousStartup    = apperrors.New(apperrors.ErrCodeAmbiguousStartup, "ambiguous startup")
)

// Startup is the application's configuration unit. The host calls
// RegisterServices, builds the resolver, then calls ConfigurePipeline.
type Startup interface {
	// RegisterServices adds the application's bindings to the registry.
	RegisterServices(reg *di.Registry) error

	// ConfigurePipeline adds middleware and the terminal handler. Services are
	// available through b.Services().
	ConfigurePipeline(b *pipeline.Builder, env Environment, loggers logger.Factory, lt *lifetime.Notifier) error
}

var (
	startupsMu sync.RWMutex
	startups   = make(map[string]interface{})
)

// RegisterStartup makes a Startup constructor available by name. It is meant
// to be called from an init function, like database/sql drivers:
//
//	func init() {
//	    hosting.RegisterStartup("orders", NewStartup)
//	}
//
// The constructor is one of
//
//	func(hosting.Environment) (S, error)
//	func(hosting.Environment) S
//	func() (S, error)
//	func() S
//
// where S implements Startup. RegisterStartup panics if name is registered
// twice or constructor is nil.
func RegisterStartup(name string, constructor interface{}) {
	startupsMu.Lock()
	defer startupsMu.Unlock()
	if constructor == nil {
		panic("hosting: RegisterStartup constructor is nil")
	}
	if _, dup := startups[name]; dup {
		panic("hosting: RegisterStartup called twice for " + name)
	}
	startups[name] = constructor
}

// Startups returns the sorted names of the registered Startups.
func Startups() []string {
	startupsMu.RLock()
	defer startupsMu.RUnlock()
	names := make([]string, 0, len(startups))
	for name := range startups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupStartup(name string) (interface{}, bool) {
	startupsMu.RLock()
	defer startupsMu.RUnlock()
	c, ok := startups[name]
	return c, ok
}

// selectStartup picks the Startup to run: an explicit instance, then an
// explicit constructor, then a registered constructor chosen by name or by
// being the only one.
func selectStartup(o *hostOptions, env Environment) (Startup, string, error) {
	if o.startup != nil {
		return o.startup, fmt.Sprintf("%T", o.startup), nil
	}
	if o.startupConstructor != nil {
		s, err := constructStartup("constructor", o.startupConstructor, env)
		return s, "constructor", err
	}

	name := o.startupName
	if name == "" {
		names := Startups()
		switch len(names) {
		case 0:
			return nil, "", apperrors.StartupNotFound()
		case 1:
			name = names[0]
		default:
			return nil, "", apperrors.AmbiguousStartup(names)
		}
	}

	ctor, ok := lookupStartup(name)
	if !ok {
		return nil, name, apperrors.StartupNotFound().WithDetail("startup", name)
	}
	s, err := constructStartup(name, ctor, env)
	return s, name, err
}

var (
	startupType     = reflect.TypeOf((*Startup)(nil)).Elem()
	environmentType = reflect.TypeOf(Environment{})
	errorType       = reflect.TypeOf((*error)(nil)).Elem()
)

// constructStartup invokes a constructor of one of the supported forms.
// Constructors taking the Environment are preferred: a Startup that wants to
// read environment-specific settings gets them at construction time.
func constructStartup(name string, constructor interface{}, env Environment) (Startup, error) {
	fn := reflect.ValueOf(constructor)
	if fn.Kind() != reflect.Func {
		if s, ok := constructor.(Startup); ok {
			return s, nil
		}
		return nil, apperrors.StartupConstruction(name, fmt.Sprintf("%T is neither a Startup nor a constructor", constructor))
	}

	fnType := fn.Type()
	var args []reflect.Value
	switch {
	case fnType.NumIn() == 1 && fnType.In(0) == environmentType:
		args = []reflect.Value{reflect.ValueOf(env)}
	case fnType.NumIn() == 0:
	default:
		return nil, apperrors.StartupConstruction(name, "constructor must take no arguments or a hosting.Environment")
	}

	switch fnType.NumOut() {
	case 1:
	case 2:
		if fnType.Out(1) != errorType {
			return nil, apperrors.StartupConstruction(name, "second result must be an error")
		}
	default:
		return nil, apperrors.StartupConstruction(name, "constructor must return (Startup) or (Startup, error)")
	}
	if !fnType.Out(0).Implements(startupType) {
		return nil, apperrors.StartupConstruction(name, fmt.Sprintf("%s does not implement hosting.Startup", fnType.Out(0)))
	}

	results := fn.Call(args)
	if len(results) == 2 && !results[1].IsNil() {
		return nil, apperrors.StartupConstruction(name, "constructor failed").WithCause(results[1].Interface().(error))
	}
	s, _ := results[0].Interface().(Startup)
	if s == nil || isNilPointer(results[0]) {
		return nil, apperrors.StartupConstruction(name, "constructor returned nil")
	}
	return s, nil
}

func isNilPointer(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func:
		return v.IsNil()
	}
	return false
}
