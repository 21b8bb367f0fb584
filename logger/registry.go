package logger

import (
	"sync"
)

// Factory hands out named loggers. The host passes a Factory to the Startup so
// user code can obtain component loggers without reaching for the global one.
type Factory interface {
	// Get returns the logger registered under name, or the root logger tagged
	// with name as its component.
	Get(name string) *Logger
}

// Registry is the default Factory: a concurrency-safe cache of named loggers
// derived from a root logger.
type Registry struct {
	root    *Logger
	mu      sync.RWMutex
	loggers map[string]*Logger
}

// NewRegistry creates a Registry whose unnamed loggers derive from root.
func NewRegistry(root *Logger) *Registry {
	return &Registry{
		root:    root,
		loggers: make(map[string]*Logger),
	}
}

// Root returns the logger every derived logger is built from.
func (r *Registry) Root() *Logger {
	return r.root
}

// Register stores a named logger in the registry, replacing any previous one.
func (r *Registry) Register(name string, l *Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loggers[name] = l
}

// Get retrieves a named logger. Unknown names get the root logger tagged with
// the requested component name; the result is cached.
func (r *Registry) Get(name string) *Logger {
	r.mu.RLock()
	l, ok := r.loggers[name]
	r.mu.RUnlock()
	if ok {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.loggers[name]; ok {
		return l
	}
	l = r.root.WithComponent(name)
	r.loggers[name] = l
	return l
}

// Names returns the names of every cached logger.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.loggers))
	for name := range r.loggers {
		names = append(names, name)
	}
	return names
}

// Get returns a component logger derived from the global logger.
func Get(name string) *Logger {
	return GetGlobalLogger().WithComponent(name)
}
