package pipeline

import "sync"

// Properties is a concurrency-safe key/value bag.
type Properties struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

// NewProperties creates an empty bag.
func NewProperties() *Properties {
	return &Properties{values: make(map[string]interface{})}
}

// Set stores value under key.
func (p *Properties) Set(key string, value interface{}) {
	p.mu.Lock()
	p.values[key] = value
	p.mu.Unlock()
}

// Get returns the value stored under key.
func (p *Properties) Get(key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[key]
	return v, ok
}

// Delete removes key.
func (p *Properties) Delete(key string) {
	p.mu.Lock()
	delete(p.values, key)
	p.mu.Unlock()
}

// Keys returns every stored key.
func (p *Properties) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	return keys
}
