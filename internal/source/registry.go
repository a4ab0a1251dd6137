// internal/source/registry.go
package source

import (
	"fmt"
	"sort"
	"sync"
)

// Registry resolves a source name to its adapter. Populated once at
// startup; reads are concurrent during request handling.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(a Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := a.Name()
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("source %q already registered", name)
	}
	r.adapters[name] = a
	return nil
}

// Get returns the adapter for name, or false when no such source is
// registered. Callers drop unknown names rather than failing a request.
func (r *Registry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	return a, ok
}

// Names returns all registered source names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Category returns the capability category of a registered source, or
// empty string for unknown sources.
func (r *Registry) Category(name string) string {
	if a, ok := r.Get(name); ok {
		return a.Capabilities().Category
	}
	return ""
}
