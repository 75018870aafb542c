package manager

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps connection handles to owned managers. Creation and
// destruction are explicit lifecycle calls; a lookup never creates.
type Registry struct {
	mu       sync.Mutex
	managers map[string]*Manager
}

func NewRegistry() *Registry {
	return &Registry{managers: make(map[string]*Manager)}
}

// Create registers a new manager under the handle. The handle must be
// unused.
func (r *Registry) Create(handle string) (*Manager, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.managers[handle]; ok {
		return nil, fmt.Errorf("connection %q already exists", handle)
	}
	m := New(handle)
	r.managers[handle] = m
	return m, nil
}

// Get returns the manager for a handle, if registered.
func (r *Registry) Get(handle string) (*Manager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.managers[handle]
	return m, ok
}

// Remove disconnects and unregisters a manager. Removing an unknown
// handle is a no-op.
func (r *Registry) Remove(handle string) {
	r.mu.Lock()
	m := r.managers[handle]
	delete(r.managers, handle)
	r.mu.Unlock()

	if m != nil {
		m.Disconnect()
	}
}

// Handles returns the registered handles, sorted.
func (r *Registry) Handles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.managers))
	for h := range r.managers {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// Shutdown disconnects and removes every manager.
func (r *Registry) Shutdown() {
	for _, h := range r.Handles() {
		r.Remove(h)
	}
}
