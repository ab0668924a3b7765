package child

import "sync"

// Registry records which windows already have a component attached. At most one
// child may be attached per window.
type Registry struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{active: make(map[string]struct{})}
}

// TryRegister marks contextID as attached. It returns false if it already was.
func (r *Registry) TryRegister(contextID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.active[contextID]; exists {
		return false
	}
	r.active[contextID] = struct{}{}
	return true
}

// Active reports whether contextID has a component attached
func (r *Registry) Active(contextID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.active[contextID]
	return exists
}

// Release forgets contextID, for hosts that reuse window ids
func (r *Registry) Release(contextID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.active, contextID)
}
