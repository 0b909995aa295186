package check

import (
	"fmt"
	"sync"
)

// Registry holds the checkers known to a run, in registration order.
// It is built once at startup and read concurrently afterwards.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	checkers map[string]Checker
}

func NewRegistry() *Registry {
	return &Registry{checkers: make(map[string]Checker)}
}

// Register adds a Checker. It panics if the category is already registered.
func (r *Registry) Register(c Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Category()
	if _, exists := r.checkers[name]; exists {
		panic(fmt.Sprintf("checker already registered: %s", name))
	}
	r.checkers[name] = c
	r.order = append(r.order, name)
}

// Get retrieves a Checker by category name.
func (r *Registry) Get(name string) (Checker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.checkers[name]
	return c, ok
}

// Categories returns the registered category names in registration order.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns the registered checkers in registration order.
func (r *Registry) All() []Checker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Checker, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.checkers[name])
	}
	return out
}
