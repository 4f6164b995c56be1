package grib

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vk/gribdef/internal/codes"
)

// Constructor builds a fresh, uninitialised accessor of one class.
type Constructor func() Accessor

// Registry maps accessor class names to constructors. It is safe for
// concurrent use; classes normally register themselves from init functions
// into the default registry.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]Constructor)}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry classes register into.
func DefaultRegistry() *Registry { return defaultRegistry }

// Register adds a class to the default registry.
func Register(class string, ctor Constructor) { defaultRegistry.Register(class, ctor) }

// Register adds a class. Registering a name twice is a programming error.
func (r *Registry) Register(class string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctor == nil {
		panic("grib: Register constructor is nil for class " + class)
	}
	if _, dup := r.classes[class]; dup {
		panic("grib: Register called twice for class " + class)
	}
	r.classes[class] = ctor
}

// New builds an accessor of the named class with its Base bound.
func (r *Registry) New(class string) (Accessor, error) {
	r.mu.RLock()
	ctor, ok := r.classes[class]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unable to create class %s: %w", class, codes.ErrInternal)
	}
	a := ctor()
	b := a.Core()
	b.Class = class
	b.Bind(a)
	return a, nil
}

// Has reports whether class is registered.
func (r *Registry) Has(class string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.classes[class]
	return ok
}

// Classes lists the registered class names in sorted order.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.classes))
	for n := range r.classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
