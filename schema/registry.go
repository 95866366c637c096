package schema

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Registry holds the entity descriptors known to the process.
//
// Descriptors are registered during start-up. The first Describe seals the
// registry; any later Register fails with ErrRegistrySealed.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Descriptor
	order  []string
	sealed atomic.Bool
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Descriptor),
	}
}

// Register validates and adds a descriptor.
func (r *Registry) Register(d Descriptor) error {
	if r.sealed.Load() {
		return fmt.Errorf("%w: cannot register %q", ErrRegistrySealed, d.Name)
	}
	if err := Validate(d); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under the lock; a concurrent Describe may have sealed it.
	if r.sealed.Load() {
		return fmt.Errorf("%w: cannot register %q", ErrRegistrySealed, d.Name)
	}
	if _, exists := r.byName[d.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateEntity, d.Name)
	}
	r.byName[d.Name] = d.clone()
	r.order = append(r.order, d.Name)
	return nil
}

// MustRegister is like Register but panics on error. Intended for init-time wiring.
func (r *Registry) MustRegister(ds ...Descriptor) {
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
}

// Describe returns a copy of the named descriptor and seals the registry.
func (r *Registry) Describe(name string) (*Descriptor, error) {
	r.sealed.Store(true)

	r.mu.RLock()
	d, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, name)
	}
	return d.clone(), nil
}

// Entities returns the registered entity names in registration order.
func (r *Registry) Entities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Sealed reports whether the registry accepts no more registrations.
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// Validate checks a descriptor for structural problems.
func Validate(d Descriptor) error {
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s: %s failed %q", ErrInvalidDescriptor, d.Name, verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %s: %v", ErrInvalidDescriptor, d.Name, err)
	}

	seen := make(map[string]bool, len(d.Indexes))
	for _, idx := range d.Indexes {
		if seen[idx.Name] {
			return fmt.Errorf("%w: %s: duplicate index %q", ErrInvalidDescriptor, d.Name, idx.Name)
		}
		seen[idx.Name] = true
	}
	for _, s := range d.SparseMaps {
		if d.IsKeyAttribute(s) {
			return fmt.Errorf("%w: %s: key attribute %q cannot be a sparse map", ErrInvalidDescriptor, d.Name, s)
		}
	}
	return nil
}
