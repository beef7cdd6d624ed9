package plugins

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-operatorio/pkg/form"
)

var (
	// ErrDuplicate is returned when a name is registered twice.
	ErrDuplicate = errors.New("plugins: already registered")
	// ErrNotFound is returned for unknown plugin names.
	ErrNotFound = errors.New("plugins: not found")
	// ErrInactive is returned when the activator rejects the context.
	ErrInactive = errors.New("plugins: inactive in this context")
	// ErrInvalidDescriptor is returned for incomplete registrations.
	ErrInvalidDescriptor = errors.New("plugins: invalid descriptor")
)

// Registry holds plugin descriptors in registration order.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]Descriptor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Descriptor)}
}

// Register validates and stores a descriptor.
func (r *Registry) Register(desc Descriptor) error {
	desc.Name = strings.TrimSpace(desc.Name)
	switch {
	case desc.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidDescriptor)
	case desc.Component == nil:
		return fmt.Errorf("%w: %q has no component", ErrInvalidDescriptor, desc.Name)
	case desc.Type != Panel && desc.Type != Component:
		return fmt.Errorf("%w: %q has unknown type %q", ErrInvalidDescriptor, desc.Name, desc.Type)
	}
	if desc.Label == "" {
		desc.Label = desc.Name
	}
	if desc.Activator == nil {
		desc.Activator = AlwaysActive
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[desc.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicate, desc.Name)
	}
	r.entries[desc.Name] = desc
	r.order = append(r.order, desc.Name)
	return nil
}

// MustRegister panics on registration failure.
func (r *Registry) MustRegister(desc Descriptor) {
	if err := r.Register(desc); err != nil {
		panic(err)
	}
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.entries[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return desc, nil
}

// List returns all descriptors in registration order.
func (r *Registry) List() []Descriptor {
	return r.filter(func(Descriptor) bool { return true })
}

// ByType returns the descriptors of one component type.
func (r *Registry) ByType(t ComponentType) []Descriptor {
	return r.filter(func(d Descriptor) bool { return d.Type == t })
}

// Active returns the descriptors of type t whose activator accepts actx.
func (r *Registry) Active(actx ActivationContext, t ComponentType) []Descriptor {
	return r.filter(func(d Descriptor) bool { return d.Type == t && d.Active(actx) })
}

// Render looks up name, checks activation and invokes the plugin.
func (r *Registry) Render(ctx context.Context, name string, actx ActivationContext, props Props) (form.Output, error) {
	desc, err := r.Get(name)
	if err != nil {
		return form.Output{}, err
	}
	if !desc.Active(actx) {
		return form.Output{}, fmt.Errorf("%w: %q", ErrInactive, name)
	}
	return desc.Component(ctx, props)
}

func (r *Registry) filter(keep func(Descriptor) bool) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		if desc := r.entries[name]; keep(desc) {
			out = append(out, desc)
		}
	}
	return out
}
