package registry

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/roach88/seedling/internal/schema"
	"github.com/roach88/seedling/internal/store"
)

// Namespace exposes the stores of one provider as named accessors.
type Namespace struct {
	registry *Registry
	provider string

	mu        sync.RWMutex
	accessors map[string]*Accessor
}

func newNamespace(r *Registry, provider string) *Namespace {
	return &Namespace{
		registry:  r,
		provider:  provider,
		accessors: make(map[string]*Accessor),
	}
}

// Provider returns the provider name this namespace belongs to.
func (n *Namespace) Provider() string {
	return n.provider
}

// Register binds t's Store and exposes it under t's accessor name.
// Registering the same type again returns the existing accessor. A different
// type deriving the same accessor name is an ACCESSOR_CONFLICT.
func (n *Namespace) Register(ctx context.Context, t *schema.Type) (*Accessor, error) {
	name := t.AccessorName()

	n.mu.Lock()
	defer n.mu.Unlock()

	if a, ok := n.accessors[name]; ok {
		if a.Type() == t {
			return a, nil
		}
		return nil, &Error{
			Code:     ErrCodeAccessorConflict,
			Message:  "accessor already registered for type " + a.Type().Name + ", cannot register " + t.Name,
			Provider: n.provider,
			Accessor: name,
		}
	}

	s, err := n.registry.Bind(ctx, t, n.provider)
	if err != nil {
		return nil, err
	}
	a := newAccessor(n, name, s, n.registry.clock.Next())
	n.accessors[name] = a
	n.registry.logger.Debug("accessor registered",
		"provider", n.provider,
		"accessor", name,
		"type", t.Name,
	)
	return a, nil
}

// Accessor returns the accessor registered under name.
func (n *Namespace) Accessor(name string) (*Accessor, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	a, ok := n.accessors[name]
	if !ok {
		return nil, &Error{
			Code:     ErrCodeUnknownAccessor,
			Message:  "no accessor with this name",
			Provider: n.provider,
			Accessor: name,
		}
	}
	return a, nil
}

// HasAccessor reports whether name is a member of the namespace.
func (n *Namespace) HasAccessor(name string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.accessors[name]
	return ok
}

// Accessors returns every accessor in registration order.
func (n *Namespace) Accessors() []*Accessor {
	n.mu.RLock()
	out := make([]*Accessor, 0, len(n.accessors))
	for _, a := range n.accessors {
		out = append(out, a)
	}
	n.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Accessor) int {
		return cmp.Compare(a.seq, b.seq)
	})
	return out
}

// Lookup resolves namespace.<accessor>.<label>.
func (n *Namespace) Lookup(ctx context.Context, accessor, label string) (*store.Record, error) {
	a, err := n.Accessor(accessor)
	if err != nil {
		return nil, err
	}
	return a.Lookup(ctx, label)
}
