package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/seedling/internal/ir"
	"github.com/roach88/seedling/internal/schema"
	"github.com/roach88/seedling/internal/store"
)

// Origin is where a label entry was defined.
type Origin struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
}

// String formats the origin as file:line.
func (o Origin) String() string {
	switch {
	case o.File == "":
		return "<unknown>"
	case o.Line <= 0:
		return o.File
	default:
		return fmt.Sprintf("%s:%d", o.File, o.Line)
	}
}

// Resolver loads the current record for one label.
type Resolver func(ctx context.Context) (*store.Record, error)

// Entry describes one defined label.
type Entry struct {
	Label  string `json:"label"`
	Origin Origin `json:"origin"`
	// Seq orders definitions across the whole registry.
	Seq int64 `json:"seq"`
}

type entry struct {
	Entry
	resolve Resolver
}

// Accessor is a namespace member: one Store plus one resolver per label ever
// upserted through it.
type Accessor struct {
	ns    *Namespace
	name  string
	store store.Store
	seq   int64

	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
}

func newAccessor(ns *Namespace, name string, s store.Store, seq int64) *Accessor {
	return &Accessor{
		ns:      ns,
		name:    name,
		store:   s,
		seq:     seq,
		entries: make(map[string]*entry),
	}
}

// Name returns the accessor name, e.g. "billing_plans".
func (a *Accessor) Name() string {
	return a.name
}

// Type returns the record type of the underlying store.
func (a *Accessor) Type() *schema.Type {
	return a.store.Type()
}

// Store returns the bound store.
func (a *Accessor) Store() store.Store {
	return a.store
}

// Seq returns when the accessor was registered.
func (a *Accessor) Seq() int64 {
	return a.seq
}

// Upsert writes attrs for label through the store, then defines or refreshes
// the label entry with origin. Store errors are returned unchanged and leave
// the entry as it was.
func (a *Accessor) Upsert(ctx context.Context, label string, attrs ir.IRObject, origin Origin) error {
	if err := a.store.Upsert(ctx, label, attrs); err != nil {
		return err
	}

	e := &entry{
		Entry: Entry{
			Label:  label,
			Origin: origin,
			Seq:    a.ns.registry.clock.Next(),
		},
		resolve: func(ctx context.Context) (*store.Record, error) {
			return a.store.Find(ctx, label)
		},
	}

	a.mu.Lock()
	if _, ok := a.entries[label]; !ok {
		a.order = append(a.order, label)
	}
	a.entries[label] = e
	a.mu.Unlock()

	a.ns.registry.logger.Debug("fixture defined",
		"provider", a.ns.provider,
		"accessor", a.name,
		"label", label,
		"origin", origin.String(),
	)
	return nil
}

// Lookup resolves the label entry. A label never upserted through this
// accessor is an UNKNOWN_ACCESSOR error.
func (a *Accessor) Lookup(ctx context.Context, label string) (*store.Record, error) {
	a.mu.RLock()
	e, ok := a.entries[label]
	a.mu.RUnlock()
	if !ok {
		return nil, &Error{
			Code:     ErrCodeUnknownAccessor,
			Message:  "no fixture with this label",
			Provider: a.ns.provider,
			Accessor: a.name,
			Label:    label,
		}
	}
	return e.resolve(ctx)
}

// Has reports whether label has an entry.
func (a *Accessor) Has(label string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.entries[label]
	return ok
}

// Entry returns the live entry for label.
func (a *Accessor) Entry(label string) (Entry, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entries[label]
	if !ok {
		return Entry{}, false
	}
	return e.Entry, true
}

// Origin reports where the live entry for label was defined.
func (a *Accessor) Origin(label string) (Origin, bool) {
	e, ok := a.Entry(label)
	return e.Origin, ok
}

// Entries returns every label entry in first-definition order.
func (a *Accessor) Entries() []Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Entry, 0, len(a.order))
	for _, label := range a.order {
		out = append(out, a.entries[label].Entry)
	}
	return out
}
