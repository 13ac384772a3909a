package store

import (
	"context"

	gocache "github.com/patrickmn/go-cache"

	"github.com/roach88/seedling/internal/ir"
	"github.com/roach88/seedling/internal/schema"
)

// Memory is an in-process Store. Records live for the life of the store and
// are never persisted. Memory runs no hooks: the only checks are the ones
// schema.Type.Build enforces.
type Memory struct {
	typ     *schema.Type
	records *gocache.Cache
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty memory store for t.
func NewMemory(t *schema.Type) *Memory {
	return &Memory{
		typ:     t,
		records: gocache.New(gocache.NoExpiration, 0),
	}
}

// Type returns the bound record type.
func (m *Memory) Type() *schema.Type {
	return m.typ
}

// Find returns a copy of the record stored under label.
func (m *Memory) Find(_ context.Context, label string) (*Record, error) {
	v, ok := m.records.Get(label)
	if !ok {
		return nil, NotFound(m.typ.Name, label)
	}
	return v.(*Record).Clone(), nil
}

// Upsert stores a freshly built record under label, replacing any previous
// record entirely.
func (m *Memory) Upsert(_ context.Context, label string, attrs ir.IRObject) error {
	built, err := m.typ.Build(attrs)
	if err != nil {
		return err
	}
	m.records.Set(label, &Record{
		Type:       m.typ.Name,
		Label:      label,
		ID:         ir.LabelID(label),
		Attributes: built,
	}, gocache.NoExpiration)
	return nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	return m.records.ItemCount()
}
