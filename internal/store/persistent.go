package store

import (
	"context"
	"fmt"

	"github.com/roach88/seedling/internal/ir"
	"github.com/roach88/seedling/internal/schema"
)

// Persistent is a Store over a durable Backend. Records are addressed in the
// backend by ir.LabelID(label).
type Persistent struct {
	typ     *schema.Type
	backend Backend
}

var _ Store = (*Persistent)(nil)

// NewPersistent binds t to backend.
func NewPersistent(t *schema.Type, backend Backend) *Persistent {
	return &Persistent{typ: t, backend: backend}
}

// Type returns the bound record type.
func (p *Persistent) Type() *schema.Type {
	return p.typ
}

// Find looks up the record by the label's derived id.
func (p *Persistent) Find(ctx context.Context, label string) (*Record, error) {
	rec, err := p.backend.FindByID(ctx, p.typ, ir.LabelID(label))
	if IsNotFound(err) {
		return nil, NotFound(p.typ.Name, label)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s %q: %w", p.typ.Name, label, err)
	}
	return rec, nil
}

// Upsert updates the record in place when its derived id exists and creates
// it otherwise. Errors from the backend's create or update are returned as
// raised.
func (p *Persistent) Upsert(ctx context.Context, label string, attrs ir.IRObject) error {
	built, err := p.typ.Build(attrs)
	if err != nil {
		return err
	}

	id := ir.LabelID(label)
	rec := &Record{Type: p.typ.Name, Label: label, ID: id, Attributes: built}

	_, err = p.backend.FindByID(ctx, p.typ, id)
	switch {
	case err == nil:
		return p.backend.UpdateByID(ctx, p.typ, id, rec)
	case IsNotFound(err):
		return p.backend.CreateWithID(ctx, p.typ, id, rec)
	default:
		return fmt.Errorf("find %s %q: %w", p.typ.Name, label, err)
	}
}
