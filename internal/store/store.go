package store

import (
	"context"

	"github.com/roach88/seedling/internal/ir"
	"github.com/roach88/seedling/internal/schema"
)

// Record is a materialized fixture.
type Record struct {
	// Type is the record type name.
	Type string `json:"type"`

	// Label is the human-chosen key, unique within a Store.
	Label string `json:"label"`

	// ID is the derived durable identifier, ir.LabelID(Label).
	ID string `json:"id"`

	// Attributes are the stored attributes after type construction.
	Attributes ir.IRObject `json:"attributes"`
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Attributes = r.Attributes.Clone()
	return &c
}

// Store finds and upserts records of one type by label.
type Store interface {
	// Type returns the record type bound to this store.
	Type() *schema.Type

	// Find returns the current record for label.
	// Returns an error matching ErrNotFound if label was never upserted.
	Find(ctx context.Context, label string) (*Record, error)

	// Upsert creates or fully replaces the record for label.
	Upsert(ctx context.Context, label string, attrs ir.IRObject) error
}

// Backend is a durable record engine addressed by derived id.
//
// Every method receives the record type so one backend can hold many types.
// FindByID returns an error matching ErrNotFound when id is absent.
// CreateWithID and UpdateByID run the type's BeforeSave and AfterSave hooks
// in the same transaction as the write and return hook errors unchanged.
type Backend interface {
	FindByID(ctx context.Context, t *schema.Type, id string) (*Record, error)
	CreateWithID(ctx context.Context, t *schema.Type, id string, rec *Record) error
	UpdateByID(ctx context.Context, t *schema.Type, id string, rec *Record) error
	Close() error
}
