// Package badger provides a BadgerDB-backed durable Backend.
//
// Records are stored under store.RecordKey(type, id). A write and its hooks
// share one badger transaction, so a failing hook leaves nothing behind.
package badger

import (
	"context"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/roach88/seedling/internal/schema"
	"github.com/roach88/seedling/internal/store"
)

// Backend stores fixture records in BadgerDB.
type Backend struct {
	db *badgerdb.DB
}

var _ store.Backend = (*Backend)(nil)

// Open opens or creates a badger database in dir. An empty dir opens an
// in-memory database.
func Open(dir string) (*Backend, error) {
	opts := badgerdb.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &Backend{db: db}, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// FindByID returns the record of type t stored under id.
func (b *Backend) FindByID(_ context.Context, t *schema.Type, id string) (*store.Record, error) {
	var rec *store.Record
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(store.RecordKey(t.Name, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec, err = store.UnmarshalRecord(val)
			return err
		})
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, fmt.Errorf("find %s %s: %w", t.Name, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s %s: %w", t.Name, id, err)
	}
	return rec, nil
}

// CreateWithID writes a new record under id.
func (b *Backend) CreateWithID(ctx context.Context, t *schema.Type, id string, rec *store.Record) error {
	return b.write(ctx, t, schema.OpCreate, id, rec)
}

// UpdateByID replaces the record stored under id.
func (b *Backend) UpdateByID(ctx context.Context, t *schema.Type, id string, rec *store.Record) error {
	return b.write(ctx, t, schema.OpUpdate, id, rec)
}

// errHook marks a hook failure so write can return it unchanged.
type errHook struct{ err error }

func (e errHook) Error() string { return e.err.Error() }

func (b *Backend) write(ctx context.Context, t *schema.Type, op schema.Op, id string, rec *store.Record) error {
	key := store.RecordKey(t.Name, id)
	data, err := store.MarshalRecord(rec)
	if err != nil {
		return err
	}

	err = b.db.Update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(key)
		switch {
		case err == nil && op == schema.OpCreate:
			return fmt.Errorf("record already exists")
		case errors.Is(err, badgerdb.ErrKeyNotFound) && op == schema.OpUpdate:
			return store.ErrNotFound
		case err != nil && !errors.Is(err, badgerdb.ErrKeyNotFound):
			return err
		}

		if err := t.RunBeforeSave(ctx, op, rec.Label, rec.Attributes); err != nil {
			return errHook{err}
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		if err := t.RunAfterSave(ctx, op, rec.Label, rec.Attributes); err != nil {
			return errHook{err}
		}
		return nil
	})

	var hookErr errHook
	if errors.As(err, &hookErr) {
		return hookErr.err
	}
	if err != nil {
		return fmt.Errorf("%s %s %s: %w", op, t.Name, id, err)
	}
	return nil
}
