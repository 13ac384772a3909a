// Package bolt provides a bbolt-backed durable Backend: one file, one
// bucket per record type.
package bolt

import (
	"context"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/roach88/seedling/internal/schema"
	"github.com/roach88/seedling/internal/store"
)

// Backend stores fixture records in a bbolt file.
type Backend struct {
	db *bolt.DB
}

var _ store.Backend = (*Backend)(nil)

// errRecordExists is returned when creating an id that is already stored.
var errRecordExists = errors.New("record already exists")

// Open opens or creates the bolt database file at path.
func Open(path string) (*Backend, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("unable to open boltdb: %w", err)
	}
	return &Backend{db: db}, nil
}

// Close closes the database file.
func (b *Backend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func bucketName(t *schema.Type) []byte {
	return []byte("records/" + t.Name)
}

// FindByID returns the record of type t stored under id.
func (b *Backend) FindByID(_ context.Context, t *schema.Type, id string) (*store.Record, error) {
	var rec *store.Record
	err := b.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketName(t))
		if bkt == nil {
			return store.ErrNotFound
		}
		data := bkt.Get([]byte(id))
		if data == nil {
			return store.ErrNotFound
		}
		var err error
		rec, err = store.UnmarshalRecord(data)
		return err
	})
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

func (b *Backend) write(ctx context.Context, t *schema.Type, op schema.Op, id string, rec *store.Record) error {
	data, err := store.MarshalRecord(rec)
	if err != nil {
		return err
	}

	var hookErr error
	err = b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(bucketName(t))
		if err != nil {
			return err
		}
		exists := bkt.Get([]byte(id)) != nil
		if op == schema.OpCreate && exists {
			return errRecordExists
		}
		if op == schema.OpUpdate && !exists {
			return store.ErrNotFound
		}

		if hookErr = t.RunBeforeSave(ctx, op, rec.Label, rec.Attributes); hookErr != nil {
			return hookErr
		}
		if err := bkt.Put([]byte(id), data); err != nil {
			return err
		}
		hookErr = t.RunAfterSave(ctx, op, rec.Label, rec.Attributes)
		return hookErr
	})
	if hookErr != nil {
		return hookErr
	}
	if err != nil {
		return fmt.Errorf("%s %s %s: %w", op, t.Name, id, err)
	}
	return nil
}
