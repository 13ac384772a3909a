package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seedling/internal/ir"
	"github.com/roach88/seedling/internal/schema"
	"github.com/roach88/seedling/internal/store"
	"github.com/roach88/seedling/internal/store/storetest"
)

// mapBackend is a Backend over a Go map. Writes are staged and committed
// only when both hooks pass.
type mapBackend struct {
	mu    sync.Mutex
	rows  map[string]*store.Record
	calls []string
}

func newMapBackend() *mapBackend {
	return &mapBackend{rows: make(map[string]*store.Record)}
}

func (b *mapBackend) key(t *schema.Type, id string) string {
	return t.Name + "\x00" + id
}

func (b *mapBackend) FindByID(_ context.Context, t *schema.Type, id string) (*store.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "find")
	rec, ok := b.rows[b.key(t, id)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec.Clone(), nil
}

func (b *mapBackend) CreateWithID(ctx context.Context, t *schema.Type, id string, rec *store.Record) error {
	return b.write(ctx, t, schema.OpCreate, id, rec)
}

func (b *mapBackend) UpdateByID(ctx context.Context, t *schema.Type, id string, rec *store.Record) error {
	return b.write(ctx, t, schema.OpUpdate, id, rec)
}

func (b *mapBackend) write(ctx context.Context, t *schema.Type, op schema.Op, id string, rec *store.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, string(op))
	if err := t.RunBeforeSave(ctx, op, rec.Label, rec.Attributes); err != nil {
		return err
	}
	if err := t.RunAfterSave(ctx, op, rec.Label, rec.Attributes); err != nil {
		return err
	}
	b.rows[b.key(t, id)] = rec.Clone()
	return nil
}

func (b *mapBackend) Close() error { return nil }

func TestPersistentConformance(t *testing.T) {
	storetest.RunBackendSuite(t, func(t *testing.T) store.Backend {
		return newMapBackend()
	})
}

func TestPersistentChoosesCreateThenUpdate(t *testing.T) {
	b := newMapBackend()
	p := store.NewPersistent(storetest.OpenType("User"), b)

	require.NoError(t, p.Upsert(t.Context(), "kasper", ir.IRObject{"name": ir.IRString("Kasper")}))
	require.NoError(t, p.Upsert(t.Context(), "kasper", ir.IRObject{"name": ir.IRString("Kasper Timm")}))

	assert.Equal(t, []string{"find", "create", "find", "update"}, b.calls)
}

func TestPersistentRejectsInvalidBeforeBackend(t *testing.T) {
	b := newMapBackend()
	p := store.NewPersistent(storetest.PlanType(), b)

	err := p.Upsert(t.Context(), "basic", ir.IRObject{"title": ir.IRString("Basic"), "color": ir.IRString("red")})
	require.Error(t, err)
	assert.True(t, schema.IsValidationError(err))
	assert.Empty(t, b.calls, "invalid attributes never reach the backend")
}

type failingBackend struct {
	mapBackend
	err error
}

func (b *failingBackend) FindByID(context.Context, *schema.Type, string) (*store.Record, error) {
	return nil, b.err
}

func TestPersistentWrapsLookupFailures(t *testing.T) {
	errDisk := errors.New("disk on fire")
	p := store.NewPersistent(storetest.OpenType("User"), &failingBackend{err: errDisk})

	_, err := p.Find(t.Context(), "kasper")
	require.ErrorIs(t, err, errDisk)
	assert.False(t, store.IsNotFound(err))
	assert.Contains(t, err.Error(), `find User "kasper"`)

	err = p.Upsert(t.Context(), "kasper", ir.IRObject{})
	require.ErrorIs(t, err, errDisk)
}
