package badger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seedling/internal/ir"
	"github.com/roach88/seedling/internal/store"
	"github.com/roach88/seedling/internal/store/storetest"
)

func openTestBackend(t *testing.T, dir string) *Backend {
	t.Helper()
	b, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestConformanceInMemory(t *testing.T) {
	storetest.RunBackendSuite(t, func(t *testing.T) store.Backend {
		return openTestBackend(t, "")
	})
}

func TestConformanceOnDisk(t *testing.T) {
	storetest.RunBackendSuite(t, func(t *testing.T) store.Backend {
		return openTestBackend(t, t.TempDir())
	})
}

func TestRecordsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	typ := storetest.OpenType("Account")

	b1, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.NewPersistent(typ, b1).Upsert(t.Context(), "kaspers_donuts", ir.IRObject{"name": ir.IRString("Kasper's Donuts")}))
	require.NoError(t, b1.Close())

	b2 := openTestBackend(t, dir)
	rec, err := store.NewPersistent(typ, b2).Find(t.Context(), "kaspers_donuts")
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("Kasper's Donuts"), rec.Attributes["name"])
}

func TestCreateExistingFails(t *testing.T) {
	b := openTestBackend(t, "")
	typ := storetest.OpenType("User")
	rec := &store.Record{Type: "User", Label: "kasper", ID: ir.LabelID("kasper"), Attributes: ir.IRObject{}}

	require.NoError(t, b.CreateWithID(t.Context(), typ, rec.ID, rec))
	err := b.CreateWithID(t.Context(), typ, rec.ID, rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestUpdateMissingIsNotFound(t *testing.T) {
	b := openTestBackend(t, "")
	typ := storetest.OpenType("User")
	rec := &store.Record{Type: "User", Label: "ghost", ID: ir.LabelID("ghost"), Attributes: ir.IRObject{}}

	err := b.UpdateByID(t.Context(), typ, rec.ID, rec)
	assert.True(t, store.IsNotFound(err), "UpdateByID() error = %v", err)
}
