package bolt

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seedling/internal/ir"
	"github.com/roach88/seedling/internal/store"
	"github.com/roach88/seedling/internal/store/storetest"
)

func openTestBackend(t *testing.T, path string) *Backend {
	t.Helper()
	b, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestConformance(t *testing.T) {
	storetest.RunBackendSuite(t, func(t *testing.T) store.Backend {
		return openTestBackend(t, filepath.Join(t.TempDir(), "fixtures.db"))
	})
}

func TestRecordsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.db")
	typ := storetest.OpenType("Menu")

	b1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.NewPersistent(typ, b1).Upsert(t.Context(), "basic", ir.IRObject{"name": ir.IRString("Basic")}))
	require.NoError(t, b1.Close())

	b2 := openTestBackend(t, path)
	rec, err := store.NewPersistent(typ, b2).Find(t.Context(), "basic")
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("Basic"), rec.Attributes["name"])
}

func TestCreateExistingFails(t *testing.T) {
	b := openTestBackend(t, filepath.Join(t.TempDir(), "fixtures.db"))
	typ := storetest.OpenType("User")
	rec := &store.Record{Type: "User", Label: "kasper", ID: ir.LabelID("kasper"), Attributes: ir.IRObject{}}

	require.NoError(t, b.CreateWithID(t.Context(), typ, rec.ID, rec))
	err := b.CreateWithID(t.Context(), typ, rec.ID, rec)
	require.ErrorIs(t, err, errRecordExists)
}

func TestOpenLockedFileTimesOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.db")
	openTestBackend(t, path)

	_, err := Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to open boltdb")
}
