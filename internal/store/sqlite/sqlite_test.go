package sqlite

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/seedling/internal/ir"
	"github.com/roach88/seedling/internal/store"
	"github.com/roach88/seedling/internal/store/storetest"
)

// createTestBackend opens a fresh database under t.TempDir().
func createTestBackend(t *testing.T) *Backend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	b, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestConformance(t *testing.T) {
	storetest.RunBackendSuite(t, func(t *testing.T) store.Backend {
		return createTestBackend(t)
	})
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	b, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer b.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		b, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		b.Close()
	}

	b, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer b.Close()

	var name string
	err = b.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='records'").Scan(&name)
	if err != nil {
		t.Errorf("records table not found after idempotent opens: %v", err)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	b := &Backend{db: nil}
	if err := b.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestRecordsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	typ := storetest.OpenType("User")

	b1, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	s1 := store.NewPersistent(typ, b1)
	if err := s1.Upsert(t.Context(), "kasper", ir.IRObject{"name": ir.IRString("Kasper")}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	b1.Close()

	b2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer b2.Close()

	rec, err := store.NewPersistent(typ, b2).Find(t.Context(), "kasper")
	if err != nil {
		t.Fatalf("Find() after reopen failed: %v", err)
	}
	if got := rec.Attributes["name"]; got != ir.IRString("Kasper") {
		t.Errorf("name = %v, want Kasper", got)
	}
}

func TestSeedingTwiceUpdatesSameRow(t *testing.T) {
	b := createTestBackend(t)
	typ := storetest.OpenType("User")
	s := store.NewPersistent(typ, b)

	for _, name := range []string{"Kasper", "Kasper Timm"} {
		if err := s.Upsert(t.Context(), "kasper", ir.IRObject{"name": ir.IRString(name)}); err != nil {
			t.Fatalf("Upsert(%q) failed: %v", name, err)
		}
	}

	n, err := b.Count(t.Context(), typ)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestAttributesStoredCanonical(t *testing.T) {
	b := createTestBackend(t)
	s := store.NewPersistent(storetest.OpenType("Plan"), b)

	attrs := ir.IRObject{"title": ir.IRString("<Basic>"), "price_cents": ir.IRInt(0)}
	if err := s.Upsert(t.Context(), "basic", attrs); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	var raw string
	err := b.db.QueryRow("SELECT attributes FROM records WHERE id = ?", ir.LabelID("basic")).Scan(&raw)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if want := `{"price_cents":0,"title":"<Basic>"}`; raw != want {
		t.Errorf("attributes = %s, want %s", raw, want)
	}
}

func TestUpdateMissingRowIsNotFound(t *testing.T) {
	b := createTestBackend(t)
	typ := storetest.OpenType("User")
	rec := &store.Record{Type: "User", Label: "ghost", ID: ir.LabelID("ghost"), Attributes: ir.IRObject{}}

	err := b.UpdateByID(t.Context(), typ, rec.ID, rec)
	if !store.IsNotFound(err) {
		t.Errorf("UpdateByID() error = %v, want not found", err)
	}
}

// Pragma tests

func TestPragmas(t *testing.T) {
	b := createTestBackend(t)

	pragmas := map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1", // NORMAL
		"busy_timeout": "5000",
		"foreign_keys": "1", // ON
	}
	for name, want := range pragmas {
		if err := b.verifyPragma(name, want); err != nil {
			t.Error(err)
		}
	}
}

// Migration tests

func TestMigration_SchemaVersion(t *testing.T) {
	b := createTestBackend(t)

	var version int
	if err := b.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestMigration_UpgradeFromV0(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	// Apply schema but NOT migrations (simulates pre-migration state)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 0"); err != nil {
		t.Fatalf("failed to set user_version: %v", err)
	}
	db.Close()

	b, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer b.Close()

	var version int
	if err := b.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d after migration", version, currentSchemaVersion)
	}

	indexes := getTableIndexes(t, b.db, "records")
	if !contains(indexes, "idx_records_type_label") {
		t.Errorf("expected idx_records_type_label after migration, got indexes: %v", indexes)
	}
}

// Helper functions

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
