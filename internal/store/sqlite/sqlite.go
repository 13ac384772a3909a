package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/seedling/internal/ir"
	"github.com/roach88/seedling/internal/schema"
	"github.com/roach88/seedling/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on records(type_name, label)
const currentSchemaVersion = 1

// Backend stores fixture records in SQLite.
type Backend struct {
	db *sql.DB
}

var _ store.Backend = (*Backend)(nil)

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Backend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Backend{db: db}, nil
}

// Close closes the database connection.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// FindByID returns the record of type t stored under id.
func (b *Backend) FindByID(ctx context.Context, t *schema.Type, id string) (*store.Record, error) {
	var label, attrsJSON string
	err := b.db.QueryRowContext(ctx, `
		SELECT label, attributes
		FROM records
		WHERE type_name = ? AND id = ?
	`, t.Name, id).Scan(&label, &attrsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find %s %s: %w", t.Name, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s %s: %w", t.Name, id, err)
	}

	var attrs ir.IRObject
	if err := json.Unmarshal([]byte(attrsJSON), &attrs); err != nil {
		return nil, fmt.Errorf("decode attributes of %s %s: %w", t.Name, id, err)
	}

	return &store.Record{Type: t.Name, Label: label, ID: id, Attributes: attrs}, nil
}

// CreateWithID inserts a new row for id.
func (b *Backend) CreateWithID(ctx context.Context, t *schema.Type, id string, rec *store.Record) error {
	return b.write(ctx, t, schema.OpCreate, id, rec, `
		INSERT INTO records (attributes, label, type_name, id)
		VALUES (?, ?, ?, ?)
	`)
}

// UpdateByID replaces the attributes of the existing row for id.
func (b *Backend) UpdateByID(ctx context.Context, t *schema.Type, id string, rec *store.Record) error {
	return b.write(ctx, t, schema.OpUpdate, id, rec, `
		UPDATE records
		SET attributes = ?, label = ?
		WHERE type_name = ? AND id = ?
	`)
}

// write runs the hooks and the statement in one transaction. Hook errors are
// returned unchanged.
func (b *Backend) write(ctx context.Context, t *schema.Type, op schema.Op, id string, rec *store.Record, query string) error {
	attrsJSON, err := ir.MarshalCanonical(rec.Attributes)
	if err != nil {
		return fmt.Errorf("%s %s %s: %w", op, t.Name, id, err)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s %s %s: begin: %w", op, t.Name, id, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := t.RunBeforeSave(ctx, op, rec.Label, rec.Attributes); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, query, string(attrsJSON), rec.Label, t.Name, id)
	if err != nil {
		return fmt.Errorf("%s %s %s: %w", op, t.Name, id, err)
	}
	if op == schema.OpUpdate {
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%s %s %s: %w", op, t.Name, id, err)
		}
		if n == 0 {
			return fmt.Errorf("%s %s %s: %w", op, t.Name, id, store.ErrNotFound)
		}
	}

	if err := t.RunAfterSave(ctx, op, rec.Label, rec.Attributes); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s %s %s: commit: %w", op, t.Name, id, err)
	}
	return nil
}

// Count returns the number of rows stored for t.
func (b *Backend) Count(ctx context.Context, t *schema.Type) (int, error) {
	var n int
	err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE type_name = ?`, t.Name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", t.Name, err)
	}
	return n, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 indexes labels so rows can be listed by type and label.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_records_type_label
		ON records(type_name, label)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (b *Backend) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := b.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
