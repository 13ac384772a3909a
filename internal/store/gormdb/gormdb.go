// Package gormdb provides a GORM-backed durable Backend that runs on SQLite
// (pure Go, no cgo) or PostgreSQL through the same code.
//
// Type hooks run as GORM model hooks (BeforeSave and AfterSave) inside the
// write transaction.
package gormdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/roach88/seedling/internal/ir"
	"github.com/roach88/seedling/internal/schema"
	"github.com/roach88/seedling/internal/store"
)

// Dialect selects the database behind GORM.
type Dialect string

const (
	// DialectSQLite uses SQLite via the pure-Go glebarez driver.
	DialectSQLite Dialect = "sqlite"

	// DialectPostgres uses PostgreSQL.
	DialectPostgres Dialect = "postgres"
)

// Config contains database configuration.
type Config struct {
	Dialect Dialect

	// Path is the SQLite database file.
	Path string

	// DSN is the PostgreSQL connection string.
	DSN string
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Dialect {
	case DialectSQLite:
		if c.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case DialectPostgres:
		if c.DSN == "" {
			return fmt.Errorf("postgres dsn is required")
		}
	default:
		return fmt.Errorf("unsupported dialect: %q", c.Dialect)
	}
	return nil
}

// recordRow is the GORM model for one fixture record.
type recordRow struct {
	TypeName   string `gorm:"primaryKey;size:255"`
	ID         string `gorm:"primaryKey;size:64"`
	Label      string `gorm:"not null;index"`
	Attributes string `gorm:"type:text;not null"`

	typ     *schema.Type
	op      schema.Op
	attrs   ir.IRObject
	hookErr error
}

func (recordRow) TableName() string {
	return "fixture_records"
}

// BeforeSave runs the record type's BeforeSave hook.
func (r *recordRow) BeforeSave(tx *gorm.DB) error {
	if err := r.typ.RunBeforeSave(tx.Statement.Context, r.op, r.Label, r.attrs); err != nil {
		r.hookErr = err
		return err
	}
	return nil
}

// AfterSave runs the record type's AfterSave hook.
func (r *recordRow) AfterSave(tx *gorm.DB) error {
	if err := r.typ.RunAfterSave(tx.Statement.Context, r.op, r.Label, r.attrs); err != nil {
		r.hookErr = err
		return err
	}
	return nil
}

// Backend stores fixture records through GORM.
type Backend struct {
	db *gorm.DB
}

var _ store.Backend = (*Backend)(nil)

// Open connects to the configured database and migrates the records table.
func Open(cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	var dialector gorm.Dialector
	switch cfg.Dialect {
	case DialectSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		// - journal_mode(WAL): Write-Ahead Logging for concurrent readers/single writer
		// - busy_timeout(5000): Wait up to 5 seconds when database is locked
		dsn := cfg.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(dsn)
	case DialectPostgres:
		dialector = postgres.Open(cfg.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&recordRow{}); err != nil {
		return nil, fmt.Errorf("failed to run database migration: %w", err)
	}

	return &Backend{db: db}, nil
}

// Close closes the underlying connection pool.
func (b *Backend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FindByID returns the record of type t stored under id.
func (b *Backend) FindByID(ctx context.Context, t *schema.Type, id string) (*store.Record, error) {
	var row recordRow
	err := b.db.WithContext(ctx).
		Where("type_name = ? AND id = ?", t.Name, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find %s %s: %w", t.Name, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s %s: %w", t.Name, id, err)
	}

	var attrs ir.IRObject
	if err := attrs.UnmarshalJSON([]byte(row.Attributes)); err != nil {
		return nil, fmt.Errorf("decode attributes of %s %s: %w", t.Name, id, err)
	}
	return &store.Record{Type: t.Name, Label: row.Label, ID: id, Attributes: attrs}, nil
}

// CreateWithID inserts a new row for id.
func (b *Backend) CreateWithID(ctx context.Context, t *schema.Type, id string, rec *store.Record) error {
	row, err := newRow(t, schema.OpCreate, id, rec)
	if err != nil {
		return err
	}

	err = b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(row).Error
	})
	if row.hookErr != nil {
		return row.hookErr
	}
	if err != nil {
		return fmt.Errorf("create %s %s: %w", t.Name, id, err)
	}
	return nil
}

// UpdateByID replaces label and attributes of the existing row for id.
func (b *Backend) UpdateByID(ctx context.Context, t *schema.Type, id string, rec *store.Record) error {
	row, err := newRow(t, schema.OpUpdate, id, rec)
	if err != nil {
		return err
	}

	err = b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(row).Select("Label", "Attributes").Updates(row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	if row.hookErr != nil {
		return row.hookErr
	}
	if err != nil {
		return fmt.Errorf("update %s %s: %w", t.Name, id, err)
	}
	return nil
}

func newRow(t *schema.Type, op schema.Op, id string, rec *store.Record) (*recordRow, error) {
	attrsJSON, err := ir.MarshalCanonical(rec.Attributes)
	if err != nil {
		return nil, fmt.Errorf("%s %s %s: %w", op, t.Name, id, err)
	}
	return &recordRow{
		TypeName:   t.Name,
		ID:         id,
		Label:      rec.Label,
		Attributes: string(attrsJSON),
		typ:        t,
		op:         op,
		attrs:      rec.Attributes,
	}, nil
}
