package config

import (
	"fmt"

	"github.com/roach88/seedling/internal/registry"
	"github.com/roach88/seedling/internal/store"
	"github.com/roach88/seedling/internal/store/badger"
	"github.com/roach88/seedling/internal/store/bolt"
	"github.com/roach88/seedling/internal/store/gormdb"
	"github.com/roach88/seedling/internal/store/sqlite"
)

// CreateBackend opens the durable backend named by cfg.Driver.
func CreateBackend(cfg DatabaseConfig) (store.Backend, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return sqlite.Open(cfg.Path)
	case DriverGormSQLite:
		return gormdb.Open(gormdb.Config{Dialect: gormdb.DialectSQLite, Path: cfg.Path})
	case DriverPostgres:
		return gormdb.Open(gormdb.Config{Dialect: gormdb.DialectPostgres, DSN: cfg.DSN})
	case DriverBadger:
		return badger.Open(cfg.Path)
	case DriverBolt:
		return bolt.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown database driver: %q", cfg.Driver)
	}
}

// CreateRegistry builds a registry with the memory provider and, when the
// configured provider is records, the records provider over a freshly opened
// backend. The returned close function releases the backend.
func CreateRegistry(cfg *Config, opts ...registry.Option) (*registry.Registry, func() error, error) {
	reg := registry.New(opts...)
	reg.RegisterProvider(ProviderMemory, registry.MemoryProvider())

	if cfg.Provider != ProviderRecords {
		return reg, func() error { return nil }, nil
	}

	backend, err := CreateBackend(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s backend: %w", cfg.Database.Driver, err)
	}
	reg.RegisterProvider(ProviderRecords, registry.PersistentProvider(backend))
	return reg, backend.Close, nil
}
