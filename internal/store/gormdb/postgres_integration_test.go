//go:build integration

package gormdb

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/roach88/seedling/internal/store"
	"github.com/roach88/seedling/internal/store/storetest"
)

func TestConformancePostgres(t *testing.T) {
	ctx := context.Background()

	// PostgreSQL outputs "database system is ready" twice during startup (once
	// during bootstrap, once when fully ready), so we wait for 2 occurrences.
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("seedling_test"),
		tcpostgres.WithUsername("seedling_test"),
		tcpostgres.WithPassword("seedling_test"),
		testcontainers.WithWaitStrategyAndDeadline(5*time.Minute,
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	storetest.RunBackendSuite(t, func(t *testing.T) store.Backend {
		b, err := Open(Config{Dialect: DialectPostgres, DSN: dsn})
		if err != nil {
			t.Fatalf("Open() failed: %v", err)
		}
		// Tests share one database: start each from an empty table.
		if err := b.db.Exec("TRUNCATE fixture_records").Error; err != nil {
			t.Fatalf("truncate failed: %v", err)
		}
		t.Cleanup(func() { b.Close() })
		return b
	})
}
