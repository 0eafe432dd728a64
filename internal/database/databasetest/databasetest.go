// Package databasetest opens migrated in-memory SQLite stores for tests.
package databasetest

import (
	"context"
	"fmt"
	"testing"

	"agribuddy/internal/config"
	"agribuddy/internal/database"
	"agribuddy/internal/logging"

	"github.com/google/uuid"
)

// Config returns a sqlite configuration private to one test.
func Config() config.DatabaseConfig {
	return config.DatabaseConfig{
		Driver:       config.DriverSQLite,
		SQLitePath:   fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
}

// New returns a migrated provider that is closed when the test ends.
func New(tb testing.TB) *database.Provider {
	tb.Helper()

	p, err := database.Open(Config(), logging.Discard())
	if err != nil {
		tb.Fatalf("failed to open sqlite: %v", err)
	}
	tb.Cleanup(func() { _ = p.Close() })

	if err := p.Migrate(context.Background()); err != nil {
		tb.Fatalf("failed to migrate sqlite: %v", err)
	}
	return p
}
