// Package dbtest opens migrated SQLite databases for package tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"neovidya/internal/database"
	"neovidya/migrations"
)

// New returns a freshly migrated SQLite database in a temporary directory.
// The database is closed when the test finishes.
func New(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.RunMigrations(context.Background(), migrations.FS); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}
