// Package sqlite_test contains integration tests for the registry store.
// Tests load the authoritative schema through db.GetSchemaSQL() instead of
// hardcoding CREATE TABLE statements, so schema drift fails immediately.
package sqlite_test

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/requeue/internal/adapters/sqlite"
	"github.com/example/requeue/internal/db"
	"github.com/example/requeue/internal/models"
)

// setupTestStore creates an in-memory database with the authoritative
// schema and a repository whose lock file lives in a temp dir.
func setupTestStore(t *testing.T) *sqlite.RegistryRepository {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// One connection: an in-memory database exists per connection.
	testDB.SetMaxOpenConns(1)
	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	t.Cleanup(func() {
		testDB.Close()
	})

	lockBase := filepath.Join(t.TempDir(), "registry.db")
	return sqlite.NewRegistryRepository(testDB, lockBase, 5*time.Second)
}

// item builds a minimal record for seeding.
func item(id, partition, path string) models.ItemRecord {
	return models.ItemRecord{
		ID:             id,
		PartitionKey:   partition,
		SourcePath:     path,
		SourceArchive:  partition + ".tar.gz",
		SourceManifest: partition + ".filelist.csv",
	}
}
