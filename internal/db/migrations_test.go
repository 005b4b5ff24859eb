package db

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// legacyItemsSQL is the pre-enrichment shape of the items table, as a
// database created before migration v2 would carry it.
const legacyItemsSQL = `
CREATE TABLE items (
	id TEXT PRIMARY KEY,
	partition_key TEXT NOT NULL
)`

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() {
		conn.Close()
	})
	return conn
}

func TestMigrationV2AddsEnrichmentColumns(t *testing.T) {
	conn := openTestDB(t)
	if _, err := conn.Exec(legacyItemsSQL); err != nil {
		t.Fatal(err)
	}

	if err := migrationV2(conn); err != nil {
		t.Fatalf("migration on legacy schema: %v", err)
	}
	if _, err := conn.Exec("UPDATE items SET classification = 'x', license_class = 'y'"); err != nil {
		t.Errorf("enrichment columns not usable after migration: %v", err)
	}
}

func TestMigrationV2ToleratesExistingColumns(t *testing.T) {
	conn := openTestDB(t)
	// Fresh installs get SchemaSQL, which already carries both columns.
	if _, err := conn.Exec(SchemaSQL); err != nil {
		t.Fatal(err)
	}

	if err := migrationV2(conn); err != nil {
		t.Errorf("duplicate columns must not fail the migration: %v", err)
	}
}

func TestMigrationV2SurfacesRealErrors(t *testing.T) {
	conn := openTestDB(t)
	if _, err := conn.Exec(legacyItemsSQL); err != nil {
		t.Fatal(err)
	}
	conn.Close()

	if err := migrationV2(conn); err == nil {
		t.Error("migration on a closed database reported success")
	}
}
