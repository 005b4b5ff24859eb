package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/requeue/internal/models"
)

// Migration is one versioned schema change.
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.DB) error
}

// migrations in order. Fresh installs get SchemaSQL directly and record
// all of these as applied.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_items_table",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_enrichment_columns",
		Up:      migrationV2,
	},
}

func migrationV1(conn *sql.DB) error {
	_, err := conn.Exec(SchemaSQL)
	return err
}

func migrationV2(conn *sql.DB) error {
	// Databases created before enrichment tracking lack these columns;
	// SchemaSQL already carries them for fresh installs.
	for _, stmt := range []string{
		"ALTER TABLE items ADD COLUMN classification TEXT",
		"ALTER TABLE items ADD COLUMN license_class TEXT",
	} {
		if _, err := conn.Exec(stmt); err != nil {
			// Column already present when upgrading from a fresh v1 install.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return err
		}
	}
	return nil
}

// RunMigrations executes all pending migrations.
func RunMigrations(conn *sql.DB) error {
	if _, err := conn.Exec(schemaVersionSQL); err != nil {
		return models.Errorf(models.ErrStoreIO, "create schema_version: %v", err)
	}

	var currentVersion int
	if err := conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion); err != nil {
		return models.Errorf(models.ErrStoreIO, "read schema version: %v", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		if err := migration.Up(conn); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
		}
		if _, err := conn.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			return models.Errorf(models.ErrStoreIO, "record migration %d: %v", migration.Version, err)
		}
	}

	return nil
}
