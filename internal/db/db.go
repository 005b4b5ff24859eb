// Package db opens the registry database and manages its schema.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/requeue/internal/models"
)

// Open opens (creating if needed) the registry database at path and brings
// its schema up to date. The caller owns the returned handle. There is no
// package-level connection: the path comes from the explicit Config.
func Open(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, models.Errorf(models.ErrStoreIO, "create registry directory: %v", err)
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, models.Errorf(models.ErrStoreIO, "open registry %s: %v", path, err)
	}

	// busy_timeout covers readers racing the single writer; the writer
	// itself is serialized by the advisory lock in the sqlite adapter.
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, models.Errorf(models.ErrStoreIO, "%s: %v", pragma, err)
		}
	}

	if err := InitSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return conn, nil
}

// InitSchema creates the schema on a fresh database or runs any pending
// migrations on an existing one.
func InitSchema(conn *sql.DB) error {
	var tableCount int
	err := conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return models.Errorf(models.ErrStoreIO, "inspect schema: %v", err)
	}

	if tableCount == 0 {
		// Fresh install: create the modern schema directly and mark every
		// migration as applied so they never re-run.
		if _, err := conn.Exec(SchemaSQL); err != nil {
			return models.Errorf(models.ErrStoreIO, "create schema: %v", err)
		}
		if _, err := conn.Exec(schemaVersionSQL); err != nil {
			return models.Errorf(models.ErrStoreIO, "create schema_version: %v", err)
		}
		for _, m := range migrations {
			if _, err := conn.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
				return models.Errorf(models.ErrStoreIO, "record migration %d: %v", m.Version, err)
			}
		}
		return nil
	}

	return RunMigrations(conn)
}
