package db

// SchemaSQL is the complete schema for fresh installs, reflecting the
// current state after all migrations. It is the single source of truth:
// tests load it through GetSchemaSQL() instead of hardcoding CREATE TABLE
// statements, so any drift between repository code and schema fails
// immediately with "no such column".
//
// The pipeline flag columns form a CLOSED set. Adding a pipeline means a
// new pair of columns here plus a migration, never an ad hoc column.
const SchemaSQL = `
-- Items (one row per corpus item)
CREATE TABLE IF NOT EXISTS items (
	id TEXT PRIMARY KEY,
	partition_key TEXT NOT NULL,
	source_path TEXT NOT NULL DEFAULT '',
	source_archive TEXT NOT NULL DEFAULT '',
	source_manifest TEXT NOT NULL DEFAULT '',
	classification TEXT,
	license_class TEXT,

	xml_done INTEGER NOT NULL DEFAULT 0,
	xml_done_at DATETIME,
	metadata_done INTEGER NOT NULL DEFAULT 0,
	metadata_done_at DATETIME,
	oddpub_done INTEGER NOT NULL DEFAULT 0,
	oddpub_done_at DATETIME,
	funders_done INTEGER NOT NULL DEFAULT 0,
	funders_done_at DATETIME,
	licenses_done INTEGER NOT NULL DEFAULT 0,
	licenses_done_at DATETIME,

	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_items_partition ON items(partition_key);
CREATE INDEX IF NOT EXISTS idx_items_xml_done ON items(xml_done);
CREATE INDEX IF NOT EXISTS idx_items_metadata_done ON items(metadata_done);
CREATE INDEX IF NOT EXISTS idx_items_oddpub_done ON items(oddpub_done);
CREATE INDEX IF NOT EXISTS idx_items_funders_done ON items(funders_done);
CREATE INDEX IF NOT EXISTS idx_items_licenses_done ON items(licenses_done);
`

const schemaVersionSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
)
`

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
func GetSchemaSQL() string {
	return SchemaSQL
}
