package device

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// openTestDB opens an in-memory database with the registry schema.
// Foreign keys are left off so tests don't need parent rows for
// users and device types.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file::memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck

	schema := `
	CREATE TABLE device_types (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT,
		pins_config TEXT NOT NULL DEFAULT '[]',
		created_at  TEXT NOT NULL
	);
	CREATE TABLE devices (
		id               TEXT PRIMARY KEY,
		name             TEXT NOT NULL,
		device_type_id   TEXT NOT NULL,
		user_id          TEXT NOT NULL,
		auth_token       TEXT NOT NULL,
		status           TEXT NOT NULL DEFAULT 'offline',
		last_seen        TEXT,
		firmware_version TEXT,
		ip_address       TEXT,
		created_at       TEXT NOT NULL
	);
	CREATE TABLE firmware_versions (
		id             TEXT PRIMARY KEY,
		device_type_id TEXT NOT NULL,
		version        TEXT NOT NULL,
		file_data      TEXT NOT NULL,
		file_size      INTEGER NOT NULL,
		description    TEXT,
		is_active      INTEGER NOT NULL DEFAULT 1,
		created_at     TEXT NOT NULL
	);
	CREATE TABLE sensor_readings (
		id        TEXT PRIMARY KEY,
		device_id TEXT NOT NULL,
		data      TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	return db
}
