// Package store is the SQLite-backed record store: it owns records and the
// composite identifiers written back to them, including superseded ones.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	id         TEXT PRIMARY KEY,
	fields     TEXT NOT NULL DEFAULT '{}',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS identifiers (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	record_id       TEXT NOT NULL REFERENCES records(id) ON DELETE CASCADE,
	hash_field      TEXT NOT NULL,
	value           TEXT NOT NULL,
	sch             TEXT NOT NULL,
	kind            TEXT NOT NULL,
	generated_ms    INTEGER NOT NULL,
	uuid_seed       INTEGER NOT NULL,
	frames_checksum TEXT NOT NULL DEFAULT '',
	superseded_by   TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_identifiers_current
	ON identifiers(record_id, hash_field) WHERE superseded_by = '';
CREATE INDEX IF NOT EXISTS idx_identifiers_sch ON identifiers(sch);
CREATE INDEX IF NOT EXISTS idx_identifiers_record ON identifiers(record_id, hash_field);
`

// DB wraps a sql.DB with record store operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
