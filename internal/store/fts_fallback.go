//go:build !sqlite_fts5

package store

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; record search uses LIKE on the records.fields column.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _ string) error {
	// Fields are already stored in the records table; nothing extra to do.
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

// SearchRecords performs a LIKE-based search over record field values
// (fallback when FTS5 is not compiled in).
func (db *DB) SearchRecords(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT id, substr(fields, 1, 200)
		FROM records
		WHERE fields LIKE ?
		ORDER BY id
		LIMIT ?
	`, like, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()

	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
