package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/starford/trihash/internal/apperr"
	"github.com/starford/trihash/internal/engine"
	"github.com/starford/trihash/internal/models"
)

// SearchResult represents one record search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Snippet string `json:"snippet"`
}

// PutRecord inserts or replaces a record and its search entry within a
// transaction. Identifiers already written for the record are left alone.
func (db *DB) PutRecord(r models.Record) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := putRecord(tx, r); err != nil {
		return err
	}
	return tx.Commit()
}

// PutAndWriteBack upserts a record and writes back the identifiers hashed
// from it in one transaction. On error neither the fields nor the
// identifiers change.
func (db *DB) PutAndWriteBack(r models.Record, res *engine.Result) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := putRecord(tx, r); err != nil {
		return err
	}
	if err := writeBack(tx, r.ID, res); err != nil {
		return err
	}
	return tx.Commit()
}

func putRecord(tx *sql.Tx, r models.Record) error {
	if r.ID == "" {
		return fmt.Errorf("store: put record: empty id")
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now().UTC()
	}
	fieldsJSON, err := json.Marshal(nonNilMap(r.Fields))
	if err != nil {
		return fmt.Errorf("store: encode fields: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO records (id, fields, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			fields     = excluded.fields,
			updated_at = excluded.updated_at
	`, r.ID, string(fieldsJSON), r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: upsert record: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	return ftsUpsert(tx, r.ID, searchText(r.Fields))
}

// GetRecord returns the record with id or apperr.ErrNotFound.
func (db *DB) GetRecord(id string) (*models.Record, error) {
	var (
		r      models.Record
		fields string
	)
	err := db.conn.QueryRow(`SELECT id, fields, updated_at FROM records WHERE id = ?`, id).
		Scan(&r.ID, &fields, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get record: %w", err)
	}
	if err := json.Unmarshal([]byte(fields), &r.Fields); err != nil {
		return nil, fmt.Errorf("store: decode fields of %s: %w", id, err)
	}
	return &r, nil
}

// ListRecords returns a page of records ordered by id and the total count.
func (db *DB) ListRecords(limit, offset int) ([]models.Record, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM records`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count records: %w", err)
	}
	rows, err := db.conn.Query(`
		SELECT id, fields, updated_at FROM records
		ORDER BY id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list records: %w", err)
	}
	defer rows.Close()

	out := []models.Record{}
	for rows.Next() {
		var (
			r      models.Record
			fields string
		)
		if err := rows.Scan(&r.ID, &fields, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal([]byte(fields), &r.Fields); err != nil {
			return nil, 0, fmt.Errorf("store: decode fields of %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// DeleteRecord removes a record, its search entry and every identifier
// written for it.
func (db *DB) DeleteRecord(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	res, err := tx.Exec(`DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return tx.Commit()
}

// searchText flattens fields into "name value" lines in name order.
func searchText(fields map[string]string) string {
	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		b.WriteString(k)
		b.WriteByte(' ')
		b.WriteString(fields[k])
		b.WriteByte('\n')
	}
	return b.String()
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
