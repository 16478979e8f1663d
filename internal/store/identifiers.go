package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/starford/trihash/internal/apperr"
	"github.com/starford/trihash/internal/engine"
	"github.com/starford/trihash/internal/models"
)

const identifierColumns = `record_id, hash_field, value, kind, generated_ms, uuid_seed, superseded_by`

// WriteBack stores the identifiers of res against recordID in one
// transaction. An existing current identifier for the same hash field is
// kept as history and linked to its replacement through superseded_by.
func (db *DB) WriteBack(recordID string, res *engine.Result) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := writeBack(tx, recordID, res); err != nil {
		return err
	}
	return tx.Commit()
}

func writeBack(tx *sql.Tx, recordID string, res *engine.Result) error {
	var exists int
	if err := tx.QueryRow(`SELECT count(*) FROM records WHERE id = ?`, recordID).Scan(&exists); err != nil {
		return fmt.Errorf("store: check record: %w", err)
	}
	if exists == 0 {
		return apperr.ErrNotFound
	}

	supersede, err := tx.Prepare(`
		UPDATE identifiers SET superseded_by = ?
		WHERE record_id = ? AND hash_field = ? AND superseded_by = ''
	`)
	if err != nil {
		return fmt.Errorf("store: prepare supersede: %w", err)
	}
	defer supersede.Close()

	insert, err := tx.Prepare(`
		INSERT INTO identifiers
			(record_id, hash_field, value, sch, kind, generated_ms, uuid_seed, frames_checksum)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: prepare identifier insert: %w", err)
	}
	defer insert.Close()

	for _, field := range res.Identifiers.Fields() {
		id := res.Identifiers[field]
		st := res.Stamps[field]
		if _, err := supersede.Exec(id.Value, recordID, field); err != nil {
			return fmt.Errorf("store: supersede %s: %w", field, err)
		}
		// uuid_seed keeps the seed's bit pattern; SQLite integers are signed.
		if _, err := insert.Exec(recordID, field, id.Value, id.SCH(), id.Kind.String(),
			st.UnixMilli, int64(st.UUIDSeed), res.FramesChecksum); err != nil {
			return fmt.Errorf("store: insert identifier %s: %w", field, err)
		}
	}

	return nil
}

// Identifiers returns the current identifiers of a record ordered by hash
// field.
func (db *DB) Identifiers(recordID string) ([]models.StoredIdentifier, error) {
	return db.queryIdentifiers(`
		SELECT `+identifierColumns+` FROM identifiers
		WHERE record_id = ? AND superseded_by = ''
		ORDER BY hash_field
	`, recordID)
}

// History returns every identifier ever written for one hash field of a
// record, oldest first.
func (db *DB) History(recordID, hashField string) ([]models.StoredIdentifier, error) {
	return db.queryIdentifiers(`
		SELECT `+identifierColumns+` FROM identifiers
		WHERE record_id = ? AND hash_field = ?
		ORDER BY id
	`, recordID, hashField)
}

// LookupSCH returns current identifiers whose content segment equals sch,
// i.e. records whose framed content normalizes to the same input.
func (db *DB) LookupSCH(sch string) ([]models.StoredIdentifier, error) {
	return db.queryIdentifiers(`
		SELECT `+identifierColumns+` FROM identifiers
		WHERE sch = ? AND superseded_by = ''
		ORDER BY record_id, hash_field
	`, sch)
}

// Current returns the current identifier of one hash field of a record,
// including the stamp needed to verify it.
func (db *DB) Current(recordID, hashField string) (models.StoredIdentifier, error) {
	rows, err := db.queryIdentifiers(`
		SELECT `+identifierColumns+` FROM identifiers
		WHERE record_id = ? AND hash_field = ? AND superseded_by = ''
	`, recordID, hashField)
	if err != nil {
		return models.StoredIdentifier{}, err
	}
	if len(rows) == 0 {
		return models.StoredIdentifier{}, apperr.ErrNotFound
	}
	return rows[0], nil
}

func (db *DB) queryIdentifiers(query string, args ...any) ([]models.StoredIdentifier, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query identifiers: %w", err)
	}
	defer rows.Close()

	out := []models.StoredIdentifier{}
	for rows.Next() {
		var (
			s    models.StoredIdentifier
			ms   int64
			seed int64
		)
		if err := rows.Scan(&s.RecordID, &s.HashField, &s.Value, &s.Kind, &ms, &seed, &s.SupersededBy); err != nil {
			return nil, err
		}
		s.GeneratedAt = time.UnixMilli(ms).UTC()
		s.UUIDSeed = uint64(seed)
		out = append(out, s)
	}
	return out, rows.Err()
}
