// Package models defines the domain types shared by the store and its clients.
package models

import "time"

// Record is a set of named string fields owned by the record store.
type Record struct {
	ID        string            `json:"id"`
	Fields    map[string]string `json:"fields"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// StoredIdentifier is one composite identifier written back to a record.
// Superseded identifiers are kept and point at their replacement.
type StoredIdentifier struct {
	RecordID     string    `json:"record_id"`
	HashField    string    `json:"hash_field"`
	Value        string    `json:"value"`
	Kind         string    `json:"kind"`
	GeneratedAt  time.Time `json:"generated_at"`
	UUIDSeed     uint64    `json:"uuid_seed"`
	SupersededBy string    `json:"superseded_by,omitempty"`
}

// Current reports whether the identifier has not been replaced.
func (s StoredIdentifier) Current() bool { return s.SupersededBy == "" }

// ExportFile describes a payload written to the export sink.
type ExportFile struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
