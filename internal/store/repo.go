package store

import (
	"github.com/starford/trihash/internal/engine"
	"github.com/starford/trihash/internal/models"
)

// Repository defines the record store operations used by the service layer.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type Repository interface {
	PutRecord(r models.Record) error
	GetRecord(id string) (*models.Record, error)
	ListRecords(limit, offset int) ([]models.Record, int, error)
	DeleteRecord(id string) error
	SearchRecords(query string, limit int) ([]SearchResult, error)
	PutAndWriteBack(r models.Record, res *engine.Result) error
	Identifiers(recordID string) ([]models.StoredIdentifier, error)
	Current(recordID, hashField string) (models.StoredIdentifier, error)
	History(recordID, hashField string) ([]models.StoredIdentifier, error)
	LookupSCH(sch string) ([]models.StoredIdentifier, error)
	Close() error
}

// Verify *DB satisfies Repository at compile time.
var _ Repository = (*DB)(nil)
