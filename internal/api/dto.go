package api

import (
	"time"

	"github.com/starford/trihash/internal/export"
	"github.com/starford/trihash/internal/frame"
	"github.com/starford/trihash/internal/models"
	"github.com/starford/trihash/internal/store"
)

// HashRequest is the request body for hashing a record.
type HashRequest struct {
	ID     string            `json:"id,omitempty" example:"3f0c9a52-6a8e-4b8e-9a0e-1b7e2f7e0c11"`
	Fields map[string]string `json:"fields" validate:"required"`
}

// IdentifierDTO is a composite identifier with its kind.
type IdentifierDTO struct {
	Value string `json:"value" example:"3kT9Zq...48 symbols" validate:"required"`
	Kind  string `json:"kind" example:"semantic" validate:"required"`
}

// HashResponse is returned after a record has been hashed.
type HashResponse struct {
	RecordID       string                   `json:"record_id" validate:"required"`
	Identifiers    map[string]IdentifierDTO `json:"identifiers" validate:"required"`
	FramesChecksum string                   `json:"frames_checksum" validate:"required"`
}

// RecordListResponse wraps paginated record listings.
type RecordListResponse struct {
	Records []models.Record `json:"records" validate:"required"`
	Total   int             `json:"total" example:"42" validate:"required"`
}

// IdentifierListResponse wraps stored identifiers.
type IdentifierListResponse struct {
	Identifiers []models.StoredIdentifier `json:"identifiers" validate:"required"`
}

// ExportRequest is the request body for exporting identifiers.
type ExportRequest struct {
	RecordIDs []string `json:"record_ids" validate:"required"`
	Format    string   `json:"format" example:"compact" validate:"required"`
	// NoNewlines concatenates identifiers-only output.
	NoNewlines bool `json:"no_newlines,omitempty"`
	// Name, when set, writes the payload to the export sink instead of
	// returning it.
	Name string `json:"name,omitempty" example:"daily/tasks"`
}

// ImportResponse holds the mappings read from a payload.
type ImportResponse struct {
	Records []map[string]IdentifierDTO `json:"records" validate:"required"`
}

// SegmentResponse describes a decoded Base96 segment.
type SegmentResponse struct {
	Segment string `json:"segment" validate:"required"`
	Hex     string `json:"hex" example:"00000000000000000000000000000000" validate:"required"`
}

// DecodeResponse holds one decoded segment, or three for a composite
// identifier (SCH, CUID, UUID in order).
type DecodeResponse struct {
	Segments []SegmentResponse `json:"segments" validate:"required"`
}

// FramesResponse describes the active frame set.
type FramesResponse struct {
	Checksum string       `json:"checksum" validate:"required"`
	Schema   []string     `json:"schema" validate:"required"`
	Frames   []frame.Spec `json:"frames" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []store.SearchResult `json:"results" validate:"required"`
}

// VerifyResponse reports an identifier check.
type VerifyResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ExportFileDTO mirrors models.ExportFile for swag.
type ExportFileDTO struct {
	Path      string    `json:"path" example:"daily/tasks.th96"`
	Size      int64     `json:"size" example:"240"`
	Checksum  string    `json:"checksum" example:"abc123..."`
	UpdatedAt time.Time `json:"updated_at"`
}

func toIdentifierDTOs(m export.Mapping) map[string]IdentifierDTO {
	out := make(map[string]IdentifierDTO, len(m))
	for field, id := range m {
		out[field] = IdentifierDTO{Value: id.Value, Kind: id.Kind.String()}
	}
	return out
}
