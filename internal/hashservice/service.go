// Package hashservice coordinates the hash engine with the record store, the
// export sink and trigger publishers.
package hashservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/starford/trihash/internal/apperr"
	"github.com/starford/trihash/internal/base96"
	"github.com/starford/trihash/internal/composite"
	"github.com/starford/trihash/internal/engine"
	"github.com/starford/trihash/internal/export"
	"github.com/starford/trihash/internal/frame"
	"github.com/starford/trihash/internal/hashgen"
	"github.com/starford/trihash/internal/models"
	"github.com/starford/trihash/internal/sink"
	"github.com/starford/trihash/internal/store"
	"github.com/starford/trihash/internal/trigger"
)

// HashResult is the outcome of hashing one stored record.
type HashResult struct {
	RecordID       string         `json:"record_id"`
	Identifiers    export.Mapping `json:"identifiers"`
	FramesChecksum string         `json:"frames_checksum"`
}

// Service coordinates engine, store, sink and trigger operations.
type Service struct {
	engine  *engine.Engine
	repo    store.Repository
	sink    sink.Sink
	pub     trigger.Publisher
	logger  *slog.Logger
	workers int
}

// Option configures a Service.
type Option func(*Service)

// WithSink enables ExportToSink and ListExports.
func WithSink(s sink.Sink) Option { return func(svc *Service) { svc.sink = s } }

// WithPublisher sets the publisher notified of identifier and frame changes.
func WithPublisher(p trigger.Publisher) Option { return func(svc *Service) { svc.pub = p } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(svc *Service) { svc.logger = l } }

// WithWorkers bounds the goroutines used by HashRecords.
func WithWorkers(n int) Option { return func(svc *Service) { svc.workers = n } }

// NewService creates a new hash service.
func NewService(eng *engine.Engine, repo store.Repository, opts ...Option) *Service {
	s := &Service{
		engine:  eng,
		repo:    repo,
		pub:     trigger.Nop{},
		logger:  slog.Default(),
		workers: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HashRecord stores rec, hashes it against the active frame set, writes the
// identifiers back and publishes them. Hashing a stored record again
// supersedes its previous identifiers.
func (s *Service) HashRecord(ctx context.Context, rec models.Record) (*HashResult, error) {
	if rec.ID == "" {
		return nil, fmt.Errorf("%w: record id is required", apperr.ErrInvalid)
	}
	res, err := s.engine.HashRecord(rec.Fields)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, rec, res)
}

// CheckRecord reports frame input fields missing from fields.
func (s *Service) CheckRecord(fields map[string]string) error {
	return s.engine.CheckRecord(fields)
}

// HashRecords hashes recs concurrently, then stores them in order. Records
// without an id are rejected before anything is written.
func (s *Service) HashRecords(ctx context.Context, recs []models.Record) ([]*HashResult, error) {
	fields := make([]map[string]string, len(recs))
	for i, r := range recs {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: record %d: id is required", apperr.ErrInvalid, i)
		}
		fields[i] = r.Fields
	}
	results, err := s.engine.HashRecords(ctx, fields, s.workers)
	if err != nil {
		return nil, err
	}
	out := make([]*HashResult, len(recs))
	for i, res := range results {
		if out[i], err = s.persist(ctx, recs[i], res); err != nil {
			return nil, fmt.Errorf("record %s: %w", recs[i].ID, err)
		}
	}
	return out, nil
}

func (s *Service) persist(ctx context.Context, rec models.Record, res *engine.Result) (*HashResult, error) {
	if err := s.repo.PutAndWriteBack(rec, res); err != nil {
		return nil, err
	}

	payload, err := export.Export(res.Identifiers, export.IdentifierOnly)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, trigger.Event{
		Type:           trigger.TypeIdentifiers,
		RecordID:       rec.ID,
		Payload:        string(payload),
		FramesChecksum: res.FramesChecksum,
	})

	return &HashResult{
		RecordID:       rec.ID,
		Identifiers:    res.Identifiers,
		FramesChecksum: res.FramesChecksum,
	}, nil
}

// publish is best effort: identifiers are already stored when it runs.
func (s *Service) publish(ctx context.Context, ev trigger.Event) {
	if err := s.pub.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish failed",
			slog.String("type", ev.Type),
			slog.String("record_id", ev.RecordID),
			slog.String("error", err.Error()),
		)
	}
}

// GetRecord returns a stored record.
func (s *Service) GetRecord(_ context.Context, id string) (*models.Record, error) {
	return s.repo.GetRecord(id)
}

// ListRecords returns a page of stored records and the total count.
func (s *Service) ListRecords(_ context.Context, limit, offset int) ([]models.Record, int, error) {
	return s.repo.ListRecords(limit, offset)
}

// DeleteRecord removes a record with its identifier history.
func (s *Service) DeleteRecord(ctx context.Context, id string) error {
	if err := s.repo.DeleteRecord(id); err != nil {
		return err
	}
	s.publish(ctx, trigger.Event{Type: trigger.TypeRecordDeleted, RecordID: id})
	return nil
}

// Search delegates full-text search over record fields to the store.
func (s *Service) Search(_ context.Context, query string, limit int) ([]store.SearchResult, error) {
	return s.repo.SearchRecords(query, limit)
}

// Identifiers returns the current identifiers of a record.
func (s *Service) Identifiers(_ context.Context, recordID string) ([]models.StoredIdentifier, error) {
	if _, err := s.repo.GetRecord(recordID); err != nil {
		return nil, err
	}
	return s.repo.Identifiers(recordID)
}

// History returns every identifier written for one hash field of a record,
// oldest first.
func (s *Service) History(_ context.Context, recordID, hashField string) ([]models.StoredIdentifier, error) {
	rows, err := s.repo.History(recordID, hashField)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.ErrNotFound
	}
	return rows, nil
}

// LookupSCH returns current identifiers sharing a content segment.
func (s *Service) LookupSCH(_ context.Context, sch string) ([]models.StoredIdentifier, error) {
	if _, err := base96.Decode(sch); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
	}
	return s.repo.LookupSCH(sch)
}

// Mapping rebuilds the export mapping of a record's current identifiers.
func (s *Service) Mapping(ctx context.Context, recordID string) (export.Mapping, error) {
	rows, err := s.Identifiers(ctx, recordID)
	if err != nil {
		return nil, err
	}
	m := make(export.Mapping, len(rows))
	for _, row := range rows {
		kind, err := composite.ParseKind(row.Kind)
		if err != nil {
			return nil, fmt.Errorf("record %s field %s: %w", recordID, row.HashField, err)
		}
		id, err := composite.Parse(row.Value, kind)
		if err != nil {
			return nil, fmt.Errorf("record %s field %s: %w", recordID, row.HashField, err)
		}
		m[row.HashField] = id
	}
	return m, nil
}

// Export renders the current identifiers of the given records. A single
// record is exported on its own; several records form one batch payload.
func (s *Service) Export(ctx context.Context, recordIDs []string, f export.Format, opts ...export.Option) ([]byte, error) {
	if len(recordIDs) == 0 {
		return nil, fmt.Errorf("%w: no record ids", apperr.ErrInvalid)
	}
	ms := make([]export.Mapping, len(recordIDs))
	for i, id := range recordIDs {
		m, err := s.Mapping(ctx, id)
		if err != nil {
			return nil, err
		}
		ms[i] = m
	}
	if len(ms) == 1 {
		return export.Export(ms[0], f, opts...)
	}
	return export.ExportAll(ms, f, opts...)
}

// ExportToSink exports records and writes the payload to the sink under
// name. The format's extension is appended when name has none.
func (s *Service) ExportToSink(ctx context.Context, name string, recordIDs []string, f export.Format, opts ...export.Option) (*models.ExportFile, error) {
	if s.sink == nil {
		return nil, errors.New("hashservice: no export sink configured")
	}
	if name == "" {
		return nil, fmt.Errorf("%w: export name is required", apperr.ErrInvalid)
	}
	if path.Ext(name) == "" {
		name += f.Extension()
	}
	data, err := s.Export(ctx, recordIDs, f, opts...)
	if err != nil {
		return nil, err
	}
	return s.sink.Write(name, data)
}

// ListExports describes every payload in the sink.
func (s *Service) ListExports(_ context.Context) ([]models.ExportFile, error) {
	if s.sink == nil {
		return []models.ExportFile{}, nil
	}
	return s.sink.List("")
}

// ReadExport returns a payload previously written to the sink.
func (s *Service) ReadExport(_ context.Context, name string) ([]byte, error) {
	if s.sink == nil {
		return nil, apperr.ErrNotFound
	}
	data, err := s.sink.Read(name)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.ErrNotFound
	}
	return data, err
}

// DeleteExport removes a payload previously written to the sink.
func (s *Service) DeleteExport(_ context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("%w: export name is required", apperr.ErrInvalid)
	}
	if s.sink == nil {
		return apperr.ErrNotFound
	}
	err := s.sink.Delete(name)
	if errors.Is(err, os.ErrNotExist) {
		return apperr.ErrNotFound
	}
	return err
}

// Import reads a single or batch payload back into mappings. Formats that
// drop field names fail with export.ErrLossy.
func (s *Service) Import(_ context.Context, data []byte, f export.Format) ([]export.Mapping, error) {
	m, err := export.Import(data, f)
	if err == nil {
		return []export.Mapping{m}, nil
	}
	if errors.Is(err, export.ErrLossy) || errors.Is(err, export.ErrUnknownFormat) {
		return nil, err
	}
	ms, batchErr := export.ImportAll(data, f)
	if batchErr != nil {
		return nil, err
	}
	return ms, nil
}

// Verify recomputes the content and time segments of a record's current
// identifier for hashField from the stored record and stamp.
func (s *Service) Verify(_ context.Context, recordID, hashField string) error {
	rec, err := s.repo.GetRecord(recordID)
	if err != nil {
		return err
	}
	stored, err := s.repo.Current(recordID, hashField)
	if err != nil {
		return err
	}
	st := hashgen.Stamp{
		UnixMilli: stored.GeneratedAt.UnixMilli(),
		UUIDSeed:  hashgen.Seed(stored.UUIDSeed),
	}
	return s.engine.Verify(rec.Fields, hashField, stored.Value, st)
}

// Frames returns the active frame set, or nil when none is loaded.
func (s *Service) Frames() *frame.Set {
	return s.engine.Frames()
}

// SetFrames swaps the active frame set and announces the reload.
func (s *Service) SetFrames(ctx context.Context, set *frame.Set) {
	s.engine.SetFrames(set)
	s.publish(ctx, trigger.Event{Type: trigger.TypeFramesReloaded, FramesChecksum: set.Checksum()})
}
