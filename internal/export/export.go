// Package export renders mappings of hash field to composite identifier in
// four forms of increasing compactness and reads the lossless ones back.
//
// Every identifier must carry the kind named by its field prefix. Structured,
// Compact and Symbol then round-trip exactly:
//
//	m2, _ := Import(Export(m, f), f) // m2 equals m
//
// IdentifierOnly drops field names. It cannot be imported as a Mapping; use
// ParseIdentifiers to recover the bare identifier list.
package export

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/starford/trihash/internal/composite"
)

// Format selects an export encoding.
type Format uint8

const (
	Structured Format = iota + 1
	Compact
	Symbol
	IdentifierOnly
)

var formatNames = map[Format]string{
	Structured:     "structured",
	Compact:        "compact",
	Symbol:         "symbol",
	IdentifierOnly: "identifiers",
}

var formatAliases = map[string]Format{
	"structured":      Structured,
	"json":            Structured,
	"compact":         Compact,
	"sexp":            Compact,
	"symbol":          Symbol,
	"identifiers":     IdentifierOnly,
	"identifier-only": IdentifierOnly,
	"ids":             IdentifierOnly,
}

// Formats lists every format in increasing compression order.
var Formats = []Format{Structured, Compact, Symbol, IdentifierOnly}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// Lossless reports whether Import can rebuild the exported mapping.
func (f Format) Lossless() bool {
	return f == Structured || f == Compact || f == Symbol
}

// ContentType is the media type used when f is served over HTTP.
func (f Format) ContentType() string {
	if f == Structured {
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}

// Extension is the file suffix used when f is written to a file sink.
func (f Format) Extension() string {
	switch f {
	case Structured:
		return ".json"
	case Compact:
		return ".sexp"
	case Symbol:
		return ".th96"
	case IdentifierOnly:
		return ".ids"
	}
	return ".bin"
}

func (f Format) MarshalText() ([]byte, error) {
	s, ok := formatNames[f]
	if !ok {
		return nil, fmt.Errorf("export: %w: %d", ErrUnknownFormat, uint8(f))
	}
	return []byte(s), nil
}

func (f *Format) UnmarshalText(b []byte) error {
	parsed, err := ParseFormat(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseFormat accepts a format name or one of its aliases in any case.
func ParseFormat(s string) (Format, error) {
	if f, ok := formatAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("export: %w: %q", ErrUnknownFormat, s)
}

var (
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrInvalidFieldName  = errors.New("invalid field name")
	ErrKindMismatch      = errors.New("kind does not match field prefix")
	ErrLossy             = errors.New("format does not retain field names")
	ErrMalformedPayload  = errors.New("malformed payload")
	ErrTableFull         = errors.New("symbol table full")
	ErrUnknownFormat     = errors.New("unknown format")
)

// Error names the field whose value could not be exported or imported.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("export: field %q: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var fieldPattern = regexp.MustCompile(`^(op|sem)_[A-Za-z0-9_]+$`)

// Mapping associates hash field names with their identifiers.
type Mapping map[string]composite.Identifier

// Fields returns the field names in sorted order.
func (m Mapping) Fields() []string {
	return slices.Sorted(maps.Keys(m))
}

// Values returns the identifier strings ordered by field name.
func (m Mapping) Values() []string {
	fields := m.Fields()
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = m[f].Value
	}
	return out
}

// Option tunes an export.
type Option func(*options)

type options struct {
	newlines bool
}

// WithoutNewlines concatenates IdentifierOnly output with no separators.
// Fixed-width identifiers keep the stream splittable.
func WithoutNewlines() Option {
	return func(o *options) { o.newlines = false }
}

func newOptions(opts []Option) options {
	o := options{newlines: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type entry struct {
	field string
	id    string
}

// Export renders one mapping. m is never modified.
func Export(m Mapping, f Format, opts ...Option) ([]byte, error) {
	rec, err := prepare(m)
	if err != nil {
		return nil, err
	}
	o := newOptions(opts)
	switch f {
	case Structured:
		return encodeStructured(rec)
	case Compact:
		return encodeCompact(rec), nil
	case Symbol:
		return encodeSymbol([][]entry{rec})
	case IdentifierOnly:
		return encodeIdentifiers([][]entry{rec}, o), nil
	}
	return nil, fmt.Errorf("export: %w: %d", ErrUnknownFormat, uint8(f))
}

// ExportAll renders a batch of mappings as a single payload. Symbol batches
// share one side table, so repeated field and identifier pairs are stored
// once.
func ExportAll(ms []Mapping, f Format, opts ...Option) ([]byte, error) {
	recs := make([][]entry, len(ms))
	for i, m := range ms {
		rec, err := prepare(m)
		if err != nil {
			return nil, fmt.Errorf("export: record %d: %w", i, err)
		}
		recs[i] = rec
	}
	o := newOptions(opts)
	switch f {
	case Structured:
		return encodeStructuredBatch(recs)
	case Compact:
		return encodeCompactBatch(recs), nil
	case Symbol:
		return encodeSymbol(recs)
	case IdentifierOnly:
		return encodeIdentifiers(recs, o), nil
	}
	return nil, fmt.Errorf("export: %w: %d", ErrUnknownFormat, uint8(f))
}

// Write exports m and writes the payload to w. Backpressure and deadlines
// belong to w.
func Write(w io.Writer, m Mapping, f Format, opts ...Option) error {
	data, err := Export(m, f, opts...)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("export: write: %w", err)
	}
	return nil
}

// Import reads a payload produced by Export.
func Import(data []byte, f Format) (Mapping, error) {
	var rec []entry
	var err error
	switch f {
	case Structured:
		rec, err = decodeStructured(data)
	case Compact:
		rec, err = decodeCompact(data)
	case Symbol:
		var recs [][]entry
		recs, err = decodeSymbol(data)
		if err == nil && len(recs) != 1 {
			err = fmt.Errorf("export: %w: %d records, want 1", ErrMalformedPayload, len(recs))
		}
		if err == nil {
			rec = recs[0]
		}
	case IdentifierOnly:
		return nil, fmt.Errorf("export: %s: %w", f, ErrLossy)
	default:
		return nil, fmt.Errorf("export: %w: %d", ErrUnknownFormat, uint8(f))
	}
	if err != nil {
		return nil, err
	}
	return toMapping(rec)
}

// ImportAll reads a payload produced by ExportAll.
func ImportAll(data []byte, f Format) ([]Mapping, error) {
	var recs [][]entry
	var err error
	switch f {
	case Structured:
		recs, err = decodeStructuredBatch(data)
	case Compact:
		recs, err = decodeCompactBatch(data)
	case Symbol:
		recs, err = decodeSymbol(data)
	case IdentifierOnly:
		return nil, fmt.Errorf("export: %s: %w", f, ErrLossy)
	default:
		return nil, fmt.Errorf("export: %w: %d", ErrUnknownFormat, uint8(f))
	}
	if err != nil {
		return nil, err
	}
	out := make([]Mapping, len(recs))
	for i, rec := range recs {
		m, err := toMapping(rec)
		if err != nil {
			return nil, fmt.Errorf("export: record %d: %w", i, err)
		}
		out[i] = m
	}
	return out, nil
}

// prepare validates m and flattens it in field order.
func prepare(m Mapping) ([]entry, error) {
	fields := m.Fields()
	rec := make([]entry, 0, len(fields))
	for _, field := range fields {
		id := m[field]
		kind, err := checkField(field)
		if err != nil {
			return nil, err
		}
		if id.Kind != kind {
			return nil, &Error{Field: field, Err: fmt.Errorf("%w: %w: %s", ErrInvalidIdentifier, ErrKindMismatch, id.Kind)}
		}
		if _, err := composite.Parse(id.Value, kind); err != nil {
			return nil, &Error{Field: field, Err: fmt.Errorf("%w: %w", ErrInvalidIdentifier, err)}
		}
		rec = append(rec, entry{field: field, id: id.Value})
	}
	return rec, nil
}

func checkField(field string) (composite.Kind, error) {
	if !fieldPattern.MatchString(field) {
		return 0, &Error{Field: field, Err: ErrInvalidFieldName}
	}
	kind, _ := composite.KindOf(field)
	return kind, nil
}

// toMapping validates decoded entries. Each field may appear once.
func toMapping(rec []entry) (Mapping, error) {
	m := make(Mapping, len(rec))
	for _, e := range rec {
		kind, err := checkField(e.field)
		if err != nil {
			return nil, err
		}
		if _, dup := m[e.field]; dup {
			return nil, &Error{Field: e.field, Err: fmt.Errorf("%w: duplicate field", ErrMalformedPayload)}
		}
		id, err := composite.Parse(e.id, kind)
		if err != nil {
			return nil, &Error{Field: e.field, Err: fmt.Errorf("%w: %w", ErrInvalidIdentifier, err)}
		}
		m[e.field] = id
	}
	return m, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("export: %w: %s", ErrMalformedPayload, fmt.Sprintf(format, args...))
}
