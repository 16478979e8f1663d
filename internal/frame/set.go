package frame

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/starford/trihash/internal/checksum"
	pkgconfig "github.com/starford/trihash/pkg/config"
)

// Set is a validated, immutable collection of frames.
type Set struct {
	schema   []string
	frames   []Spec
	byField  map[string]int
	checksum string
}

// Load reads and validates the frame document at path.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("frame: read %s: %w", path, err)
	}
	set, err := parse(data)
	if err != nil {
		return nil, &ValidationError{Source: path, Err: err}
	}
	return set, nil
}

// Parse validates a frame document held in memory.
func Parse(data []byte) (*Set, error) {
	set, err := parse(data)
	if err != nil {
		return nil, &ValidationError{Err: err}
	}
	return set, nil
}

func parse(data []byte) (*Set, error) {
	var doc Document
	if err := pkgconfig.Decode(data, &doc); err != nil {
		return nil, err
	}
	return newSet(doc, checksum.Sum(data)), nil
}

// NewSet validates doc built in code. Its checksum covers the canonical YAML
// rendering of doc.
func NewSet(doc Document) (*Set, error) {
	doc = Document{Schema: slices.Clone(doc.Schema), Frames: cloneSpecs(doc.Frames)}
	if err := doc.Validate(); err != nil {
		return nil, &ValidationError{Err: err}
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("frame: marshal document: %w", err)
	}
	return newSet(doc, checksum.Sum(data)), nil
}

func newSet(doc Document, checksum string) *Set {
	s := &Set{
		schema:   doc.Schema,
		frames:   doc.Frames,
		byField:  make(map[string]int, len(doc.Frames)),
		checksum: checksum,
	}
	for i, f := range doc.Frames {
		s.byField[f.HashField] = i
	}
	return s
}

// Frames returns the frames in document order.
func (s *Set) Frames() []Spec { return cloneSpecs(s.frames) }

// Lookup returns the frame producing hashField.
func (s *Set) Lookup(hashField string) (Spec, bool) {
	i, ok := s.byField[hashField]
	if !ok {
		return Spec{}, false
	}
	return cloneSpecs(s.frames[i : i+1])[0], true
}

// Schema returns the record fields frames may reference.
func (s *Set) Schema() []string { return slices.Clone(s.schema) }

// Len returns the number of frames.
func (s *Set) Len() int { return len(s.frames) }

// Checksum is the hex SHA-256 of the source document.
func (s *Set) Checksum() string { return s.checksum }

func cloneSpecs(in []Spec) []Spec {
	out := make([]Spec, len(in))
	for i, s := range in {
		s.Input.Fields = slices.Clone(s.Input.Fields)
		out[i] = s
	}
	return out
}
