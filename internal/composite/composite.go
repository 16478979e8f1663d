// Package composite assembles three Base96 segments into a 48-symbol
// SCH-CUID-UUID identifier.
package composite

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/starford/trihash/internal/base96"
)

// Len is the number of symbols in a composite identifier.
const Len = 3 * base96.SegmentLen

// Kind tells whether an identifier is stored under an op_ or a sem_ field.
// It is metadata and never part of the identifier's symbols.
type Kind uint8

const (
	Operational Kind = iota + 1
	Semantic
)

const (
	operationalPrefix = "op_"
	semanticPrefix    = "sem_"
)

var (
	ErrSegmentLengthMismatch = errors.New("segment length mismatch")
	ErrMalformed             = errors.New("malformed identifier")
	ErrUnknownKind           = errors.New("unknown hash kind")
)

// Prefix returns the field-name prefix for k.
func (k Kind) Prefix() string {
	switch k {
	case Operational:
		return operationalPrefix
	case Semantic:
		return semanticPrefix
	}
	return ""
}

func (k Kind) String() string {
	switch k {
	case Operational:
		return "operational"
	case Semantic:
		return "semantic"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	if k.Prefix() == "" {
		return nil, fmt.Errorf("composite: %w: %d", ErrUnknownKind, uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind accepts "operational", "semantic" or the bare prefixes "op" and "sem".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "operational", "op":
		return Operational, nil
	case "semantic", "sem":
		return Semantic, nil
	}
	return 0, fmt.Errorf("composite: %w: %q", ErrUnknownKind, s)
}

// KindOf derives the kind from a hash field name. It reports false when the
// name carries neither prefix.
func KindOf(field string) (Kind, bool) {
	switch {
	case strings.HasPrefix(field, operationalPrefix):
		return Operational, true
	case strings.HasPrefix(field, semanticPrefix):
		return Semantic, true
	}
	return 0, false
}

// Identifier is a composite identifier and the kind it is stored under.
type Identifier struct {
	Value string
	Kind  Kind
}

func (id Identifier) String() string { return id.Value }

// SCH returns the content segment.
func (id Identifier) SCH() string { return id.segment(0) }

// CUID returns the time-seeded segment.
func (id Identifier) CUID() string { return id.segment(1) }

// UUID returns the random-seeded segment.
func (id Identifier) UUID() string { return id.segment(2) }

func (id Identifier) segment(i int) string {
	r := []rune(id.Value)
	if len(r) != Len {
		return ""
	}
	return string(r[i*base96.SegmentLen : (i+1)*base96.SegmentLen])
}

// AssemblyError reports a segment of the wrong length.
type AssemblyError struct {
	Segment string
	Got     int
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("composite: %s: %s segment has %d symbols, want %d",
		ErrSegmentLengthMismatch, e.Segment, e.Got, base96.SegmentLen)
}

func (e *AssemblyError) Unwrap() error { return ErrSegmentLengthMismatch }

// Assemble concatenates sch, cuid and uuid. Each must be exactly
// base96.SegmentLen symbols; their content is not inspected.
func Assemble(sch, cuid, uuid string, kind Kind) (Identifier, error) {
	for _, seg := range []struct{ name, v string }{{"SCH", sch}, {"CUID", cuid}, {"UUID", uuid}} {
		if n := utf8.RuneCountInString(seg.v); n != base96.SegmentLen {
			return Identifier{}, &AssemblyError{Segment: seg.name, Got: n}
		}
	}
	return Identifier{Value: sch + cuid + uuid, Kind: kind}, nil
}

// MustAssemble is Assemble for segments produced by base96.Encode. A length
// mismatch there is a wiring fault, so it panics.
func MustAssemble(sch, cuid, uuid string, kind Kind) Identifier {
	id, err := Assemble(sch, cuid, uuid, kind)
	if err != nil {
		panic(err)
	}
	return id
}

// Parse validates a stored identifier: Len symbols, every one in the Base96
// alphabet. A zero kind is allowed when the storage field is unknown.
func Parse(value string, kind Kind) (Identifier, error) {
	n := 0
	for i, r := range value {
		if !base96.Contains(r) {
			return Identifier{}, fmt.Errorf("composite: %w: symbol %q at byte %d", ErrMalformed, r, i)
		}
		n++
	}
	if n != Len {
		return Identifier{}, fmt.Errorf("composite: %w: %d symbols, want %d", ErrMalformed, n, Len)
	}
	return Identifier{Value: value, Kind: kind}, nil
}
