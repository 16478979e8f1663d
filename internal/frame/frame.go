// Package frame loads and validates frame documents: the declarative rules
// that say which record fields feed each hash field and how they are
// normalized and seeded.
package frame

import (
	"errors"
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/trihash/internal/composite"
	"github.com/starford/trihash/internal/normalize"
)

// Seed strategies. Each segment accepts exactly one.
const (
	StrategyFixed     = "fixed"
	StrategyTimestamp = "timestamp"
	StrategyRandom    = "random"
)

// HashFieldPattern is the accepted shape of a hash field name.
var HashFieldPattern = regexp.MustCompile(`^(op|sem)_[A-Za-z0-9_]+$`)

var ErrInvalidFrame = errors.New("invalid frame")

// Spec describes one hash field.
type Spec struct {
	Name      string `yaml:"frame_name" json:"frame_name"`
	HashField string `yaml:"hash_field" json:"hash_field"`
	Input     Input  `yaml:"input" json:"input"`
	Seeds     Seeds  `yaml:"seeds" json:"seeds"`
}

// Input selects and prepares the source fields.
type Input struct {
	Fields        []string          `yaml:"fields" json:"fields"`
	Separator     string            `yaml:"separator" json:"separator"`
	Normalization normalize.Options `yaml:"normalization" json:"normalization"`
}

// Seeds names the seed strategy of each segment. Omitted entries take the
// only strategy the segment accepts.
type Seeds struct {
	SCH  string `yaml:"sch" json:"sch"`
	CUID string `yaml:"cuid" json:"cuid"`
	UUID string `yaml:"uuid" json:"uuid"`
}

// Kind reports whether the frame produces an operational or semantic
// identifier.
func (s Spec) Kind() composite.Kind {
	k, _ := composite.KindOf(s.HashField)
	return k
}

func (s *Spec) applyDefaults() {
	if s.Seeds.SCH == "" {
		s.Seeds.SCH = StrategyFixed
	}
	if s.Seeds.CUID == "" {
		s.Seeds.CUID = StrategyTimestamp
	}
	if s.Seeds.UUID == "" {
		s.Seeds.UUID = StrategyRandom
	}
}

// Validate checks a single frame in isolation.
func (s Spec) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.HashField, validation.Required,
			validation.Match(HashFieldPattern).Error("must start with op_ or sem_ followed by letters, digits or underscores")),
		validation.Field(&s.Input),
		validation.Field(&s.Seeds),
	)
}

func (in Input) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Fields, validation.Required, validation.Each(validation.Required)),
		validation.Field(&in.Normalization, validation.By(func(v any) error {
			opts, _ := v.(normalize.Options)
			if !opts.Form.Valid() {
				return fmt.Errorf("unknown unicode form %q", opts.Form)
			}
			return nil
		})),
	)
}

func (s Seeds) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.SCH, validation.In(StrategyFixed)),
		validation.Field(&s.CUID, validation.In(StrategyTimestamp)),
		validation.Field(&s.UUID, validation.In(StrategyRandom)),
	)
}

// Document is the on-disk shape of a frame file.
type Document struct {
	Schema []string `yaml:"schema" json:"schema"`
	Frames []Spec   `yaml:"frames" json:"frames"`
}

// Validate checks every frame and the cross-frame rules: one frame per hash
// field, and input fields drawn from the schema.
func (d *Document) Validate() error {
	for i := range d.Frames {
		d.Frames[i].applyDefaults()
	}
	if err := validation.ValidateStruct(d,
		validation.Field(&d.Schema, validation.Required, validation.Each(validation.Required)),
		validation.Field(&d.Frames, validation.Required),
	); err != nil {
		return err
	}

	schema := make(map[string]struct{}, len(d.Schema))
	for _, f := range d.Schema {
		schema[f] = struct{}{}
	}
	seen := make(map[string]string, len(d.Frames))
	for i, s := range d.Frames {
		if prev, dup := seen[s.HashField]; dup {
			return fmt.Errorf("frames[%d]: hash field %q already defined by frame %q", i, s.HashField, prev)
		}
		seen[s.HashField] = s.Name
		for _, f := range s.Input.Fields {
			if _, ok := schema[f]; !ok {
				return fmt.Errorf("frames[%d] %q: input field %q is not in the schema", i, s.Name, f)
			}
		}
	}
	return nil
}

// ValidationError reports a frame document that may not be used.
type ValidationError struct {
	Source string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("frame: %s: %v", ErrInvalidFrame, e.Err)
	}
	return fmt.Sprintf("frame: %s %s: %v", ErrInvalidFrame, e.Source, e.Err)
}

func (e *ValidationError) Unwrap() []error { return []error{ErrInvalidFrame, e.Err} }
