// Package engine runs records through the frame set: field selection,
// normalization, seeded sub-hashing and composite assembly.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/starford/trihash/internal/composite"
	"github.com/starford/trihash/internal/export"
	"github.com/starford/trihash/internal/frame"
	"github.com/starford/trihash/internal/hashgen"
	"github.com/starford/trihash/internal/normalize"
)

var (
	ErrNoFrames     = errors.New("no frames loaded")
	ErrUnknownField = errors.New("unknown hash field")
	ErrMissingField = errors.New("missing record field")
	ErrMismatch     = errors.New("identifier does not match record")
)

// Result holds the identifiers produced for one record and the stamps needed
// to reproduce their CUID segments.
type Result struct {
	Identifiers export.Mapping
	Stamps      map[string]hashgen.Stamp
	// FramesChecksum identifies the frame set the result was computed with.
	FramesChecksum string
}

// Engine is safe for concurrent use. The frame set may be swapped while
// records are being hashed; each call works against a single snapshot.
type Engine struct {
	frames atomic.Pointer[frame.Set]
	gen    *hashgen.Generator
}

func New(set *frame.Set, gen *hashgen.Generator) *Engine {
	if gen == nil {
		gen = hashgen.New()
	}
	e := &Engine{gen: gen}
	if set != nil {
		e.frames.Store(set)
	}
	return e
}

// SetFrames replaces the active frame set.
func (e *Engine) SetFrames(set *frame.Set) { e.frames.Store(set) }

// Frames returns the active frame set, or nil.
func (e *Engine) Frames() *frame.Set { return e.frames.Load() }

func (e *Engine) snapshot() (*frame.Set, error) {
	set := e.frames.Load()
	if set == nil || set.Len() == 0 {
		return nil, ErrNoFrames
	}
	return set, nil
}

// Input builds the normalized hash input of spec for rec. Missing fields
// contribute empty strings.
func Input(spec frame.Spec, rec map[string]string) string {
	return normalize.Normalize(
		normalize.Fields(rec, spec.Input.Fields),
		spec.Input.Separator,
		spec.Input.Normalization,
	)
}

// HashRecord produces one identifier per frame.
func (e *Engine) HashRecord(rec map[string]string) (*Result, error) {
	set, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	return e.hash(set, rec), nil
}

func (e *Engine) hash(set *frame.Set, rec map[string]string) *Result {
	frames := set.Frames()
	res := &Result{
		Identifiers:    make(export.Mapping, len(frames)),
		Stamps:         make(map[string]hashgen.Stamp, len(frames)),
		FramesChecksum: set.Checksum(),
	}
	for _, spec := range frames {
		seg := e.gen.Generate(Input(spec, rec))
		res.Identifiers[spec.HashField] = composite.MustAssemble(seg.SCH, seg.CUID, seg.UUID, spec.Kind())
		res.Stamps[spec.HashField] = seg.Stamp
	}
	return res
}

// HashRecords hashes recs on up to workers goroutines. Results keep the order
// of recs. All records are hashed against the same frame set.
func (e *Engine) HashRecords(ctx context.Context, recs []map[string]string, workers int) ([]*Result, error) {
	set, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}

	out := make([]*Result, len(recs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rec := range recs {
		if gCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			out[i] = e.hash(set, rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckRecord reports every frame input field absent from rec. Hashing
// treats those as empty; callers that want strictness check first.
func (e *Engine) CheckRecord(rec map[string]string) error {
	set, err := e.snapshot()
	if err != nil {
		return err
	}
	var errs []error
	seen := make(map[string]bool)
	for _, spec := range set.Frames() {
		for _, f := range spec.Input.Fields {
			if _, ok := rec[f]; ok || seen[f] {
				continue
			}
			seen[f] = true
			errs = append(errs, fmt.Errorf("engine: %w: %q (frame %q)", ErrMissingField, f, spec.Name))
		}
	}
	return errors.Join(errs...)
}

// Verify recomputes the SCH and CUID segments of the identifier stored under
// hashField and compares them with id. The UUID segment is never
// reproducible and is not compared.
func (e *Engine) Verify(rec map[string]string, hashField, id string, st hashgen.Stamp) error {
	set, err := e.snapshot()
	if err != nil {
		return err
	}
	spec, ok := set.Lookup(hashField)
	if !ok {
		return fmt.Errorf("engine: %w: %q", ErrUnknownField, hashField)
	}
	stored, err := composite.Parse(id, spec.Kind())
	if err != nil {
		return fmt.Errorf("engine: verify %s: %w", hashField, err)
	}
	seg := e.gen.Reproduce(Input(spec, rec), st)
	if seg.SCH != stored.SCH() {
		return fmt.Errorf("engine: %w: %s content segment differs", ErrMismatch, hashField)
	}
	if seg.CUID != stored.CUID() {
		return fmt.Errorf("engine: %w: %s time segment differs", ErrMismatch, hashField)
	}
	return nil
}
