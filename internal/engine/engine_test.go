package engine

import (
	"context"
	"fmt"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/trihash/internal/composite"
	"github.com/starford/trihash/internal/export"
	"github.com/starford/trihash/internal/frame"
	"github.com/starford/trihash/internal/hashgen"
)

const frames = `
schema: [task_name, description, category, owner]
frames:
  - frame_name: Task content
    hash_field: sem_content_hash
    input:
      fields: [task_name, description, category]
      separator: "|"
      normalization: {lowercase: true, trim: true}
  - frame_name: Task routing
    hash_field: op_routing_hash
    input:
      fields: [category, owner]
      separator: ":"
`

func testSet(t *testing.T) *frame.Set {
	t.Helper()
	set, err := frame.Parse([]byte(frames))
	require.NoError(t, err)
	return set
}

func scenarioRecord() map[string]string {
	return map[string]string{
		"task_name":   "Reconnaissance",
		"description": "Initial recon phase",
		"category":    "intel",
		"owner":       "alice",
	}
}

func TestHashRecord(t *testing.T) {
	e := New(testSet(t), nil)
	res, err := e.HashRecord(scenarioRecord())
	require.NoError(t, err)

	require.Len(t, res.Identifiers, 2)
	sem := res.Identifiers["sem_content_hash"]
	op := res.Identifiers["op_routing_hash"]
	assert.Equal(t, composite.Semantic, sem.Kind)
	assert.Equal(t, composite.Operational, op.Kind)
	assert.Equal(t, composite.Len, utf8.RuneCountInString(sem.Value))
	assert.Contains(t, res.Stamps, "sem_content_hash")
	assert.Equal(t, testSet(t).Checksum(), res.FramesChecksum)

	// The result is exportable as is.
	_, err = export.Export(res.Identifiers, export.Compact)
	require.NoError(t, err)
}

func TestHashRecord_SCHMatchesNormalizedInput(t *testing.T) {
	e := New(testSet(t), nil)
	res, err := e.HashRecord(scenarioRecord())
	require.NoError(t, err)

	want := hashgen.New().Generate("reconnaissance|initial recon phase|intel").SCH
	assert.Equal(t, want, res.Identifiers["sem_content_hash"].SCH())
}

func TestHashRecord_NormalizationCollapsesVariants(t *testing.T) {
	e := New(testSet(t), nil)
	a, err := e.HashRecord(scenarioRecord())
	require.NoError(t, err)

	rec := scenarioRecord()
	rec["task_name"] = "  RECONNAISSANCE"
	b, err := e.HashRecord(rec)
	require.NoError(t, err)

	assert.Equal(t, a.Identifiers["sem_content_hash"].SCH(), b.Identifiers["sem_content_hash"].SCH())
	assert.NotEqual(t, a.Identifiers["sem_content_hash"].UUID(), b.Identifiers["sem_content_hash"].UUID())
}

func TestHashRecord_MissingFieldsAreEmpty(t *testing.T) {
	e := New(testSet(t), nil)
	rec := scenarioRecord()
	delete(rec, "owner")

	res, err := e.HashRecord(rec)
	require.NoError(t, err)

	withEmpty := scenarioRecord()
	withEmpty["owner"] = ""
	res2, err := e.HashRecord(withEmpty)
	require.NoError(t, err)
	assert.Equal(t, res.Identifiers["op_routing_hash"].SCH(), res2.Identifiers["op_routing_hash"].SCH())

	err = e.CheckRecord(rec)
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), "owner")
	assert.NoError(t, e.CheckRecord(scenarioRecord()))
}

func TestHashRecord_NoFrames(t *testing.T) {
	e := New(nil, nil)
	_, err := e.HashRecord(scenarioRecord())
	assert.ErrorIs(t, err, ErrNoFrames)
}

func TestVerify(t *testing.T) {
	clock := hashgen.FixedClock(time.UnixMilli(1_700_000_000_000))
	e := New(testSet(t), hashgen.New(hashgen.WithClock(clock)))
	rec := scenarioRecord()
	res, err := e.HashRecord(rec)
	require.NoError(t, err)

	id := res.Identifiers["sem_content_hash"].Value
	st := res.Stamps["sem_content_hash"]

	// A fresh engine with a different clock can still verify.
	other := New(testSet(t), nil)
	require.NoError(t, other.Verify(rec, "sem_content_hash", id, st))

	changed := scenarioRecord()
	changed["description"] = "Second phase"
	assert.ErrorIs(t, other.Verify(changed, "sem_content_hash", id, st), ErrMismatch)

	wrongStamp := st
	wrongStamp.UnixMilli++
	assert.ErrorIs(t, other.Verify(rec, "sem_content_hash", id, wrongStamp), ErrMismatch)

	assert.ErrorIs(t, other.Verify(rec, "op_missing", id, st), ErrUnknownField)
	assert.ErrorIs(t, other.Verify(rec, "sem_content_hash", "bad", st), composite.ErrMalformed)
}

func TestSetFrames(t *testing.T) {
	e := New(testSet(t), nil)
	next, err := frame.NewSet(frame.Document{
		Schema: []string{"title"},
		Frames: []frame.Spec{{Name: "Title", HashField: "op_title_hash", Input: frame.Input{Fields: []string{"title"}}}},
	})
	require.NoError(t, err)

	e.SetFrames(next)
	res, err := e.HashRecord(map[string]string{"title": "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"op_title_hash"}, res.Identifiers.Fields())
}

func TestHashRecords(t *testing.T) {
	e := New(testSet(t), nil)
	recs := make([]map[string]string, 200)
	for i := range recs {
		rec := scenarioRecord()
		rec["task_name"] = fmt.Sprintf("task-%d", i)
		recs[i] = rec
	}

	results, err := e.HashRecords(context.Background(), recs, 8)
	require.NoError(t, err)
	require.Len(t, results, len(recs))

	for i, res := range results {
		want := hashgen.New().Generate(Input(mustLookup(t, e, "sem_content_hash"), recs[i])).SCH
		require.Equal(t, want, res.Identifiers["sem_content_hash"].SCH(), "record %d out of order", i)
	}
}

func TestHashRecords_Cancelled(t *testing.T) {
	e := New(testSet(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.HashRecords(ctx, []map[string]string{scenarioRecord()}, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func mustLookup(t *testing.T, e *Engine, field string) frame.Spec {
	t.Helper()
	spec, ok := e.Frames().Lookup(field)
	require.True(t, ok)
	return spec
}
