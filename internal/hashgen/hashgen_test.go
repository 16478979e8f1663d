package hashgen

import (
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/murmur3"

	"github.com/starford/trihash/internal/base96"
	"github.com/starford/trihash/internal/normalize"
)

const scenarioInput = "reconnaissance|initial recon phase|intel"

func TestGenerateSegment_Deterministic(t *testing.T) {
	first := GenerateSegment(scenarioInput, SCHSeed())
	for range 100 {
		require.Equal(t, first, GenerateSegment(scenarioInput, SCHSeed()))
	}
	assert.True(t, first.Valid())
}

func TestGenerateSegment_SeedChangesOutput(t *testing.T) {
	a := GenerateSegment(scenarioInput, 0)
	b := GenerateSegment(scenarioInput, 1)
	assert.NotEqual(t, a, b)
}

func TestScenario_SCHReproducibleAcrossRuns(t *testing.T) {
	input := normalize.Normalize(
		[]string{"Reconnaissance", "Initial recon phase", "intel"},
		"|",
		normalize.Options{Lowercase: true, Trim: true},
	)
	require.Equal(t, scenarioInput, input)

	// Two generators stand in for two independent runs with different
	// clocks and random sources.
	run1 := New(WithClock(FixedClock(time.UnixMilli(1_700_000_000_000))), WithRandom(FixedRandom(1))).Generate(input)
	run2 := New(WithClock(FixedClock(time.UnixMilli(1_800_000_000_000))), WithRandom(FixedRandom(2))).Generate(input)

	assert.Equal(t, run1.SCH, run2.SCH)
	assert.NotEqual(t, run1.CUID, run2.CUID)
	assert.NotEqual(t, run1.UUID, run2.UUID)
}

func TestCUIDSeed(t *testing.T) {
	assert.Equal(t, Seed(0), CUIDSeed(0))
	assert.Equal(t, Seed(1_700_000_000_123), CUIDSeed(1_700_000_000_123))
}

func TestGenerateSegment_WideSeed(t *testing.T) {
	ms := int64(1_700_000_000_123)
	seed := CUIDSeed(ms)
	require.Greater(t, uint64(seed), uint64(1)<<32)

	// The high bits of the timestamp take part in the hash.
	low := Seed(uint32(seed))
	assert.NotEqual(t, GenerateSegment(scenarioInput, low), GenerateSegment(scenarioInput, seed))

	h1, h2 := murmur3.SeedSum128(uint64(seed), uint64(seed), []byte(scenarioInput))
	assert.Equal(t, base96.NewDigest(h1, h2), GenerateSegment(scenarioInput, seed))
}

func TestGenerate_SegmentsAreEncoded(t *testing.T) {
	seg := New().Generate(scenarioInput)
	for _, s := range []string{seg.SCH, seg.CUID, seg.UUID} {
		assert.Equal(t, base96.SegmentLen, utf8.RuneCountInString(s))
		assert.True(t, base96.Valid(s), "segment %q", s)
	}
}

func TestGenerate_FixedProviders(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := New(WithClock(FixedClock(at)), WithRandom(FixedRandom(42)))

	a := g.Generate(scenarioInput)
	b := g.Generate(scenarioInput)
	assert.Equal(t, a, b)
	assert.Equal(t, at.UnixMilli(), a.Stamp.UnixMilli)
	assert.Equal(t, Seed(42), a.Stamp.UUIDSeed)
	assert.True(t, at.Equal(a.Stamp.Time()))
}

func TestReproduce_MatchesGenerate(t *testing.T) {
	g := New()
	orig := g.Generate(scenarioInput)

	again := New().Reproduce(scenarioInput, orig.Stamp)
	assert.Equal(t, orig, again)
}

func TestGenerate_UUIDSegmentsDistinct(t *testing.T) {
	const n = 10_000
	g := New()
	seen := make(map[string]struct{}, n)
	var sch string
	for i := range n {
		seg := g.Generate(scenarioInput)
		if i == 0 {
			sch = seg.SCH
		}
		require.Equal(t, sch, seg.SCH)
		seen[seg.UUID] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func BenchmarkGenerate(b *testing.B) {
	g := New()
	b.ReportAllocs()
	for b.Loop() {
		_ = g.Generate(scenarioInput)
	}
}
