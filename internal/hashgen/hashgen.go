// Package hashgen derives the three seeded sub-hashes of a composite
// identifier from normalized input.
package hashgen

import (
	"math/rand/v2"
	"time"

	"github.com/twmb/murmur3"

	"github.com/starford/trihash/internal/base96"
)

// Seed selects one member of the Murmur3 x64-128 family. Seeds are 64 bits
// wide and both halves of the hash state are initialized with the full
// value, so a CUID seed (the whole Unix millisecond count, past 2^32) is not
// reproducible by a Murmur3 x64-128 that only accepts a 32-bit seed.
type Seed uint64

// SeedConstant is the fixed seed shared by every SCH segment.
const SeedConstant Seed = 0

// SCHSeed returns the seed of the content segment.
func SCHSeed() Seed { return SeedConstant }

// CUIDSeed combines the fixed constant with a Unix millisecond timestamp.
func CUIDSeed(unixMilli int64) Seed { return SeedConstant ^ Seed(unixMilli) }

// GenerateSegment hashes the UTF-8 bytes of input with seed and reduces the
// result into the Base96 domain.
func GenerateSegment(input string, seed Seed) base96.Digest {
	h1, h2 := murmur3.SeedSum128(uint64(seed), uint64(seed), []byte(input))
	return base96.NewDigest(h1, h2)
}

// Clock supplies the generation instant.
type Clock interface {
	Now() time.Time
}

// RandomSource supplies UUID seeds. Implementations must be safe for
// concurrent use.
type RandomSource interface {
	Uint64() uint64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// SystemRandom draws from the runtime's goroutine-safe generator.
type SystemRandom struct{}

func (SystemRandom) Uint64() uint64 { return rand.Uint64() }

// FixedClock always reports the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// FixedRandom always returns the same value.
type FixedRandom uint64

func (r FixedRandom) Uint64() uint64 { return uint64(r) }

// Stamp records the environment values a generation consumed. Storing it is
// enough to reproduce the CUID segment later; the UUID seed is kept for
// auditing only.
type Stamp struct {
	UnixMilli int64 `json:"generated_ms"`
	UUIDSeed  Seed  `json:"uuid_seed"`
}

// Time returns the generation instant at millisecond resolution.
func (s Stamp) Time() time.Time { return time.UnixMilli(s.UnixMilli).UTC() }

// Segments holds the three encoded segments in identifier order.
type Segments struct {
	SCH   string
	CUID  string
	UUID  string
	Stamp Stamp
}

// Generator produces segments using injected time and randomness.
type Generator struct {
	clock  Clock
	random RandomSource
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(g *Generator) { g.clock = c }
}

// WithRandom overrides the UUID seed source.
func WithRandom(r RandomSource) Option {
	return func(g *Generator) { g.random = r }
}

func New(opts ...Option) *Generator {
	g := &Generator{clock: SystemClock{}, random: SystemRandom{}}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate reads the clock and random source once each and derives all three
// segments of input.
func (g *Generator) Generate(input string) Segments {
	return g.Reproduce(input, Stamp{
		UnixMilli: g.clock.Now().UnixMilli(),
		UUIDSeed:  Seed(g.random.Uint64()),
	})
}

// Reproduce derives the segments for a recorded stamp. SCH and CUID match the
// original generation byte for byte.
func (g *Generator) Reproduce(input string, st Stamp) Segments {
	return Segments{
		SCH:   base96.Encode(GenerateSegment(input, SCHSeed())),
		CUID:  base96.Encode(GenerateSegment(input, CUIDSeed(st.UnixMilli))),
		UUID:  base96.Encode(GenerateSegment(input, st.UUIDSeed)),
		Stamp: st,
	}
}
