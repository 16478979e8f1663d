package hashgen_test

import (
	"fmt"
	"time"

	"github.com/starford/trihash/internal/base96"
	"github.com/starford/trihash/internal/hashgen"
)

func ExampleGenerator_Reproduce() {
	g := hashgen.New(
		hashgen.WithClock(hashgen.FixedClock(time.UnixMilli(1_700_000_000_000))),
		hashgen.WithRandom(hashgen.FixedRandom(7)),
	)
	seg := g.Generate("reconnaissance|initial recon phase|intel")

	// Only the stamp needs to be persisted to rebuild SCH and CUID later.
	again := hashgen.New().Reproduce("reconnaissance|initial recon phase|intel", seg.Stamp)
	fmt.Println(again.SCH == seg.SCH, again.CUID == seg.CUID, len([]rune(seg.SCH)) == base96.SegmentLen)
	// Output: true true true
}
