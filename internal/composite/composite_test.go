package composite

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/trihash/internal/base96"
	"github.com/starford/trihash/internal/hashgen"
)

var (
	segA = strings.Repeat("A", base96.SegmentLen)
	segB = strings.Repeat("b", base96.SegmentLen)
	segC = strings.Repeat("¥", base96.SegmentLen)
)

func TestAssemble(t *testing.T) {
	id, err := Assemble(segA, segB, segC, Semantic)
	require.NoError(t, err)
	assert.Equal(t, Len, utf8.RuneCountInString(id.Value))
	assert.Equal(t, Semantic, id.Kind)
	assert.Equal(t, segA, id.SCH())
	assert.Equal(t, segB, id.CUID())
	assert.Equal(t, segC, id.UUID())
}

func TestAssemble_ShortSCH(t *testing.T) {
	_, err := Assemble(segA[:15], segB, segC, Operational)
	require.ErrorIs(t, err, ErrSegmentLengthMismatch)

	var aerr *AssemblyError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "SCH", aerr.Segment)
	assert.Equal(t, 15, aerr.Got)
}

func TestAssemble_LengthInvariant(t *testing.T) {
	lengths := []int{0, 1, 15, 16, 17, 32}
	for _, a := range lengths {
		for _, b := range lengths {
			for _, c := range lengths {
				id, err := Assemble(strings.Repeat("x", a), strings.Repeat("y", b), strings.Repeat("z", c), Operational)
				if err != nil {
					require.ErrorIs(t, err, ErrSegmentLengthMismatch)
					continue
				}
				require.Equal(t, Len, utf8.RuneCountInString(id.Value))
			}
		}
	}
}

func TestAssemble_GeneratedSegments(t *testing.T) {
	seg := hashgen.New().Generate("reconnaissance|initial recon phase|intel")
	id := MustAssemble(seg.SCH, seg.CUID, seg.UUID, Operational)
	assert.Equal(t, Len, utf8.RuneCountInString(id.Value))

	_, err := Parse(id.Value, Operational)
	assert.NoError(t, err)
}

func TestMustAssemble_Panics(t *testing.T) {
	assert.Panics(t, func() { MustAssemble(segA, segB, "short", Operational) })
}

func TestParse(t *testing.T) {
	good := segA + segB + segC
	id, err := Parse(good, 0)
	require.NoError(t, err)
	assert.Equal(t, good, id.Value)

	_, err = Parse(good[:len(good)-2], Semantic)
	assert.ErrorIs(t, err, ErrMalformed)

	bad := []rune(good)
	bad[20] = '"'
	_, err = Parse(string(bad), Semantic)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestKind(t *testing.T) {
	k, ok := KindOf("op_content_hash")
	require.True(t, ok)
	assert.Equal(t, Operational, k)

	k, ok = KindOf("sem_content_hash")
	require.True(t, ok)
	assert.Equal(t, Semantic, k)

	_, ok = KindOf("content_hash")
	assert.False(t, ok)

	assert.Equal(t, "op_", Operational.Prefix())
	assert.Equal(t, "sem_", Semantic.Prefix())
	assert.Empty(t, Kind(0).Prefix())
}

func TestKind_Text(t *testing.T) {
	b, err := Semantic.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "semantic", string(b))

	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("op")))
	assert.Equal(t, Operational, k)

	assert.ErrorIs(t, k.UnmarshalText([]byte("other")), ErrUnknownKind)
	_, err = Kind(9).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownKind)
}
