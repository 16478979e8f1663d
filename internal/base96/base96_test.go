package base96

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlphabet_Shape(t *testing.T) {
	assert.Equal(t, Size, utf8.RuneCountInString(Alphabet()))

	seen := make(map[rune]bool)
	for _, r := range Alphabet() {
		assert.False(t, seen[r], "duplicate symbol %q", r)
		seen[r] = true
		assert.NotContains(t, []rune{'"', '\'', '\\', ' '}, r)
	}
}

func TestEncode_Zero(t *testing.T) {
	assert.Equal(t, "0000000000000000", Encode(Digest{}))
}

func TestEncode_Max(t *testing.T) {
	max := Digest{Hi: (pow3-1)<<hiShift | hiMask, Lo: ^uint64(0)}
	require.True(t, max.Valid())
	assert.Equal(t, strings.Repeat("¥", SegmentLen), Encode(max))
	assert.False(t, Digest{Hi: pow3 << hiShift}.Valid())
}

func TestNewDigest_ReducesIntoRange(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for range 1000 {
		d := NewDigest(r.Uint64(), r.Uint64())
		require.True(t, d.Valid(), "digest %s out of range", d)
	}
	// Values already in range are untouched.
	d := Digest{Hi: 12345, Lo: 678}
	assert.Equal(t, d, NewDigest(d.Hi, d.Lo))
}

func TestRoundTrip_Digests(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for range 5000 {
		d := NewDigest(r.Uint64(), r.Uint64())
		s := Encode(d)
		require.Equal(t, SegmentLen, utf8.RuneCountInString(s))
		got, err := Decode(s)
		require.NoError(t, err)
		require.Equal(t, d, got)
	}
}

func TestRoundTrip_Strings(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	syms := []rune(Alphabet())
	for range 5000 {
		var b strings.Builder
		for range SegmentLen {
			b.WriteRune(syms[r.IntN(Size)])
		}
		s := b.String()
		d, err := Decode(s)
		require.NoError(t, err)
		require.True(t, d.Valid())
		require.Equal(t, s, Encode(d))
	}
}

func TestDecode_InvalidSymbol(t *testing.T) {
	_, err := Decode(`0123456"89ABCDEF`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSymbol))

	var derr *DecodeError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, 7, derr.Pos)
	assert.Equal(t, '"', derr.Symbol)
}

func TestDecode_InvalidLength(t *testing.T) {
	for _, s := range []string{"", "abc", strings.Repeat("a", 15), strings.Repeat("a", 17)} {
		_, err := Decode(s)
		assert.ErrorIs(t, err, ErrInvalidLength, "input %q", s)
	}
}

func TestDecode_CountsSymbolsNotBytes(t *testing.T) {
	s := strings.Repeat("¡", SegmentLen)
	require.Greater(t, len(s), SegmentLen)
	_, err := Decode(s)
	assert.NoError(t, err)
}

func TestDecode_InvalidUTF8(t *testing.T) {
	_, err := Decode("\xff" + strings.Repeat("a", SegmentLen-1))
	assert.ErrorIs(t, err, ErrInvalidSymbol)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(Encode(Digest{Hi: 1, Lo: 2})))
	assert.False(t, Valid("short"))
	assert.False(t, Valid(`\123456789ABCDEF`))
	assert.True(t, Contains('~'))
	assert.False(t, Contains('\''))
}
