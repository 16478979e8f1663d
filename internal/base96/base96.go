// Package base96 encodes fixed-width hash digests as 16-symbol printable strings.
//
// The alphabet is the 91 printable ASCII symbols that need no quoting or
// escaping (digits, letters and punctuation except ", ' and \) followed by
// the five Latin-1 symbols U+00A1 through U+00A5. Sixteen symbols carry
// 96^16 = 3^16 * 2^80 distinct values, so a Digest is a 128-bit integer
// restricted to [0, 96^16).
package base96

import (
	"errors"
	"fmt"
	"math/bits"
	"unicode/utf8"
)

const (
	// Size is the number of symbols in the alphabet.
	Size = 96
	// SegmentLen is the number of symbols in an encoded digest.
	SegmentLen = 16
)

const alphabet = "0123456789" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"abcdefghijklmnopqrstuvwxyz" +
	"!#$%&()*+,-./:;<=>?@[]^_`{|}~" +
	"¡¢£¤¥"

// 96^16 = pow3 << lowBits.
const (
	pow3    = 43046721 // 3^16
	lowBits = 80
	hiShift = lowBits - 64
	hiMask  = 1<<hiShift - 1
)

var (
	ErrInvalidLength = errors.New("invalid length")
	ErrInvalidSymbol = errors.New("invalid symbol")
)

var (
	symbols [Size]rune
	// Every symbol is below U+0100, so a byte-sized table covers the alphabet.
	values [256]int8
)

func init() {
	for i := range values {
		values[i] = -1
	}
	n := 0
	for _, r := range alphabet {
		symbols[n] = r
		values[r] = int8(n)
		n++
	}
	if n != Size {
		panic(fmt.Sprintf("base96: alphabet has %d symbols", n))
	}
}

// Alphabet returns the symbols in value order.
func Alphabet() string { return alphabet }

// Contains reports whether r is a Base96 symbol.
func Contains(r rune) bool { return value(r) >= 0 }

func value(r rune) int {
	if r < 0 || r >= 256 {
		return -1
	}
	return int(values[r])
}

// Digest is a 128-bit value in the encodable range [0, 96^16).
type Digest struct {
	Hi uint64
	Lo uint64
}

// NewDigest reduces the 128-bit value hi:lo modulo 96^16.
func NewDigest(hi, lo uint64) Digest {
	// x = q*2^80 + r, so x mod 3^16*2^80 = (q mod 3^16)*2^80 + r.
	q := hi >> hiShift
	return Digest{Hi: (q%pow3)<<hiShift | hi&hiMask, Lo: lo}
}

// Valid reports whether d lies inside the encodable range.
func (d Digest) Valid() bool {
	return d.Hi>>hiShift < pow3
}

// String returns d as 32 hex digits.
func (d Digest) String() string {
	return fmt.Sprintf("%016x%016x", d.Hi, d.Lo)
}

// Encode renders d as exactly SegmentLen symbols, most significant first.
// Digests outside the encodable range are reduced with NewDigest first.
func Encode(d Digest) string {
	if !d.Valid() {
		d = NewDigest(d.Hi, d.Lo)
	}
	var out [SegmentLen]rune
	hi, lo := d.Hi, d.Lo
	for i := SegmentLen - 1; i >= 0; i-- {
		var r uint64
		hi, r = hi/Size, hi%Size
		lo, r = bits.Div64(r, lo, Size)
		out[i] = symbols[r]
	}
	return string(out[:])
}

// Decode parses a SegmentLen-symbol string back into its Digest.
func Decode(s string) (Digest, error) {
	if utf8.RuneCountInString(s) != SegmentLen {
		return Digest{}, &DecodeError{Input: s, Pos: -1, Err: ErrInvalidLength}
	}
	var hi, lo uint64
	pos := 0
	for _, r := range s {
		v := value(r)
		if v < 0 {
			return Digest{}, &DecodeError{Input: s, Pos: pos, Symbol: r, Err: ErrInvalidSymbol}
		}
		mh, ml := bits.Mul64(lo, Size)
		var carry uint64
		lo, carry = bits.Add64(ml, uint64(v), 0)
		hi = hi*Size + mh + carry
		pos++
	}
	return Digest{Hi: hi, Lo: lo}, nil
}

// Valid reports whether s is a well-formed encoded segment.
func Valid(s string) bool {
	n := 0
	for _, r := range s {
		if value(r) < 0 {
			return false
		}
		n++
	}
	return n == SegmentLen
}

// DecodeError describes why a segment could not be decoded.
type DecodeError struct {
	Input  string
	Pos    int
	Symbol rune
	Err    error
}

func (e *DecodeError) Error() string {
	if errors.Is(e.Err, ErrInvalidSymbol) {
		return fmt.Sprintf("base96: %v %q at position %d", e.Err, e.Symbol, e.Pos)
	}
	return fmt.Sprintf("base96: %v: got %d symbols, want %d",
		e.Err, utf8.RuneCountInString(e.Input), SegmentLen)
}

func (e *DecodeError) Unwrap() error { return e.Err }
