package base96

import (
	"encoding/base64"
	"testing"
)

// Both benchmarks decode a 16-symbol string; base64 carries 96 bits in it,
// Base96 carries ~105.

var sinkDigest Digest

func BenchmarkDecode(b *testing.B) {
	s := Encode(NewDigest(0x0123456789abcdef, 0xfedcba9876543210))
	b.ReportAllocs()
	for b.Loop() {
		d, err := Decode(s)
		if err != nil {
			b.Fatal(err)
		}
		sinkDigest = d
	}
}

func BenchmarkDecodeBase64(b *testing.B) {
	s := base64.StdEncoding.EncodeToString([]byte("0123456789ab"))
	buf := make([]byte, base64.StdEncoding.DecodedLen(len(s)))
	b.ReportAllocs()
	for b.Loop() {
		if _, err := base64.StdEncoding.Decode(buf, []byte(s)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEncode(b *testing.B) {
	d := NewDigest(0x0123456789abcdef, 0xfedcba9876543210)
	b.ReportAllocs()
	for b.Loop() {
		_ = Encode(d)
	}
}
