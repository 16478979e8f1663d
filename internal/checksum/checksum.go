// Package checksum fingerprints frame documents and exported payloads.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Size is the length of a checksum returned by Sum.
const Size = sha256.Size * 2

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Valid reports whether s has the shape of a Sum result.
func Valid(s string) bool {
	if len(s) != Size {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
