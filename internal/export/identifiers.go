package export

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/starford/trihash/internal/composite"
)

func encodeIdentifiers(recs [][]entry, o options) []byte {
	var b bytes.Buffer
	for _, rec := range recs {
		for _, e := range rec {
			b.WriteString(e.id)
			if o.newlines {
				b.WriteByte('\n')
			}
		}
	}
	return b.Bytes()
}

// ParseIdentifiers splits an IdentifierOnly payload back into identifiers.
// Newline-separated and concatenated payloads are both accepted. The kind of
// each identifier is unknown and left zero.
func ParseIdentifiers(data []byte) ([]composite.Identifier, error) {
	s := string(data)
	var values []string
	if strings.ContainsAny(s, "\r\n") {
		for _, line := range strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' }) {
			values = append(values, line)
		}
	} else {
		if !utf8.ValidString(s) {
			return nil, malformed("identifiers: invalid UTF-8")
		}
		r := []rune(s)
		if len(r)%composite.Len != 0 {
			return nil, malformed("identifiers: %d symbols is not a multiple of %d", len(r), composite.Len)
		}
		for i := 0; i < len(r); i += composite.Len {
			values = append(values, string(r[i:i+composite.Len]))
		}
	}

	out := make([]composite.Identifier, 0, len(values))
	for i, v := range values {
		id, err := composite.Parse(v, 0)
		if err != nil {
			return nil, fmt.Errorf("export: identifier %d: %w: %w", i, ErrInvalidIdentifier, err)
		}
		out = append(out, id)
	}
	return out, nil
}
