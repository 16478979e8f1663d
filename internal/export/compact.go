package export

import (
	"bytes"
	"strings"
)

// Compact grammar, whitespace allowed between tokens on input only:
//
//	batch  = "(" "records" { hashes } ")"
//	hashes = "(" "hashes" { pair } ")"
//	pair   = "(" field `"` identifier `"` ")"
//
// Identifiers never contain a double quote, so no escaping exists.

const (
	hashesSym  = "hashes"
	recordsSym = "records"
)

func writeHashes(b *bytes.Buffer, rec []entry) {
	b.WriteString("(" + hashesSym)
	for _, e := range rec {
		b.WriteByte('(')
		b.WriteString(e.field)
		b.WriteString(` "`)
		b.WriteString(e.id)
		b.WriteString(`")`)
	}
	b.WriteByte(')')
}

func encodeCompact(rec []entry) []byte {
	var b bytes.Buffer
	writeHashes(&b, rec)
	return b.Bytes()
}

func encodeCompactBatch(recs [][]entry) []byte {
	var b bytes.Buffer
	b.WriteString("(" + recordsSym)
	for _, rec := range recs {
		writeHashes(&b, rec)
	}
	b.WriteByte(')')
	return b.Bytes()
}

type sexpReader struct {
	s   string
	pos int
}

func (r *sexpReader) skipSpace() {
	for r.pos < len(r.s) && strings.IndexByte(" \t\r\n", r.s[r.pos]) >= 0 {
		r.pos++
	}
}

func (r *sexpReader) peek() byte {
	r.skipSpace()
	if r.pos >= len(r.s) {
		return 0
	}
	return r.s[r.pos]
}

func (r *sexpReader) expect(c byte) error {
	if r.peek() != c {
		return r.errorf("expected %q", c)
	}
	r.pos++
	return nil
}

func (r *sexpReader) symbol() (string, error) {
	r.skipSpace()
	start := r.pos
	for r.pos < len(r.s) && isSymbolByte(r.s[r.pos]) {
		r.pos++
	}
	if r.pos == start {
		return "", r.errorf("expected symbol")
	}
	return r.s[start:r.pos], nil
}

func (r *sexpReader) keyword(want string) error {
	got, err := r.symbol()
	if err != nil {
		return err
	}
	if got != want {
		return r.errorf("expected %q, got %q", want, got)
	}
	return nil
}

func (r *sexpReader) quoted() (string, error) {
	if err := r.expect('"'); err != nil {
		return "", err
	}
	end := strings.IndexByte(r.s[r.pos:], '"')
	if end < 0 {
		return "", r.errorf("unterminated string")
	}
	v := r.s[r.pos : r.pos+end]
	r.pos += end + 1
	return v, nil
}

func (r *sexpReader) hashes() ([]entry, error) {
	if err := r.expect('('); err != nil {
		return nil, err
	}
	if err := r.keyword(hashesSym); err != nil {
		return nil, err
	}
	var rec []entry
	for r.peek() == '(' {
		r.pos++
		field, err := r.symbol()
		if err != nil {
			return nil, err
		}
		id, err := r.quoted()
		if err != nil {
			return nil, err
		}
		if err := r.expect(')'); err != nil {
			return nil, err
		}
		rec = append(rec, entry{field: field, id: id})
	}
	if err := r.expect(')'); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *sexpReader) end() error {
	r.skipSpace()
	if r.pos != len(r.s) {
		return r.errorf("trailing data")
	}
	return nil
}

func (r *sexpReader) errorf(format string, args ...any) error {
	return malformed("compact: offset %d: "+format, append([]any{r.pos}, args...)...)
}

func isSymbolByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func decodeCompact(data []byte) ([]entry, error) {
	r := &sexpReader{s: string(data)}
	rec, err := r.hashes()
	if err != nil {
		return nil, err
	}
	if err := r.end(); err != nil {
		return nil, err
	}
	return rec, nil
}

func decodeCompactBatch(data []byte) ([][]entry, error) {
	r := &sexpReader{s: string(data)}
	if err := r.expect('('); err != nil {
		return nil, err
	}
	if err := r.keyword(recordsSym); err != nil {
		return nil, err
	}
	recs := [][]entry{}
	for r.peek() == '(' {
		rec, err := r.hashes()
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := r.expect(')'); err != nil {
		return nil, err
	}
	if err := r.end(); err != nil {
		return nil, err
	}
	return recs, nil
}
