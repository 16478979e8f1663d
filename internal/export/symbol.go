package export

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// Symbol layout:
//
//	TH96/S1
//	<glyph> TAB <field> TAB <identifier>   one line per distinct pair
//	<empty line>
//	<glyphs>                               one line per record
//
// Glyphs are private-use code points handed out in first-seen order.
const symbolMagic = "TH96/S1"

const (
	bmpPUAFirst   = 0xE000
	bmpPUALast    = 0xF8FF
	planePUAFirst = 0xF0000
	planePUALast  = 0xFFFFD
	bmpPUASize    = bmpPUALast - bmpPUAFirst + 1
	planePUASize  = planePUALast - planePUAFirst + 1

	// MaxSymbols is the largest side table a Symbol payload can carry.
	MaxSymbols = bmpPUASize + planePUASize
)

func glyph(i int) (rune, bool) {
	switch {
	case i < bmpPUASize:
		return rune(bmpPUAFirst + i), true
	case i < MaxSymbols:
		return rune(planePUAFirst + i - bmpPUASize), true
	}
	return 0, false
}

func isGlyph(r rune) bool {
	return r >= bmpPUAFirst && r <= bmpPUALast || r >= planePUAFirst && r <= planePUALast
}

func encodeSymbol(recs [][]entry) ([]byte, error) {
	table := make(map[entry]rune)
	var order []entry
	lines := make([][]rune, len(recs))
	for i, rec := range recs {
		line := make([]rune, len(rec))
		for j, e := range rec {
			g, ok := table[e]
			if !ok {
				g, ok = glyph(len(order))
				if !ok {
					return nil, &Error{Field: e.field, Err: ErrTableFull}
				}
				table[e] = g
				order = append(order, e)
			}
			line[j] = g
		}
		lines[i] = line
	}

	var b bytes.Buffer
	b.WriteString(symbolMagic)
	b.WriteByte('\n')
	for _, e := range order {
		b.WriteRune(table[e])
		b.WriteByte('\t')
		b.WriteString(e.field)
		b.WriteByte('\t')
		b.WriteString(e.id)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	for _, line := range lines {
		b.WriteString(string(line))
		b.WriteByte('\n')
	}
	return b.Bytes(), nil
}

func decodeSymbol(data []byte) ([][]entry, error) {
	s := string(data)
	if !utf8.ValidString(s) {
		return nil, malformed("symbol: invalid UTF-8")
	}
	head, rest, ok := strings.Cut(s, "\n")
	if !ok || head != symbolMagic {
		return nil, malformed("symbol: missing %q header", symbolMagic)
	}

	table := make(map[rune]entry)
	for {
		line, next, ok := strings.Cut(rest, "\n")
		if !ok {
			return nil, malformed("symbol: unterminated side table")
		}
		rest = next
		if line == "" {
			break
		}
		parts := strings.Split(line, "\t")
		if len(parts) != 3 {
			return nil, malformed("symbol: table line %q", line)
		}
		g, size := utf8.DecodeRuneInString(parts[0])
		if size != len(parts[0]) || !isGlyph(g) {
			return nil, malformed("symbol: %q is not a private-use glyph", parts[0])
		}
		if _, dup := table[g]; dup {
			return nil, malformed("symbol: glyph %U defined twice", g)
		}
		table[g] = entry{field: parts[1], id: parts[2]}
	}

	recs := [][]entry{}
	if rest == "" {
		return recs, nil
	}
	if !strings.HasSuffix(rest, "\n") {
		return nil, malformed("symbol: unterminated record line")
	}
	for _, line := range strings.Split(strings.TrimSuffix(rest, "\n"), "\n") {
		rec := make([]entry, 0, utf8.RuneCountInString(line))
		for _, g := range line {
			e, ok := table[g]
			if !ok {
				return nil, malformed("symbol: glyph %U not in side table", g)
			}
			rec = append(rec, e)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
