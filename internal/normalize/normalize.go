// Package normalize prepares record field values for hashing.
package normalize

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Form names a Unicode normalization form. The zero value disables
// Unicode normalization.
type Form string

const (
	FormNone Form = ""
	NFC      Form = "NFC"
	NFD      Form = "NFD"
	NFKC     Form = "NFKC"
	NFKD     Form = "NFKD"
)

// Forms lists every accepted Form value.
var Forms = []Form{FormNone, NFC, NFD, NFKC, NFKD}

func (f Form) normForm() (norm.Form, bool) {
	switch f {
	case NFC:
		return norm.NFC, true
	case NFD:
		return norm.NFD, true
	case NFKC:
		return norm.NFKC, true
	case NFKD:
		return norm.NFKD, true
	}
	return 0, false
}

// Valid reports whether f is a known form.
func (f Form) Valid() bool {
	if f == FormNone {
		return true
	}
	_, ok := f.normForm()
	return ok
}

// ParseForm accepts a form name in any case.
func ParseForm(s string) (Form, error) {
	f := Form(strings.ToUpper(strings.TrimSpace(s)))
	if !f.Valid() {
		return FormNone, fmt.Errorf("normalize: unknown unicode form %q", s)
	}
	return f, nil
}

// Options selects the normalization steps applied to the joined input.
type Options struct {
	Lowercase        bool `yaml:"lowercase" json:"lowercase"`
	Trim             bool `yaml:"trim" json:"trim"`
	StripPunctuation bool `yaml:"strip_punctuation" json:"strip_punctuation"`
	Form             Form `yaml:"unicode_form" json:"unicode_form,omitempty"`
}

var punctuation = runes.Remove(runes.In(unicode.P))

// Normalize joins fields with sep and normalizes the result. Field order is
// significant.
func Normalize(fields []string, sep string, opts Options) string {
	return Text(strings.Join(fields, sep), opts)
}

// Text applies, in order: Unicode normalization, lowercasing, punctuation
// stripping and trimming of leading and trailing whitespace. Internal
// whitespace is preserved.
//
// When a form is set it is applied again after case mapping and punctuation
// removal, which can leave composable sequences behind. This keeps Text a
// fixed point: Text(Text(s, o), o) == Text(s, o).
func Text(s string, opts Options) string {
	nf, hasForm := opts.Form.normForm()
	if hasForm {
		s = nf.String(s)
	}
	if opts.Lowercase {
		// A Caser is stateful and must not be shared between goroutines.
		s = cases.Lower(language.Und).String(s)
	}
	if opts.StripPunctuation {
		s, _, _ = transform.String(punctuation, s)
	}
	if hasForm && (opts.Lowercase || opts.StripPunctuation) {
		s = nf.String(s)
	}
	if opts.Trim {
		s = strings.TrimSpace(s)
	}
	return s
}

// Fields picks names from record in order. Missing fields yield "".
func Fields(record map[string]string, names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = record[name]
	}
	return out
}
