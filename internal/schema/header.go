package schema

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const utf8BOM = "\uFEFF"

// NormalizeHeader converts arbitrary header text into a lowercase ASCII
// identifier:
//  1. trim and strip a UTF-8 BOM
//  2. lowercase
//  3. strip accents (NFD → remove Mn → NFC)
//  4. keep [a-z0-9_]; runs of anything else collapse to one underscore
func NormalizeHeader(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), utf8BOM)
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	prevUnderscore := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		default:
			if !prevUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				prevUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// mapHeader applies headerMap (keyed by raw or normalized text) and then
// normalizes whatever is left.
func mapHeader(header []string, headerMap map[string]string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		raw := strings.TrimPrefix(strings.TrimSpace(h), utf8BOM)
		if m, ok := headerMap[raw]; ok {
			out[i] = m
			continue
		}
		n := NormalizeHeader(raw)
		if m, ok := headerMap[n]; ok {
			out[i] = m
			continue
		}
		out[i] = n
	}
	return out
}

// FromHeader builds an all-STRING, all-nullable schema named after the
// (mapped, normalized) header cells. Blank cells fall back to col_<i>.
func FromHeader(header []string, headerMap map[string]string) (*Schema, error) {
	names := mapHeader(header, headerMap)
	cols := make([]Column, len(names))
	for i, n := range names {
		if n == "" {
			n = fmt.Sprintf("col_%d", i)
		}
		cols[i] = Column{Name: n, Type: String, Nullable: true}
	}
	return Register(cols)
}

// ConfirmHeader checks that header names exactly the declared columns in
// declaration order. Each header cell is mapped through headerMap first and
// otherwise normalized; the declared names are compared normalized too.
func (s *Schema) ConfirmHeader(header []string, headerMap map[string]string) error {
	got := mapHeader(header, headerMap)
	if len(got) != len(s.cols) {
		return &SchemaError{
			Code:    ErrHeaderMismatch,
			Message: fmt.Sprintf("header has %d columns, schema declares %d", len(got), len(s.cols)),
		}
	}
	for i, c := range s.cols {
		want := c.col.Name
		if got[i] != want && got[i] != NormalizeHeader(want) {
			return &SchemaError{
				Code:    ErrHeaderMismatch,
				Column:  want,
				Message: fmt.Sprintf("header cell %d is %q", i, header[i]),
			}
		}
	}
	return nil
}
