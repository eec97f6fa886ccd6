// Package builtin contains reusable record transforms that can be declared in
// pipeline files.
package builtin

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"csvingest/internal/record"
)

const (
	nbspace = "\u00a0"

	// mojibake for NBSP after a Latin-1 → UTF-8 double encode
	mojibakeNBSP = "\u00c2\u00a0"
)

// Normalize cleans string values:
//   - replaces NBSP (and its mojibake form) with an ASCII space,
//   - trims edge whitespace,
//   - optionally collapses interior whitespace runs to one space,
//   - optionally folds accents (NFD → remove Mn → NFC).
//
// Non-string values and nulls pass through unchanged. An empty Fields list
// applies to every column.
type Normalize struct {
	Fields   []string
	Collapse bool
	Fold     bool
}

func (Normalize) Name() string { return "normalize" }

func (n Normalize) Apply(rec record.Record) (record.Record, error) {
	names := n.Fields
	if len(names) == 0 {
		names = rec.Names()
	}
	var out record.Record
	changed := false
	for _, k := range names {
		v, ok := rec.Values[k]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		ns := n.clean(s)
		if ns == s {
			continue
		}
		if !changed {
			out = rec.Clone()
			changed = true
		}
		out.Values[k] = ns
	}
	if !changed {
		return rec, nil
	}
	return out, nil
}

func (n Normalize) clean(s string) string {
	if strings.Contains(s, nbspace) {
		s = strings.ReplaceAll(s, mojibakeNBSP, " ")
		s = strings.ReplaceAll(s, nbspace, " ")
	}
	if hasEdgeSpace(s) {
		s = strings.TrimSpace(s)
	}
	if n.Collapse {
		s = strings.Join(strings.Fields(s), " ")
	}
	if n.Fold {
		s = foldAccents(s)
	}
	return s
}

// hasEdgeSpace reports whether s starts or ends with ASCII whitespace.
func hasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case ' ', '\t', '\n', '\r':
		return true
	}
	switch s[len(s)-1] {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

func foldAccents(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
			out, _, err := transform.String(t, s)
			if err != nil {
				return s
			}
			return out
		}
	}
	return s
}
