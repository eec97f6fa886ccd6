// Package record defines the row-level data model shared by the tokenizer,
// validator, transform pipeline, and coordinator.
//
// Values flow forward only: a RawRow is produced once by the tokenizer and
// consumed once by the validator; a Record is never mutated after it is
// handed to a transform. Transforms derive new records with With/Without.
package record

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zeebo/xxh3"
)

// RawRow is an untyped field list plus the 1-based source line on which the
// logical record starts.
type RawRow struct {
	Line   int
	Fields []string
}

// Record is a typed, schema-conformant row. Values maps column name to one of
// string, int64, decimal.Decimal, bool, time.Time, or nil (null).
type Record struct {
	Line   int
	Values map[string]any
}

// New returns a Record for line with a fresh value map sized for n columns.
func New(line, n int) Record {
	return Record{Line: line, Values: make(map[string]any, n)}
}

// Get returns the value stored under name and whether the column exists.
func (r Record) Get(name string) (any, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// Len reports the number of columns in the record.
func (r Record) Len() int { return len(r.Values) }

// Clone returns a shallow copy of r with its own value map. Stored values are
// immutable types, so a shallow copy is sufficient.
func (r Record) Clone() Record {
	out := Record{Line: r.Line, Values: make(map[string]any, len(r.Values)+1)}
	for k, v := range r.Values {
		out.Values[k] = v
	}
	return out
}

// With returns a copy of r with name set to v. r itself is unchanged.
func (r Record) With(name string, v any) Record {
	out := r.Clone()
	out.Values[name] = v
	return out
}

// Without returns a copy of r with the given columns removed.
func (r Record) Without(names ...string) Record {
	out := r.Clone()
	for _, n := range names {
		delete(out.Values, n)
	}
	return out
}

// Names returns the record's column names in lexical order.
func (r Record) Names() []string {
	names := make([]string, 0, len(r.Values))
	for k := range r.Values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Fingerprint hashes the canonical form of the named columns (all columns in
// lexical order when names is empty). Equal values produce equal fingerprints
// regardless of map iteration order.
func (r Record) Fingerprint(names ...string) uint64 {
	if len(names) == 0 {
		names = r.Names()
	}
	h := xxh3.New()
	var buf []byte
	for _, n := range names {
		buf = buf[:0]
		buf = append(buf, n...)
		buf = append(buf, 0x1f)
		if v, ok := r.Values[n]; ok && v != nil {
			buf = append(buf, Canonical(v)...)
		} else {
			buf = append(buf, 0x00)
		}
		buf = append(buf, 0x1e)
		_, _ = h.Write(buf)
	}
	return h.Sum64()
}

// Canonical renders a typed value as the stable string used for enum
// comparison, hashing, and CSV output.
func Canonical(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case decimal.Decimal:
		return t.String()
	case time.Time:
		return canonicalTime(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// canonicalTime picks the shortest faithful rendering: clock-only values
// (parsed from layouts such as "15:04") keep just the clock, midnight values
// keep just the date.
func canonicalTime(t time.Time) string {
	switch {
	case t.Year() == 0 && t.Month() == time.January && t.Day() == 1:
		return t.Format("15:04:05")
	case t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0:
		return t.Format("2006-01-02")
	default:
		return t.Format(time.RFC3339)
	}
}
