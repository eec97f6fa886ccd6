// Package schema holds the declared column contract every ingested row is
// checked against.
//
// A Schema is built once by Register and is read-only afterwards; it is safe
// to share by pointer across any number of validator goroutines. Each column
// carries a coercion plan compiled at registration time so the hot validation
// path performs no map lookups or type switches on configuration.
package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Type is the declared value type of a column.
type Type string

const (
	String  Type = "STRING"
	Integer Type = "INTEGER"
	Decimal Type = "DECIMAL"
	Boolean Type = "BOOLEAN"
	Date    Type = "DATE"
)

// ParseType maps a type name onto a Type. It accepts the canonical names as
// well as the database-ish aliases used in pipeline files ("bigint", "int",
// "numeric", "bool", "timestamp", "text", ...). Matching is case-insensitive.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "string", "text", "varchar":
		return String, nil
	case "integer", "int", "bigint", "int8", "int4", "int2":
		return Integer, nil
	case "decimal", "numeric", "real", "float", "double":
		return Decimal, nil
	case "boolean", "bool":
		return Boolean, nil
	case "date", "datetime", "timestamp", "timestamptz", "time":
		return Date, nil
	default:
		return "", fmt.Errorf("unknown column type %q", s)
	}
}

func (t Type) valid() bool {
	switch t {
	case String, Integer, Decimal, Boolean, Date:
		return true
	}
	return false
}

// ordered reports whether values of t support min/max comparison.
func (t Type) ordered() bool { return t == Integer || t == Decimal || t == Date }

// ISODate and CZDate are the fallback layouts tried for DATE columns after
// the column's own layout, unless the column is strict.
const (
	ISODate = "2006-01-02"
	CZDate  = "02.01.2006"
)

// default boolean vocabularies (lowercased). Includes Czech "ano"/"ne".
var (
	defaultTruthy = map[string]struct{}{"1": {}, "t": {}, "true": {}, "yes": {}, "y": {}, "ano": {}}
	defaultFalsy  = map[string]struct{}{"0": {}, "f": {}, "false": {}, "no": {}, "n": {}, "ne": {}}
)

// coerceFunc converts one non-empty raw field into a typed value.
type coerceFunc func(s string) (any, error)

// compileCoercer builds the per-column coercion closure once.
func compileCoercer(c Column) coerceFunc {
	switch c.Type {
	case Integer:
		return func(s string) (any, error) {
			v, ok := toIntFast(strings.TrimSpace(s))
			if !ok {
				return nil, fmt.Errorf("%q is not an integer", s)
			}
			return v, nil
		}

	case Decimal:
		return func(s string) (any, error) {
			d, err := decimal.NewFromString(strings.TrimSpace(s))
			if err != nil {
				return nil, fmt.Errorf("%q is not a decimal", s)
			}
			return d, nil
		}

	case Boolean:
		truthy, falsy := defaultTruthy, defaultFalsy
		if len(c.Truthy) > 0 || len(c.Falsy) > 0 {
			truthy, falsy = lowerSet(c.Truthy), lowerSet(c.Falsy)
		}
		return func(s string) (any, error) {
			ls := strings.ToLower(strings.TrimSpace(s))
			if _, ok := truthy[ls]; ok {
				return true, nil
			}
			if _, ok := falsy[ls]; ok {
				return false, nil
			}
			return nil, fmt.Errorf("%q is not a recognized boolean", s)
		}

	case Date:
		layout, strict := c.Layout, c.StrictLayout
		return func(s string) (any, error) {
			s = strings.TrimSpace(s)
			if layout != "" {
				if t, err := time.Parse(layout, s); err == nil {
					return t, nil
				}
				if strict {
					return nil, fmt.Errorf("%q does not match layout %q", s, layout)
				}
			}
			if t, err := time.Parse(ISODate, s); err == nil {
				return t, nil
			}
			if t, ok := parseCZDate(s); ok {
				return t, nil
			}
			if layout != "" {
				return nil, fmt.Errorf("%q does not match layout %q", s, layout)
			}
			return nil, fmt.Errorf("%q is not a date", s)
		}

	default:
		return func(s string) (any, error) { return s, nil }
	}
}

// lowerSet builds a lowercased membership set.
func lowerSet(in []string) map[string]struct{} {
	m := make(map[string]struct{}, len(in))
	for _, s := range in {
		m[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return m
}

// toIntFast parses integers quickly and only falls back to float parsing when
// the field contains a '.' (supporting inputs like "42.0").
func toIntFast(s string) (int64, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if strings.IndexByte(s, '.') >= 0 {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if f == float64(int64(f)) {
				return int64(f), true
			}
		}
	}
	return 0, false
}

// parseCZDate implements a zero-allocation parser for "02.01.2006" (DD.MM.YYYY).
func parseCZDate(s string) (time.Time, bool) {
	if len(s) != 10 || s[2] != '.' || s[5] != '.' {
		return time.Time{}, false
	}
	d1, d0 := s[0]-'0', s[1]-'0'
	m1, m0 := s[3]-'0', s[4]-'0'
	y3, y2, y1, y0 := s[6]-'0', s[7]-'0', s[8]-'0', s[9]-'0'
	if d1 > 9 || d0 > 9 || m1 > 9 || m0 > 9 || y3 > 9 || y2 > 9 || y1 > 9 || y0 > 9 {
		return time.Time{}, false
	}
	day := int(d1)*10 + int(d0)
	mon := int(m1)*10 + int(m0)
	year := int(y3)*1000 + int(y2)*100 + int(y1)*10 + int(y0)
	if mon < 1 || mon > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(mon), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		// 31.02.2024 normalizes into March; reject instead.
		return time.Time{}, false
	}
	return t, true
}
