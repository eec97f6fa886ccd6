package schema

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"csvingest/internal/record"
)

// ConstraintKind names a declarative constraint.
type ConstraintKind string

const (
	KindMin     ConstraintKind = "min"
	KindMax     ConstraintKind = "max"
	KindPattern ConstraintKind = "pattern"
	KindOneOf   ConstraintKind = "one_of"
	KindLength  ConstraintKind = "length"
	KindEmail   ConstraintKind = "email"
	KindCheck   ConstraintKind = "check"
)

// Constraint is one predicate evaluated against a successfully coerced,
// non-null value. Constraints are declarative so they can be decoded from
// pipeline files; KindCheck carries an arbitrary Go predicate for callers
// that build schemas in code.
//
// Field use per kind:
//
//   - min, max: Value is the bound, parsed with the column's own coercion.
//   - pattern:  Value is a Go regular expression (matched, not anchored).
//   - one_of:   Values are compared against the value's canonical string.
//   - length:   Min and Max are rune counts; zero Max means unbounded.
//   - email:    no fields.
//   - check:    Name labels the predicate in error messages; Func must be set.
type Constraint struct {
	Kind   ConstraintKind
	Value  string
	Values []string
	Min    int
	Max    int
	Name   string
	Func   func(v any) bool
}

// Min declares an inclusive lower bound.
func Min(bound string) Constraint { return Constraint{Kind: KindMin, Value: bound} }

// Max declares an inclusive upper bound.
func Max(bound string) Constraint { return Constraint{Kind: KindMax, Value: bound} }

// Pattern declares a regular expression the string must match.
func Pattern(expr string) Constraint { return Constraint{Kind: KindPattern, Value: expr} }

// OneOf declares the enumerated set of allowed values.
func OneOf(values ...string) Constraint { return Constraint{Kind: KindOneOf, Values: values} }

// Length declares a rune-count range. max <= 0 leaves the upper end open.
func Length(min, max int) Constraint { return Constraint{Kind: KindLength, Min: min, Max: max} }

// Email declares that the string must look like a mail address.
func Email() Constraint { return Constraint{Kind: KindEmail} }

// Check wraps an arbitrary predicate. fn must be pure; it is called from
// several goroutines at once.
func Check(name string, fn func(v any) bool) Constraint {
	return Constraint{Kind: KindCheck, Name: name, Func: fn}
}

// emailRe: one '@', a non-empty local part and a dotted
// domain with no whitespace.
var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// check is a compiled constraint. It returns "" when v passes, otherwise a
// short human-readable message.
type check func(v any) string

// compileConstraint validates c against the column it is attached to and
// returns its compiled form.
func compileConstraint(col Column, coerce coerceFunc, c Constraint) (check, error) {
	bad := func(format string, args ...any) error {
		return &SchemaError{
			Code:    ErrInvalidConstraint,
			Column:  col.Name,
			Message: fmt.Sprintf("%s: ", c.Kind) + fmt.Sprintf(format, args...),
		}
	}

	switch c.Kind {
	case KindMin, KindMax:
		if !col.Type.ordered() {
			return nil, bad("not supported on %s", col.Type)
		}
		bv, err := coerce(c.Value)
		if err != nil {
			return nil, bad("bound %q: %v", c.Value, err)
		}
		isMin := c.Kind == KindMin
		return func(v any) string {
			n := compare(v, bv)
			if isMin && n < 0 {
				return fmt.Sprintf("below minimum %s", record.Canonical(bv))
			}
			if !isMin && n > 0 {
				return fmt.Sprintf("above maximum %s", record.Canonical(bv))
			}
			return ""
		}, nil

	case KindPattern:
		if col.Type != String {
			return nil, bad("not supported on %s", col.Type)
		}
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return nil, bad("%v", err)
		}
		return func(v any) string {
			if !re.MatchString(v.(string)) {
				return fmt.Sprintf("does not match %s", c.Value)
			}
			return ""
		}, nil

	case KindEmail:
		if col.Type != String {
			return nil, bad("not supported on %s", col.Type)
		}
		return func(v any) string {
			if !emailRe.MatchString(v.(string)) {
				return "not a valid email address"
			}
			return ""
		}, nil

	case KindOneOf:
		if len(c.Values) == 0 {
			return nil, bad("empty value set")
		}
		allowed := make(map[string]struct{}, len(c.Values))
		for _, raw := range c.Values {
			// Normalize every allowed value through the column coercion so
			// "1.0" and "1" are the same member of a DECIMAL set.
			cv, err := coerce(raw)
			if err != nil {
				return nil, bad("value %q: %v", raw, err)
			}
			allowed[record.Canonical(cv)] = struct{}{}
		}
		list := strings.Join(c.Values, ", ")
		return func(v any) string {
			if _, ok := allowed[record.Canonical(v)]; !ok {
				return "not one of [" + list + "]"
			}
			return ""
		}, nil

	case KindLength:
		if col.Type != String {
			return nil, bad("not supported on %s", col.Type)
		}
		if c.Min < 0 || (c.Max > 0 && c.Max < c.Min) {
			return nil, bad("invalid range %d..%d", c.Min, c.Max)
		}
		lo, hi := c.Min, c.Max
		return func(v any) string {
			n := utf8.RuneCountInString(v.(string))
			if n < lo || (hi > 0 && n > hi) {
				if hi > 0 {
					return fmt.Sprintf("length %d outside %d..%d", n, lo, hi)
				}
				return fmt.Sprintf("length %d below %d", n, lo)
			}
			return ""
		}, nil

	case KindCheck:
		if c.Func == nil {
			return nil, bad("missing predicate")
		}
		name := c.Name
		if name == "" {
			name = "check"
		}
		fn := c.Func
		return func(v any) string {
			if !fn(v) {
				return name + " failed"
			}
			return ""
		}, nil

	default:
		return nil, bad("unknown constraint kind")
	}
}

// compare orders two values of the same ordered column type.
func compare(a, b any) int {
	switch x := a.(type) {
	case int64:
		y := b.(int64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case decimal.Decimal:
		return x.Cmp(b.(decimal.Decimal))
	case time.Time:
		return x.Compare(b.(time.Time))
	}
	return 0
}

// Compare orders two typed values of the same ordered type (INTEGER, DECIMAL
// or DATE). ok is false when the values are of different or unordered types.
func Compare(a, b any) (n int, ok bool) {
	switch a.(type) {
	case int64:
		if _, same := b.(int64); !same {
			return 0, false
		}
	case decimal.Decimal:
		if _, same := b.(decimal.Decimal); !same {
			return 0, false
		}
	case time.Time:
		if _, same := b.(time.Time); !same {
			return 0, false
		}
	default:
		return 0, false
	}
	return compare(a, b), true
}
