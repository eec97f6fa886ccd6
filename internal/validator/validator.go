// Package validator checks raw field lists against a schema.
//
// Validation never fails: malformed input is ordinary data and comes back as
// a rejected record.Outcome carrying itemized FieldErrors. A Validator holds
// no mutable state, so a single instance may be shared by any number of
// worker goroutines.
package validator

import (
	"fmt"
	"strings"

	"csvingest/internal/record"
	"csvingest/internal/schema"
)

// Validator binds a compiled schema.
type Validator struct {
	s     *schema.Schema
	trim  []bool
	names []string
}

// New returns a Validator for s.
func New(s *schema.Schema) *Validator {
	v := &Validator{s: s, trim: make([]bool, s.Len()), names: s.Names()}
	for i := range v.trim {
		v.trim[i] = s.TypeOf(i) != schema.String
	}
	return v
}

// Schema returns the bound schema.
func (v *Validator) Schema() *schema.Schema { return v.s }

// Validate is New(s).Validate(raw) for one-off use.
func Validate(raw record.RawRow, s *schema.Schema) record.Outcome {
	return New(s).Validate(raw)
}

// Validate turns raw into an accepted Record or a rejected outcome whose
// errors are ordered by column index. Every declared column is evaluated
// even after an earlier column failed.
func (v *Validator) Validate(raw record.RawRow) record.Outcome {
	n := v.s.Len()
	var errs []record.FieldError
	rec := record.New(raw.Line, n)

	for i := 0; i < n; i++ {
		name := v.names[i]
		if i >= len(raw.Fields) {
			if v.s.Nullable(i) {
				rec.Values[name] = nil
				continue
			}
			errs = append(errs, record.FieldError{
				Line:    raw.Line,
				Column:  name,
				Index:   i,
				Reason:  record.ReasonMissingColumn,
				Message: fmt.Sprintf("row has %d fields", len(raw.Fields)),
			})
			continue
		}

		field := raw.Fields[i]
		probe := field
		if v.trim[i] {
			probe = strings.TrimSpace(field)
		}
		if probe == "" {
			if v.s.Nullable(i) {
				rec.Values[name] = nil
				continue
			}
			errs = append(errs, record.FieldError{
				Line:   raw.Line,
				Column: name,
				Index:  i,
				Raw:    field,
				Reason: record.ReasonMissingRequired,
			})
			continue
		}

		val, err := v.s.Coerce(i, field)
		if err != nil {
			errs = append(errs, record.FieldError{
				Line:    raw.Line,
				Column:  name,
				Index:   i,
				Raw:     field,
				Reason:  record.ReasonTypeMismatch,
				Message: fmt.Sprintf("want %s: %v", v.s.TypeOf(i), err),
			})
			continue
		}
		if msg := v.s.Check(i, val); msg != "" {
			errs = append(errs, record.FieldError{
				Line:    raw.Line,
				Column:  name,
				Index:   i,
				Raw:     field,
				Reason:  record.ReasonConstraintViolation,
				Message: msg,
			})
			continue
		}
		rec.Values[name] = val
	}

	// Extra trailing fields come last since their index is past every column.
	if len(raw.Fields) > n {
		errs = append(errs, ExtraColumn(raw, n))
	}

	if len(errs) > 0 {
		return record.Reject(raw.Line, errs...)
	}
	return record.Accept(rec)
}

// ExtraColumn builds the single EXTRA_COLUMN error for a row whose fields
// run past index limit.
func ExtraColumn(raw record.RawRow, limit int) record.FieldError {
	fe := record.FieldError{
		Line:    raw.Line,
		Column:  record.ExtraColumnName(limit),
		Index:   limit,
		Reason:  record.ReasonExtraColumn,
		Message: fmt.Sprintf("row has %d fields, at most %d allowed", len(raw.Fields), limit),
	}
	if limit < len(raw.Fields) {
		fe.Raw = raw.Fields[limit]
	}
	return fe
}
