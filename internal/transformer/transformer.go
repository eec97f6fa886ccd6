// Package transformer applies ordered, per-row record transformations.
//
// A Transform sees one validated record at a time and returns a new record
// (or an error). Transforms must not mutate their input or keep state between
// calls: the coordinator runs the same Pipeline from several goroutines.
package transformer

import (
	"fmt"

	"csvingest/internal/record"
)

// Transform is one user-defined step.
type Transform interface {
	Name() string
	Apply(rec record.Record) (record.Record, error)
}

// Func adapts a plain function into a Transform.
func Func(name string, fn func(record.Record) (record.Record, error)) Transform {
	return funcTransform{name: name, fn: fn}
}

type funcTransform struct {
	name string
	fn   func(record.Record) (record.Record, error)
}

func (f funcTransform) Name() string { return f.name }

func (f funcTransform) Apply(rec record.Record) (record.Record, error) { return f.fn(rec) }

// Pipeline is an ordered list of transforms.
type Pipeline []Transform

// Names returns the transform identifiers in execution order.
func (p Pipeline) Names() []string {
	out := make([]string, len(p))
	for i, t := range p {
		out[i] = t.Name()
	}
	return out
}

// Apply runs p over rec. See the package-level Apply.
func (p Pipeline) Apply(rec record.Record) (record.Record, *record.FieldError) {
	return Apply(p, rec)
}

// Apply runs the transforms in declaration order. The first failure (an
// error or a panic) stops the run and is reported as a single
// CONSTRAINT_VIOLATION FieldError whose Column is the transform name.
func Apply(p Pipeline, rec record.Record) (record.Record, *record.FieldError) {
	cur := rec
	for _, t := range p {
		next, err := safeApply(t, cur)
		if err != nil {
			return record.Record{}, &record.FieldError{
				Line:    rec.Line,
				Column:  t.Name(),
				Index:   -1,
				Reason:  record.ReasonConstraintViolation,
				Message: err.Error(),
			}
		}
		// Transforms may build records from scratch; keep the source line.
		next.Line = rec.Line
		cur = next
	}
	return cur, nil
}

func safeApply(t Transform, rec record.Record) (out record.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.Apply(rec)
}
