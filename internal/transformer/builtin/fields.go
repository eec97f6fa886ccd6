package builtin

import (
	"fmt"
	"strings"

	"csvingest/internal/record"
)

// Rename moves the value of From to To. A missing From column fails the row;
// an existing To column is overwritten.
type Rename struct {
	From, To string
}

func (Rename) Name() string { return "rename" }

func (r Rename) Apply(rec record.Record) (record.Record, error) {
	v, ok := rec.Get(r.From)
	if !ok {
		return rec, fmt.Errorf("column %q not present", r.From)
	}
	out := rec.Without(r.From)
	out.Values[r.To] = v
	return out, nil
}

// Drop removes columns. Missing columns are ignored.
type Drop struct {
	Fields []string
}

func (Drop) Name() string { return "drop" }

func (d Drop) Apply(rec record.Record) (record.Record, error) {
	return rec.Without(d.Fields...), nil
}

// Default fills null or absent columns with typed values.
type Default struct {
	Values map[string]any
}

func (Default) Name() string { return "default" }

func (d Default) Apply(rec record.Record) (record.Record, error) {
	var out record.Record
	changed := false
	for k, dv := range d.Values {
		if v, ok := rec.Values[k]; ok && v != nil {
			continue
		}
		if !changed {
			out = rec.Clone()
			changed = true
		}
		out.Values[k] = dv
	}
	if !changed {
		return rec, nil
	}
	return out, nil
}

// Require fails any record where one of Fields is absent, null, or an empty
// string. Non-string zero values (0, false) count as present.
type Require struct {
	Fields []string
}

func (Require) Name() string { return "require" }

func (r Require) Apply(rec record.Record) (record.Record, error) {
	for _, f := range r.Fields {
		v, ok := rec.Values[f]
		if !ok || v == nil || v == "" {
			return rec, fmt.Errorf("field %q is required", f)
		}
	}
	return rec, nil
}

// Case upper- or lower-cases string values of Fields.
type Case struct {
	Fields []string
	Upper  bool
}

func (Case) Name() string { return "case" }

func (c Case) Apply(rec record.Record) (record.Record, error) {
	out := rec
	cloned := false
	for _, f := range c.Fields {
		s, ok := rec.Values[f].(string)
		if !ok {
			continue
		}
		ns := strings.ToLower(s)
		if c.Upper {
			ns = strings.ToUpper(s)
		}
		if ns == s {
			continue
		}
		if !cloned {
			out = rec.Clone()
			cloned = true
		}
		out.Values[f] = ns
	}
	return out, nil
}
