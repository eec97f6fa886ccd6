package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Column declares one position of the row contract.
//
// Layout applies to DATE columns only; StrictLayout turns off the ISO and
// DD.MM.YYYY fallbacks so only Layout is accepted. Truthy and Falsy replace the default
// boolean vocabulary for BOOLEAN columns when either is set. Index is assigned
// by Register; any value supplied by the caller is ignored.
type Column struct {
	Name         string
	Index        int
	Type         Type
	Nullable     bool
	Layout       string
	StrictLayout bool
	Truthy       []string
	Falsy        []string
	Constraints  []Constraint
}

// compiled is the per-column plan built by Register.
type compiled struct {
	col    Column
	coerce coerceFunc
	checks []check
}

// Schema is an immutable, ordered column contract.
type Schema struct {
	cols  []compiled
	index map[string]int
}

// Register validates columns and returns the compiled schema. Indexes are
// assigned in declaration order. The returned error is always a *SchemaError.
func Register(columns []Column) (*Schema, error) {
	s := &Schema{
		cols:  make([]compiled, 0, len(columns)),
		index: make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if c.Name == "" {
			return nil, &SchemaError{Code: ErrInvalidColumn, Message: fmt.Sprintf("column %d has no name", i)}
		}
		if _, dup := s.index[c.Name]; dup {
			return nil, &SchemaError{Code: ErrDuplicateColumn, Column: c.Name, Message: "name declared more than once"}
		}
		if c.Type == "" {
			c.Type = String
		}
		if !c.Type.valid() {
			return nil, &SchemaError{Code: ErrInvalidType, Column: c.Name, Message: fmt.Sprintf("unknown type %q", c.Type)}
		}
		if (c.Layout != "" && c.Type != Date) || ((len(c.Truthy) > 0 || len(c.Falsy) > 0) && c.Type != Boolean) {
			return nil, &SchemaError{Code: ErrInvalidColumn, Column: c.Name, Message: "type options do not match " + string(c.Type)}
		}
		if c.StrictLayout && c.Layout == "" {
			return nil, &SchemaError{Code: ErrInvalidColumn, Column: c.Name, Message: "strict layout needs a layout"}
		}

		c.Index = i
		c.Truthy = append([]string(nil), c.Truthy...)
		c.Falsy = append([]string(nil), c.Falsy...)
		c.Constraints = append([]Constraint(nil), c.Constraints...)

		cc := compiled{col: c, coerce: compileCoercer(c)}
		for _, k := range c.Constraints {
			fn, err := compileConstraint(c, cc.coerce, k)
			if err != nil {
				return nil, err
			}
			cc.checks = append(cc.checks, fn)
		}
		s.index[c.Name] = i
		s.cols = append(s.cols, cc)
	}
	return s, nil
}

// MustRegister is Register for statically known schemas; it panics on error.
func MustRegister(columns []Column) *Schema {
	s, err := Register(columns)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of declared columns.
func (s *Schema) Len() int { return len(s.cols) }

// Column returns a copy of the i-th column.
func (s *Schema) Column(i int) Column {
	c := s.cols[i].col
	c.Truthy = append([]string(nil), c.Truthy...)
	c.Falsy = append([]string(nil), c.Falsy...)
	c.Constraints = append([]Constraint(nil), c.Constraints...)
	return c
}

// Columns returns copies of all columns in declaration order.
func (s *Schema) Columns() []Column {
	out := make([]Column, len(s.cols))
	for i := range s.cols {
		out[i] = s.Column(i)
	}
	return out
}

// Names returns the column names in declaration order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.cols))
	for i, c := range s.cols {
		out[i] = c.col.Name
	}
	return out
}

// Lookup returns the index of the named column.
func (s *Schema) Lookup(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Name returns the name of column i.
func (s *Schema) Name(i int) string { return s.cols[i].col.Name }

// Nullable reports whether column i accepts null.
func (s *Schema) Nullable(i int) bool { return s.cols[i].col.Nullable }

// TypeOf returns the declared type of column i.
func (s *Schema) TypeOf(i int) Type { return s.cols[i].col.Type }

// Coerce converts a non-empty raw field for column i into its typed value.
func (s *Schema) Coerce(i int, raw string) (any, error) {
	return s.cols[i].coerce(raw)
}

// Check evaluates column i's constraints against v in declaration order and
// returns the message of the first failure, or "" when all pass.
func (s *Schema) Check(i int, v any) string {
	for _, fn := range s.cols[i].checks {
		if msg := fn(v); msg != "" {
			return msg
		}
	}
	return ""
}

// Registry holds named schemas for the lifetime of a process. Safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*Schema)}
}

// Register compiles columns and stores the schema under name.
func (r *Registry) Register(name string, columns []Column) (*Schema, error) {
	s, err := Register(columns)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schemas[name]; ok {
		return nil, &SchemaError{Code: ErrDuplicateSchema, Message: fmt.Sprintf("schema %q already registered", name)}
	}
	r.schemas[name] = s
	return s, nil
}

// Lookup returns the schema registered under name.
func (r *Registry) Lookup(name string) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	if !ok {
		return nil, &SchemaError{Code: ErrUnknownSchema, Message: fmt.Sprintf("schema %q not registered", name)}
	}
	return s, nil
}

// Names lists the registered schema names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.schemas))
	for n := range r.schemas {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
