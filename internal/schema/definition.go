package schema

import (
	"fmt"
	"strings"
)

// Definition is the declarative, file-decodable form of a schema. It is
// embedded in pipeline files (JSON, YAML or TOML) and turned into a Schema
// with Build.
//
// Example (YAML):
//
//	name: customers
//	columns:
//	  - { name: id, type: integer }
//	  - name: email
//	    type: string
//	    constraints:
//	      - { kind: email }
type Definition struct {
	Name    string      `json:"name" yaml:"name" toml:"name"`
	Columns []ColumnDef `json:"columns" yaml:"columns" toml:"columns"`
}

// ColumnDef mirrors Column. Type accepts the aliases understood by ParseType.
type ColumnDef struct {
	Name        string          `json:"name" yaml:"name" toml:"name"`
	Type        string          `json:"type" yaml:"type" toml:"type"`
	Nullable    bool            `json:"nullable" yaml:"nullable" toml:"nullable"`
	Layout      string          `json:"layout,omitempty" yaml:"layout,omitempty" toml:"layout,omitempty"`
	Strict      bool            `json:"strict_layout,omitempty" yaml:"strict_layout,omitempty" toml:"strict_layout,omitempty"`
	Truthy      []string        `json:"truthy,omitempty" yaml:"truthy,omitempty" toml:"truthy,omitempty"`
	Falsy       []string        `json:"falsy,omitempty" yaml:"falsy,omitempty" toml:"falsy,omitempty"`
	Constraints []ConstraintDef `json:"constraints,omitempty" yaml:"constraints,omitempty" toml:"constraints,omitempty"`
}

// ConstraintDef mirrors Constraint minus the code-only predicate.
type ConstraintDef struct {
	Kind   string   `json:"kind" yaml:"kind" toml:"kind"`
	Value  string   `json:"value,omitempty" yaml:"value,omitempty" toml:"value,omitempty"`
	Values []string `json:"values,omitempty" yaml:"values,omitempty" toml:"values,omitempty"`
	Min    int      `json:"min,omitempty" yaml:"min,omitempty" toml:"min,omitempty"`
	Max    int      `json:"max,omitempty" yaml:"max,omitempty" toml:"max,omitempty"`
}

// ToColumns converts the definition into Columns without compiling them.
func (d Definition) ToColumns() ([]Column, error) {
	cols := make([]Column, 0, len(d.Columns))
	for _, cd := range d.Columns {
		t, err := ParseType(cd.Type)
		if err != nil {
			return nil, &SchemaError{Code: ErrInvalidType, Column: cd.Name, Message: err.Error()}
		}
		c := Column{
			Name:         strings.TrimSpace(cd.Name),
			Type:         t,
			Nullable:     cd.Nullable,
			Layout:       cd.Layout,
			StrictLayout: cd.Strict,
			Truthy:       cd.Truthy,
			Falsy:        cd.Falsy,
		}
		for _, k := range cd.Constraints {
			kind := ConstraintKind(strings.ToLower(strings.TrimSpace(k.Kind)))
			if kind == KindCheck {
				return nil, &SchemaError{
					Code:    ErrInvalidConstraint,
					Column:  cd.Name,
					Message: fmt.Sprintf("%s: only available from code", kind),
				}
			}
			c.Constraints = append(c.Constraints, Constraint{
				Kind:   kind,
				Value:  k.Value,
				Values: k.Values,
				Min:    k.Min,
				Max:    k.Max,
			})
		}
		cols = append(cols, c)
	}
	return cols, nil
}

// Build compiles the definition.
func (d Definition) Build() (*Schema, error) {
	cols, err := d.ToColumns()
	if err != nil {
		return nil, err
	}
	return Register(cols)
}

// Describe converts a schema back into its declarative form. Check
// constraints are omitted since they cannot be expressed in a file.
func Describe(name string, s *Schema) Definition {
	d := Definition{Name: name}
	for _, c := range s.Columns() {
		cd := ColumnDef{
			Name:     c.Name,
			Type:     strings.ToLower(string(c.Type)),
			Nullable: c.Nullable,
			Layout:   c.Layout,
			Strict:   c.StrictLayout,
			Truthy:   c.Truthy,
			Falsy:    c.Falsy,
		}
		for _, k := range c.Constraints {
			if k.Kind == KindCheck {
				continue
			}
			cd.Constraints = append(cd.Constraints, ConstraintDef{
				Kind: string(k.Kind), Value: k.Value, Values: k.Values, Min: k.Min, Max: k.Max,
			})
		}
		d.Columns = append(d.Columns, cd)
	}
	return d
}
