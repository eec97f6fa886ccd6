package ddl

import (
	"fmt"
	"strings"

	"csvingest/internal/schema"
)

// Dialect adapts rendering to one SQL engine.
type Dialect interface {
	// Quote quotes a single identifier segment.
	Quote(ident string) string
	// MapType returns the column type for a schema column.
	MapType(c schema.Column) string
	// Guard wraps a CREATE TABLE body so re-running it is a no-op. quoted is
	// the quoted table name, body the parenthesized column list.
	Guard(quoted, body string) string
}

// FromSchema derives a table definition from s. Every column keeps the
// schema's nullability; keys, when given, become the primary key.
func FromSchema(fqn string, s *schema.Schema, d Dialect, keys ...string) (TableDef, error) {
	if s == nil || s.Len() == 0 {
		return TableDef{}, fmt.Errorf("ddl: schema has no columns")
	}
	pk := make(map[string]bool, len(keys))
	for _, k := range keys {
		if _, ok := s.Lookup(k); !ok {
			return TableDef{}, fmt.Errorf("ddl: key column %q is not in the schema", k)
		}
		pk[k] = true
	}
	td := TableDef{FQN: fqn, Columns: make([]ColumnDef, 0, s.Len())}
	for _, c := range s.Columns() {
		td.Columns = append(td.Columns, ColumnDef{
			Name:       c.Name,
			SQLType:    d.MapType(c),
			Nullable:   c.Nullable,
			PrimaryKey: pk[c.Name],
		})
	}
	return td, nil
}

// BuildCreateTableSQL renders t for dialect d. Primary-key columns are
// always NOT NULL and are listed in declaration order.
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(d.Quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.Quote(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	body := "(\n  " + strings.Join(cols, ",\n  ") + "\n)"
	return d.Guard(QuoteFQN(fqn, d), body), nil
}

// QuoteFQN quotes each dot-separated segment of name. Empty segments are
// dropped.
func QuoteFQN(name string, d Dialect) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, d.Quote(p))
		}
	}
	return strings.Join(out, ".")
}

// IsClockLayout reports whether a DATE column's layout carries only a time of
// day (for example "15:04"), which backends store as TIME rather than DATE.
func IsClockLayout(layout string) bool {
	return layout != "" && !strings.Contains(layout, "2006") && !strings.Contains(layout, "06") &&
		(strings.Contains(layout, "15") || strings.Contains(layout, "03") || strings.Contains(layout, "3"))
}
