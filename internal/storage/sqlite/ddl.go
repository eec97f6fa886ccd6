package sqlite

import (
	"strings"

	"csvingest/internal/schema"
)

// Dialect renders SQLite DDL. Types follow SQLite affinities: booleans are
// 0/1 integers and dates are ISO-8601 text.
type Dialect struct{}

func (Dialect) Quote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

func (Dialect) MapType(c schema.Column) string {
	switch c.Type {
	case schema.Integer, schema.Boolean:
		return "INTEGER"
	case schema.Decimal:
		return "NUMERIC"
	default:
		return "TEXT"
	}
}

func (Dialect) Guard(quoted, body string) string {
	return "CREATE TABLE IF NOT EXISTS " + quoted + " " + body + ";"
}
