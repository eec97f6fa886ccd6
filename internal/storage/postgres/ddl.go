package postgres

import (
	"strings"

	"csvingest/internal/ddl"
	"csvingest/internal/schema"
)

// Dialect renders Postgres DDL.
type Dialect struct{}

// Quote double-quotes an identifier, doubling embedded quotes.
func (Dialect) Quote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// MapType maps schema types onto Postgres column types.
func (Dialect) MapType(c schema.Column) string {
	switch c.Type {
	case schema.Integer:
		return "BIGINT"
	case schema.Decimal:
		return "NUMERIC"
	case schema.Boolean:
		return "BOOLEAN"
	case schema.Date:
		if ddl.IsClockLayout(c.Layout) {
			return "TIME"
		}
		return "DATE"
	default:
		return "TEXT"
	}
}

func (Dialect) Guard(quoted, body string) string {
	return "CREATE TABLE IF NOT EXISTS " + quoted + " " + body + ";"
}
