package mssql

import (
	"fmt"

	"csvingest/internal/ddl"
	"csvingest/internal/schema"
)

// Dialect renders T-SQL DDL. T-SQL has no CREATE TABLE IF NOT EXISTS, so
// the statement is wrapped in an OBJECT_ID guard.
type Dialect struct{}

func (Dialect) Quote(id string) string { return quoteIdent(id) }

func (Dialect) MapType(c schema.Column) string {
	switch c.Type {
	case schema.Integer:
		return "BIGINT"
	case schema.Decimal:
		return "DECIMAL(38, 10)"
	case schema.Boolean:
		return "BIT"
	case schema.Date:
		if ddl.IsClockLayout(c.Layout) {
			return "TIME"
		}
		return "DATE"
	default:
		return "NVARCHAR(MAX)"
	}
}

func (Dialect) Guard(quoted, body string) string {
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s %s;\nEND;", quoted, quoted, body)
}
