// Package ddl is a small dialect-neutral model of a table definition and a
// renderer for CREATE TABLE statements. Storage backends supply a Dialect for
// quoting, type mapping and the idempotency guard.
package ddl

// ColumnDef describes one column. Name is unquoted; quoting happens at
// render time. Default is a raw SQL expression.
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds a dotted table name ("schema.table") and its ordered
// columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}
