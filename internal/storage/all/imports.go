// Package all enables every built-in storage backend. Import it for its side
// effects:
//
//	import _ "csvingest/internal/storage/all"
//
// after which storage.New and storage.EnsureTable accept the kinds
// "postgres", "mssql" and "sqlite".
package all

import (
	_ "csvingest/internal/storage/mssql"
	_ "csvingest/internal/storage/postgres"
	_ "csvingest/internal/storage/sqlite"
)
