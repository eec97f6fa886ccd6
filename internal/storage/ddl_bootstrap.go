package storage

import (
	"context"
	"fmt"
	"sync"

	"csvingest/internal/schema"
)

// DDLBootstrapper creates table (if missing) with columns derived from s,
// using repo.Exec.
type DDLBootstrapper func(ctx context.Context, repo Repository, table string, s *schema.Schema) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL installs (or replaces) the bootstrapper for kind.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable runs the bootstrapper registered for kind.
func EnsureTable(ctx context.Context, kind string, repo Repository, table string, s *schema.Schema) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage.kind=%q", kind)
	}
	return fn(ctx, repo, table, s)
}
