// Package storage holds the backend-agnostic database contract used by the
// ingest database sink, a factory registry that concrete backends join from
// their init functions, and the DDL bootstrap registry.
//
// Backends live in subpackages (postgres, sqlite, mssql); import
// csvingest/internal/storage/all to enable every built-in kind.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Repository is the minimal surface the sink needs from a backend.
type Repository interface {
	// CopyFrom bulk-inserts rows aligned to columns and reports how many
	// rows the backend accepted. A batch is all-or-nothing.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs a statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	Close()
}

// Config carries what every backend needs to open a repository.
type Config struct {
	Kind    string
	DSN     string
	Table   string
	Columns []string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a repository through the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds in lexical order.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
