package mssql

import (
	"context"
	"fmt"

	"csvingest/internal/ddl"
	"csvingest/internal/schema"
	"csvingest/internal/storage"
)

var newRepository = NewRepository

type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{
			DSN:     cfg.DSN,
			Table:   cfg.Table,
			Columns: cfg.Columns,
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})

	storage.RegisterDDL("mssql", func(ctx context.Context, repo storage.Repository, table string, s *schema.Schema) error {
		td, err := ddl.FromSchema(table, s, Dialect{})
		if err != nil {
			return fmt.Errorf("infer table definition: %w", err)
		}
		sql, err := ddl.BuildCreateTableSQL(td, Dialect{})
		if err != nil {
			return err
		}
		return repo.Exec(ctx, sql)
	})
}
