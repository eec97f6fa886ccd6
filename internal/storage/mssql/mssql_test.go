package mssql

import (
	"context"
	"os"
	"testing"

	"csvingest/internal/schema"
	"csvingest/internal/storage"
)

type recRepo struct{ execs []string }

func (r *recRepo) CopyFrom(context.Context, []string, [][]any) (int64, error) { return 0, nil }
func (r *recRepo) Close()                                                     {}

func (r *recRepo) Exec(_ context.Context, sql string) error {
	r.execs = append(r.execs, sql)
	return nil
}

// TestRegistrationUsesHook verifies storage.New reaches newRepository with
// the mapped config and that Close calls the returned closer.
func TestRegistrationUsesHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var got Config
	closed := false
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		got = cfg
		return &Repository{}, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{
		Kind:    "mssql",
		DSN:     "sqlserver://example",
		Table:   "dbo.volumes",
		Columns: []string{"start", "percentage"},
	})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if got.DSN != "sqlserver://example" || got.Table != "dbo.volumes" {
		t.Fatalf("cfg = %+v", got)
	}
	repo.Close()
	if !closed {
		t.Fatalf("Close did not call closer")
	}
}

func TestNewRepository_BadDSN(t *testing.T) {
	if _, _, err := NewRepository(context.Background(), Config{DSN: "sqlserver://%zz"}); err == nil {
		t.Fatalf("invalid DSN accepted")
	}
}

/*
TestDDLBootstrap checks the OBJECT_ID guard, bracket quoting and the type
mapping.
*/
func TestDDLBootstrap(t *testing.T) {
	s := schema.MustRegister([]schema.Column{
		{Name: "start", Type: schema.Date, Layout: "15:04"},
		{Name: "percentage", Type: schema.Decimal},
		{Name: "odd]name", Type: schema.Boolean, Nullable: true},
	})
	repo := &recRepo{}
	if err := storage.EnsureTable(context.Background(), "mssql", repo, "dbo.volumes", s); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	want := "IF OBJECT_ID(N'[dbo].[volumes]', N'U') IS NULL\nBEGIN\n" +
		"  CREATE TABLE [dbo].[volumes] (\n" +
		"  [start] TIME NOT NULL,\n" +
		"  [percentage] DECIMAL(38, 10) NOT NULL,\n" +
		"  [odd]]name] BIT\n" +
		");\nEND;"
	if len(repo.execs) != 1 || repo.execs[0] != want {
		t.Fatalf("DDL mismatch\n got: %q\nwant: %q", repo.execs, want)
	}
}

// TestCopyFrom_Live runs only when TEST_MSSQL_DSN is set.
func TestCopyFrom_Live(t *testing.T) {
	dsn := os.Getenv("TEST_MSSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MSSQL_DSN not set")
	}
	ctx := context.Background()
	r, closeFn, err := NewRepository(ctx, Config{DSN: dsn, Table: "csvingest_live"})
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	defer closeFn()

	_ = r.Exec(ctx, "IF OBJECT_ID(N'csvingest_live', N'U') IS NOT NULL DROP TABLE csvingest_live")
	if err := r.Exec(ctx, "CREATE TABLE csvingest_live (a BIGINT, b NVARCHAR(50))"); err != nil {
		t.Fatalf("create: %v", err)
	}
	n, err := r.CopyFrom(ctx, []string{"a", "b"}, [][]any{{int64(1), "x"}, {int64(2), nil}})
	if err != nil || n != 2 {
		t.Fatalf("CopyFrom = %d, %v", n, err)
	}
}
