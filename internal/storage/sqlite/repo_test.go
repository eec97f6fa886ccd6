package sqlite

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"csvingest/internal/record"
	"csvingest/internal/schema"
	"csvingest/internal/storage"
)

func volumeSchema(t *testing.T) *schema.Schema {
	t.Helper()
	return schema.MustRegister([]schema.Column{
		{Name: "start", Type: schema.Date, Layout: "15:04"},
		{Name: "percentage", Type: schema.Decimal},
		{Name: "type"},
		{Name: "note", Nullable: true},
	})
}

func openMem(t *testing.T) storage.Repository {
	t.Helper()
	repo, err := storage.New(context.Background(), storage.Config{
		Kind:    "sqlite",
		DSN:     ":memory:",
		Table:   "volumes",
		Columns: []string{"start", "percentage", "type", "note"},
	})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(repo.Close)
	return repo
}

func count(t *testing.T, repo storage.Repository) int {
	t.Helper()
	var n int
	if err := repo.(*wrappedRepo).DB().QueryRow(`SELECT COUNT(*) FROM volumes`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

/*
TestEnsureTableAndSink drives the storage sink into a real in-memory SQLite
database: the table is created from the schema, a batch lands, and a second
EnsureTable is a no-op.
*/
func TestEnsureTableAndSink(t *testing.T) {
	ctx := context.Background()
	repo := openMem(t)
	s := volumeSchema(t)

	if err := storage.EnsureTable(ctx, "sqlite", repo, "volumes", s); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if err := storage.EnsureTable(ctx, "sqlite", repo, "volumes", s); err != nil {
		t.Fatalf("second EnsureTable: %v", err)
	}

	sink, err := storage.NewSink(repo, s.Names(), nil)
	if err != nil {
		t.Fatal(err)
	}
	recs := []record.Record{
		{Line: 2, Values: map[string]any{"start": "09:00", "percentage": decimal.RequireFromString("1.25"), "type": "TWAP"}},
		{Line: 3, Values: map[string]any{"start": "09:05", "percentage": decimal.RequireFromString("2.5"), "type": "TWAP", "note": "open"}},
	}
	if err := sink.WriteBatch(ctx, recs); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if got := count(t, repo); got != 2 {
		t.Fatalf("rows = %d; want 2", got)
	}

	var pct string
	db := repo.(*wrappedRepo).DB()
	if err := db.QueryRow(`SELECT CAST(percentage AS TEXT) FROM volumes WHERE start = '09:05'`).Scan(&pct); err != nil {
		t.Fatalf("select: %v", err)
	}
	if pct != "2.5" {
		t.Fatalf("percentage = %q; want 2.5", pct)
	}
}

// TestCopyFrom_RollsBackBatch verifies a NOT NULL violation mid-batch leaves
// the table untouched.
func TestCopyFrom_RollsBackBatch(t *testing.T) {
	ctx := context.Background()
	repo := openMem(t)
	if err := storage.EnsureTable(ctx, "sqlite", repo, "volumes", volumeSchema(t)); err != nil {
		t.Fatal(err)
	}

	cols := []string{"start", "percentage", "type", "note"}
	_, err := repo.CopyFrom(ctx, cols, [][]any{
		{"09:00", "1", "TWAP", nil},
		{"09:05", "1", nil, nil},
	})
	if err == nil {
		t.Fatalf("CopyFrom succeeded with a NULL in a NOT NULL column")
	}
	if got := count(t, repo); got != 0 {
		t.Fatalf("rows = %d after failed batch; want 0", got)
	}

	if _, err := repo.CopyFrom(ctx, cols, [][]any{{"09:00"}}); err == nil {
		t.Fatalf("short row accepted")
	}
}

func TestNewRepository_EmptyDSN(t *testing.T) {
	if _, _, err := NewRepository(context.Background(), Config{}); err == nil {
		t.Fatalf("empty DSN accepted")
	}
}

func TestDialect_MapType(t *testing.T) {
	tests := map[schema.Type]string{
		schema.String:  "TEXT",
		schema.Integer: "INTEGER",
		schema.Boolean: "INTEGER",
		schema.Decimal: "NUMERIC",
		schema.Date:    "TEXT",
	}
	for typ, want := range tests {
		if got := (Dialect{}).MapType(schema.Column{Type: typ}); got != want {
			t.Errorf("MapType(%s) = %s; want %s", typ, got, want)
		}
	}
}
