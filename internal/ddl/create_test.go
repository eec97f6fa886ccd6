package ddl

import (
	"strings"
	"testing"

	"csvingest/internal/schema"
)

// ansi is a plain double-quote dialect for tests.
type ansi struct{}

func (ansi) Quote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

func (ansi) MapType(c schema.Column) string {
	if c.Type == schema.Integer {
		return "BIGINT"
	}
	return "TEXT"
}

func (ansi) Guard(quoted, body string) string { return "CREATE TABLE " + quoted + " " + body + ";" }

func TestBuildCreateTableSQL(t *testing.T) {
	tests := []struct {
		name        string
		def         TableDef
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty FQN",
			def:         TableDef{Columns: []ColumnDef{{Name: "id", SQLType: "INT"}}},
			errContains: "table FQN must not be empty",
		},
		{
			name:        "no columns",
			def:         TableDef{FQN: "t"},
			errContains: "at least one column is required",
		},
		{
			name:        "missing type",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: "id"}}},
			errContains: "column id missing SQLType",
		},
		{
			name: "keys and defaults",
			def: TableDef{FQN: "public.vols", Columns: []ColumnDef{
				{Name: "start", SQLType: "TIME", PrimaryKey: true, Nullable: true},
				{Name: "pct", SQLType: "NUMERIC", Default: "0"},
				{Name: `we"ird`, SQLType: "TEXT", Nullable: true},
			}},
			wantSQL: "CREATE TABLE \"public\".\"vols\" (\n" +
				"  \"start\" TIME NOT NULL,\n" +
				"  \"pct\" NUMERIC NOT NULL DEFAULT 0,\n" +
				"  \"we\"\"ird\" TEXT,\n" +
				"  PRIMARY KEY (\"start\")\n" +
				");",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := BuildCreateTableSQL(tc.def, ansi{})
			if tc.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tc.errContains) {
					t.Fatalf("err = %v; want containing %q", err, tc.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.wantSQL {
				t.Fatalf("SQL mismatch\n got: %q\nwant: %q", got, tc.wantSQL)
			}
		})
	}
}

func TestFromSchema(t *testing.T) {
	s := schema.MustRegister([]schema.Column{
		{Name: "id", Type: schema.Integer},
		{Name: "note", Nullable: true},
	})

	td, err := FromSchema("t", s, ansi{}, "id")
	if err != nil {
		t.Fatalf("FromSchema: %v", err)
	}
	if len(td.Columns) != 2 || td.Columns[0].SQLType != "BIGINT" || !td.Columns[0].PrimaryKey || !td.Columns[1].Nullable {
		t.Fatalf("td = %+v", td)
	}

	if _, err := FromSchema("t", s, ansi{}, "missing"); err == nil {
		t.Fatalf("unknown key accepted")
	}
	if _, err := FromSchema("t", schema.MustRegister(nil), ansi{}); err == nil {
		t.Fatalf("empty schema accepted")
	}
}

func TestIsClockLayout(t *testing.T) {
	for layout, want := range map[string]bool{
		"15:04":      true,
		"3:04PM":     true,
		"2006-01-02": false,
		"02.01.06":   false,
		"":           false,
	} {
		if got := IsClockLayout(layout); got != want {
			t.Errorf("IsClockLayout(%q) = %v; want %v", layout, got, want)
		}
	}
}
