package config

import (
	"os"
	"path/filepath"
	"testing"
)

const yamlPipeline = `
job: customers
source: { kind: file, file: { path: in.csv } }
parser:
  kind: csv
  options:
    has_header: true
    comma: ";"
    header_map: { "E-mail": email }
    scrub:
      - { from: "\\\"", to: "'" }
schema:
  columns:
    - { name: id, type: integer }
    - name: email
      type: string
      constraints: [{ kind: email }]
transform:
  - { kind: require, options: { fields: [email] } }
sink: { kind: sqlite, db: { dsn: "file::memory:", table: customers } }
ingest: { workers: 4, batch_size: 100 }
`

const jsonPipeline = `{
  "job": "customers",
  "source": {"kind": "file", "file": {"path": "in.csv"}},
  "parser": {"kind": "csv", "options": {"has_header": true, "comma": ";"}},
  "schema": {"columns": [{"name": "id", "type": "integer"}]},
  "transform": [{"kind": "normalize", "options": null}],
  "sink": {"kind": "discard"},
  "ingest": {"workers": 4, "batch_size": 100}
}`

const tomlPipeline = `
job = "customers"

[source]
kind = "file"
file = { path = "in.csv" }

[parser]
kind = "csv"
options = { has_header = true, comma = ";" }

[[schema.columns]]
name = "id"
type = "integer"

[sink]
kind = "discard"

[ingest]
workers = 4
batch_size = 100
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

/*
TestLoad_AllFormats verifies the three supported encodings decode into the
same model, including the free-form parser options bag.
*/
func TestLoad_AllFormats(t *testing.T) {
	for name, body := range map[string]string{
		"p.yaml": yamlPipeline,
		"p.json": jsonPipeline,
		"p.toml": tomlPipeline,
	} {
		t.Run(name, func(t *testing.T) {
			p, err := Load(writeFile(t, name, body))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if p.Job != "customers" || p.Source.File.Path != "in.csv" {
				t.Fatalf("job/source = %q/%q", p.Job, p.Source.File.Path)
			}
			if p.Parser.Options.Rune("comma", ',') != ';' || !p.Parser.Options.Bool("has_header", false) {
				t.Fatalf("parser options = %#v", p.Parser.Options)
			}
			if len(p.Schema.Columns) == 0 || p.Schema.Columns[0].Name != "id" {
				t.Fatalf("schema = %+v", p.Schema)
			}
			if p.Ingest.Workers != 4 || p.Ingest.BatchSize != 100 {
				t.Fatalf("ingest = %+v", p.Ingest)
			}
		})
	}
}

func TestLoad_YAMLNestedOptions(t *testing.T) {
	p, err := Decode([]byte(yamlPipeline), "yml")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m := p.Parser.Options.StringMap("header_map"); m["E-mail"] != "email" {
		t.Fatalf("header_map = %v", m)
	}
	rules := p.Parser.Options.Objects("scrub")
	if len(rules) != 1 || rules[0].String("from", "") != `\"` || rules[0].String("to", "") != "'" {
		t.Fatalf("scrub = %#v", rules)
	}
	if f := p.Transform[0].Options.StringSlice("fields"); len(f) != 1 || f[0] != "email" {
		t.Fatalf("fields = %v", f)
	}
	if issues := ValidatePipeline(p); HasErrors(issues) {
		t.Fatalf("issues = %v", issues)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("want error for missing file")
	}
	if _, err := Decode([]byte(`{"job": "x", "bogus": 1}`), ".json"); err == nil {
		t.Fatalf("want error for unknown field")
	}
	if _, err := Decode([]byte(`job: x`), ".ini"); err == nil {
		t.Fatalf("want error for unknown extension")
	}
}

func TestOptions_Getters(t *testing.T) {
	o := Options{
		"f": float64(3), "i": 4, "i64": int64(5), "s": "x", "b": true,
		"arr": []any{"a", 1, "b"}, "m": map[string]any{"k": "v", "n": 1},
	}
	if o.Int("f", 0) != 3 || o.Int("i", 0) != 4 || o.Int("i64", 0) != 5 || o.Int("s", 9) != 9 {
		t.Fatalf("Int getters wrong")
	}
	if o.String("s", "") != "x" || o.String("missing", "d") != "d" || !o.Bool("b", false) {
		t.Fatalf("String/Bool getters wrong")
	}
	if got := o.StringSlice("arr"); len(got) != 2 {
		t.Fatalf("StringSlice = %v", got)
	}
	if got := o.StringMap("m"); len(got) != 1 || got["k"] != "v" {
		t.Fatalf("StringMap = %v", got)
	}
	var nilOpts Options
	if nilOpts.Int("x", 7) != 7 {
		t.Fatalf("nil Options should return defaults")
	}
}
