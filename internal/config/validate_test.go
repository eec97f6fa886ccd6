package config

import (
	"testing"

	"csvingest/internal/schema"
)

func validPipeline() Pipeline {
	return Pipeline{
		Job:    "j",
		Source: Source{Kind: "file", File: SourceFile{Path: "in.csv"}},
		Parser: Parser{Kind: "csv", Options: Options{}},
		Schema: schema.Definition{Columns: []schema.ColumnDef{{Name: "id", Type: "integer"}}},
		Sink:   Sink{Kind: "discard"},
	}
}

func hasIssue(issues []Issue, sev IssueSeverity, path string) bool {
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path {
			return true
		}
	}
	return false
}

/*
TestValidatePipeline_Table mutates a valid pipeline one field at a time and
checks that the expected issue path and severity are reported.
*/
func TestValidatePipeline_Table(t *testing.T) {
	if issues := ValidatePipeline(validPipeline()); len(issues) != 0 {
		t.Fatalf("valid pipeline has issues: %v", issues)
	}

	tests := []struct {
		name   string
		mutate func(*Pipeline)
		sev    IssueSeverity
		path   string
	}{
		{"empty job", func(p *Pipeline) { p.Job = "" }, SeverityError, "job"},
		{"no source path", func(p *Pipeline) { p.Source.File.Path = "" }, SeverityError, "source.file.path"},
		{"bad http url", func(p *Pipeline) { p.Source = Source{Kind: "http", HTTP: SourceHTTP{URL: "ftp://x"}} }, SeverityError, "source.http.url"},
		{"bad http timeout", func(p *Pipeline) {
			p.Source = Source{Kind: "http", HTTP: SourceHTTP{URL: "https://x", Timeout: "soon"}}
		}, SeverityError, "source.http.timeout"},
		{"xml parser", func(p *Pipeline) { p.Parser.Kind = "xml" }, SeverityError, "parser.kind"},
		{"bad comma", func(p *Pipeline) { p.Parser.Options["comma"] = ";;" }, SeverityError, "parser.options.comma"},
		{"scrub without from", func(p *Pipeline) { p.Parser.Options["scrub"] = []any{map[string]any{"to": "x"}} }, SeverityError, "parser.options.scrub[0].from"},
		{"bad schema", func(p *Pipeline) { p.Schema.Columns = append(p.Schema.Columns, schema.ColumnDef{Name: "id"}) }, SeverityError, "schema"},
		{"header schema", func(p *Pipeline) { p.Schema.Columns = nil }, SeverityWarning, "schema.columns"},
		{"no schema no header", func(p *Pipeline) { p.Schema.Columns = nil; p.Parser.Options["has_header"] = false }, SeverityError, "schema.columns"},
		{"unknown transform", func(p *Pipeline) { p.Transform = []Transform{{Kind: "coerce"}} }, SeverityError, "transform[0].kind"},
		{"rename without to", func(p *Pipeline) {
			p.Transform = []Transform{{Kind: "rename", Options: Options{"from": "a"}}}
		}, SeverityError, "transform[0].options.to"},
		{"duplicate transform name", func(p *Pipeline) {
			p.Transform = []Transform{
				{Kind: "drop", Options: Options{"fields": []any{"a"}, "name": "x"}},
				{Kind: "drop", Options: Options{"fields": []any{"b"}, "name": "x"}},
			}
		}, SeverityError, "transform[1].options.name"},
		{"db sink without dsn", func(p *Pipeline) { p.Sink = Sink{Kind: "sqlite", DB: DBConfig{Table: "t"}} }, SeverityError, "sink.db.dsn"},
		{"csv sink without path", func(p *Pipeline) { p.Sink = Sink{Kind: "csv"} }, SeverityError, "sink.path"},
		{"negative workers", func(p *Pipeline) { p.Ingest.Workers = -1 }, SeverityError, "ingest.workers"},
		{"small window", func(p *Pipeline) { p.Ingest.Workers, p.Ingest.Window = 4, 2 }, SeverityWarning, "ingest.window"},
		{"xlsx without path", func(p *Pipeline) { p.Report.Format = "xlsx" }, SeverityError, "report.path"},
		{"unknown metrics", func(p *Pipeline) { p.Metrics.Backend = "statsd" }, SeverityWarning, "metrics.backend"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := validPipeline()
			tc.mutate(&p)
			issues := ValidatePipeline(p)
			if !hasIssue(issues, tc.sev, tc.path) {
				t.Fatalf("issues = %v; want %s at %s", issues, tc.sev, tc.path)
			}
		})
	}
}
