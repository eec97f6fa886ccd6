package config

import (
	"fmt"
	"strings"
	"time"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single lint finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "sink.kind",
// "transform[1].options.fields"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline performs static validation of a Pipeline. It does not
// mutate the pipeline. Schema compilation errors are reported here too, so a
// pipeline that lints clean will register.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateSchema(p)...)
	issues = append(issues, validateTransforms(p.Transform)...)
	issues = append(issues, validateSink(p.Sink)...)
	issues = append(issues, validateIngest(p.Ingest)...)
	issues = append(issues, validateReport(p.Report)...)
	issues = append(issues, validateMetrics(p.Metrics)...)

	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	switch strings.TrimSpace(s.Kind) {
	case "":
		return append(issues, Issue{SeverityError, "source.kind", "source.kind must not be empty"})
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, Issue{SeverityError, "source.file.path", "file source requires a non-empty path"})
		}
	case "http":
		u := strings.TrimSpace(s.HTTP.URL)
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			issues = append(issues, Issue{SeverityError, "source.http.url", fmt.Sprintf("http source requires an http(s) URL, got %q", u)})
		}
		if s.HTTP.Timeout != "" {
			if _, err := time.ParseDuration(s.HTTP.Timeout); err != nil {
				issues = append(issues, Issue{SeverityError, "source.http.timeout", fmt.Sprintf("invalid duration: %v", err)})
			}
		}
	default:
		issues = append(issues, Issue{SeverityError, "source.kind", fmt.Sprintf("unknown source kind %q", s.Kind)})
	}
	return issues
}

func validateParser(p Parser) []Issue {
	var issues []Issue

	switch strings.TrimSpace(p.Kind) {
	case "":
		return append(issues, Issue{SeverityError, "parser.kind", "parser.kind must not be empty"})
	case "csv":
	default:
		return append(issues, Issue{SeverityError, "parser.kind", fmt.Sprintf("unknown parser kind %q; only csv is supported", p.Kind)})
	}

	if c := p.Options.String("comma", ","); len([]rune(c)) != 1 || c == "\"" || c == "\n" || c == "\r" {
		issues = append(issues, Issue{SeverityError, "parser.options.comma", fmt.Sprintf("comma must be a single non-quote character, got %q", c)})
	}
	for i, rule := range p.Options.Objects("scrub") {
		if rule.String("from", "") == "" {
			issues = append(issues, Issue{SeverityError, fmt.Sprintf("parser.options.scrub[%d].from", i), "scrub rule needs a non-empty from"})
		}
	}
	return issues
}

func validateSchema(p Pipeline) []Issue {
	if len(p.Schema.Columns) == 0 {
		if !p.Parser.Options.Bool("has_header", true) {
			return []Issue{{SeverityError, "schema.columns", "no columns declared and has_header is false; nothing to derive a schema from"}}
		}
		return []Issue{{SeverityWarning, "schema.columns", "no columns declared; an all-string schema will be derived from the header"}}
	}
	if _, err := p.Schema.Build(); err != nil {
		return []Issue{{SeverityError, "schema", err.Error()}}
	}
	return nil
}

// transformRequired lists the option keys each builtin transform needs.
var transformRequired = map[string][]string{
	"normalize": nil,
	"rename":    {"from", "to"},
	"default":   {"values"},
	"require":   {"fields"},
	"compare":   {"left", "op", "right"},
	"case":      {"fields"},
	"drop":      {"fields"},
}

func validateTransforms(ts []Transform) []Issue {
	var issues []Issue

	names := make(map[string]int, len(ts))
	for i, t := range ts {
		path := fmt.Sprintf("transform[%d]", i)
		if n := t.Options.String("name", ""); n != "" {
			if j, dup := names[n]; dup {
				issues = append(issues, Issue{SeverityError, path + ".options.name", fmt.Sprintf("name %q already used by transform[%d]", n, j)})
			} else {
				names[n] = i
			}
		}
		if strings.TrimSpace(t.Kind) == "" {
			issues = append(issues, Issue{SeverityError, path + ".kind", "transform kind must not be empty"})
			continue
		}
		req, ok := transformRequired[t.Kind]
		if !ok {
			issues = append(issues, Issue{SeverityError, path + ".kind", fmt.Sprintf("unknown transform kind %q", t.Kind)})
			continue
		}
		for _, k := range req {
			if t.Options.Any(k) == nil {
				issues = append(issues, Issue{SeverityError, path + ".options." + k, fmt.Sprintf("%s transform requires %q", t.Kind, k)})
			}
		}
	}
	return issues
}

func validateSink(s Sink) []Issue {
	var issues []Issue

	switch strings.TrimSpace(s.Kind) {
	case "":
		return append(issues, Issue{SeverityError, "sink.kind", "sink.kind must not be empty"})
	case "discard":
	case "csv":
		if strings.TrimSpace(s.Path) == "" {
			issues = append(issues, Issue{SeverityError, "sink.path", "csv sink requires a path (use \"-\" for stdout)"})
		}
	case "sqlite", "postgres", "mssql":
		if strings.TrimSpace(s.DB.DSN) == "" {
			issues = append(issues, Issue{SeverityError, "sink.db.dsn", "sink.db.dsn must not be empty"})
		}
		if strings.TrimSpace(s.DB.Table) == "" {
			issues = append(issues, Issue{SeverityError, "sink.db.table", "sink.db.table must not be empty"})
		}
	default:
		issues = append(issues, Issue{SeverityWarning, "sink.kind", fmt.Sprintf("unknown sink kind %q; ensure a matching backend is registered", s.Kind)})
	}
	return issues
}

func validateIngest(c IngestConfig) []Issue {
	var issues []Issue

	if c.Workers < 0 {
		issues = append(issues, Issue{SeverityError, "ingest.workers", "workers must not be negative"})
	}
	if c.Window < 0 {
		issues = append(issues, Issue{SeverityError, "ingest.window", "window must not be negative"})
	}
	if c.Window > 0 && c.Workers > 0 && c.Window < c.Workers {
		issues = append(issues, Issue{SeverityWarning, "ingest.window", fmt.Sprintf("window=%d is below workers=%d; it will be raised to match", c.Window, c.Workers)})
	}
	if c.MaxRowLength < 0 {
		issues = append(issues, Issue{SeverityError, "ingest.max_row_length", "max_row_length must not be negative"})
	}
	if c.BatchSize < 0 {
		issues = append(issues, Issue{SeverityError, "ingest.batch_size", "batch_size must not be negative"})
	}
	return issues
}

func validateReport(r ReportConfig) []Issue {
	switch r.Format {
	case "", "text", "json":
	case "xlsx":
		if r.Path == "" {
			return []Issue{{SeverityError, "report.path", "xlsx report requires a path"}}
		}
	default:
		return []Issue{{SeverityError, "report.format", fmt.Sprintf("unknown report format %q", r.Format)}}
	}
	return nil
}

func validateMetrics(m MetricsConfig) []Issue {
	switch m.Backend {
	case "", "none", "pushgateway", "datadog":
		return nil
	}
	return []Issue{{SeverityWarning, "metrics.backend", fmt.Sprintf("unknown metrics backend %q; metrics disabled", m.Backend)}}
}
