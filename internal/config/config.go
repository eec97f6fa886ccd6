// Package config defines the pipeline file model for csvingest.
//
// A pipeline file names one input, the schema rows are checked against, an
// ordered transform chain, and one sink. Files may be JSON, YAML or TOML;
// Load picks the decoder from the file extension. Parser- and
// transform-specific settings live in free-form Options bags and are read
// with the typed getters below.
//
// Example (YAML, trimmed):
//
//	job: customers
//	source: { kind: file, file: { path: data/customers.csv } }
//	parser: { kind: csv, options: { has_header: true } }
//	schema:
//	  columns:
//	    - { name: id, type: integer }
//	    - { name: email, type: string, constraints: [{ kind: email }] }
//	transform:
//	  - { kind: normalize }
//	sink: { kind: sqlite, db: { dsn: "file:out.db", table: customers, auto_create_table: true } }
//	ingest: { workers: 4 }
package config

import (
	"encoding/json"

	"csvingest/internal/schema"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job identifies the run in logs, metrics and reports.
	Job string `json:"job" yaml:"job" toml:"job"`

	Source Source `json:"source" yaml:"source" toml:"source"`
	Parser Parser `json:"parser" yaml:"parser" toml:"parser"`

	// Schema is the declared column contract. When it has no columns and the
	// parser reads a header, an all-string schema is derived from the header.
	Schema schema.Definition `json:"schema" yaml:"schema" toml:"schema"`

	// Transform lists the ordered per-record transforms.
	Transform []Transform `json:"transform" yaml:"transform" toml:"transform"`

	Sink    Sink          `json:"sink" yaml:"sink" toml:"sink"`
	Ingest  IngestConfig  `json:"ingest" yaml:"ingest" toml:"ingest"`
	Report  ReportConfig  `json:"report" yaml:"report" toml:"report"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics" toml:"metrics"`
}

// Source identifies where input bytes come from.
type Source struct {
	// Kind selects the implementation: "file" or "http".
	Kind string     `json:"kind" yaml:"kind" toml:"kind"`
	File SourceFile `json:"file" yaml:"file" toml:"file"`
	HTTP SourceHTTP `json:"http" yaml:"http" toml:"http"`
}

// SourceFile configures the "file" source kind.
type SourceFile struct {
	Path string `json:"path" yaml:"path" toml:"path"`
}

// SourceHTTP configures the "http" source kind.
type SourceHTTP struct {
	URL string `json:"url" yaml:"url" toml:"url"`
	// Timeout is a time.ParseDuration string bounding the whole download;
	// empty means the client default of 30s.
	Timeout string            `json:"timeout" yaml:"timeout" toml:"timeout"`
	Headers map[string]string `json:"headers" yaml:"headers" toml:"headers"`
}

// Parser selects how bytes are tokenized into rows.
type Parser struct {
	// Kind selects the parser implementation. Current value: "csv".
	Kind string `json:"kind" yaml:"kind" toml:"kind"`

	// Options is interpreted by the parser. For CSV the keys are:
	//   comma (string), comment (string), trim_space (bool, default true),
	//   lazy_quotes (bool), has_header (bool, default true),
	//   header_map (object), scrub (array of {from, to})
	Options Options `json:"options" yaml:"options" toml:"options"`
}

// Transform declares one step of the transform chain.
type Transform struct {
	// Kind selects the builtin: normalize, rename, default, require, compare,
	// case, drop.
	Kind string `json:"kind" yaml:"kind" toml:"kind"`

	// Options is interpreted by the selected transform.
	Options Options `json:"options" yaml:"options" toml:"options"`
}

// Sink selects where accepted records go.
type Sink struct {
	// Kind is one of: discard, csv, sqlite, postgres, mssql.
	Kind string `json:"kind" yaml:"kind" toml:"kind"`

	// Path is the output file for the csv sink ("-" for stdout).
	Path string `json:"path" yaml:"path" toml:"path"`

	// DedupKeys, when set, rejects records whose key tuple was already
	// written during this run.
	DedupKeys []string `json:"dedup_keys" yaml:"dedup_keys" toml:"dedup_keys"`

	DB DBConfig `json:"db" yaml:"db" toml:"db"`
}

// DBConfig configures the database sinks.
type DBConfig struct {
	// DSN is the driver-specific connection string.
	DSN string `json:"dsn" yaml:"dsn" toml:"dsn"`

	// Table is the destination table, optionally schema-qualified.
	Table string `json:"table" yaml:"table" toml:"table"`

	// Columns optionally restricts and orders the written columns. Empty means
	// every schema column in declaration order.
	Columns []string `json:"columns" yaml:"columns" toml:"columns"`

	// AutoCreateTable creates the table from the schema when missing.
	AutoCreateTable bool `json:"auto_create_table" yaml:"auto_create_table" toml:"auto_create_table"`
}

// IngestConfig carries the coordinator knobs. Zero values select defaults.
type IngestConfig struct {
	// MaxRejectedDetails caps retained reject details (default 100, negative
	// keeps none). Counts stay exact regardless.
	MaxRejectedDetails int  `json:"max_rejected_details" yaml:"max_rejected_details" toml:"max_rejected_details"`
	StopOnFirstError   bool `json:"stop_on_first_error" yaml:"stop_on_first_error" toml:"stop_on_first_error"`
	MaxRowLength       int  `json:"max_row_length" yaml:"max_row_length" toml:"max_row_length"`
	Workers            int  `json:"workers" yaml:"workers" toml:"workers"`
	Window             int  `json:"window" yaml:"window" toml:"window"`
	BatchSize          int  `json:"batch_size" yaml:"batch_size" toml:"batch_size"`
}

// ReportConfig controls how the run summary is rendered.
type ReportConfig struct {
	// Format is text (default), json or xlsx.
	Format string `json:"format" yaml:"format" toml:"format"`
	// Path is the summary destination; empty writes to stdout (xlsx requires
	// a path).
	Path string `json:"path" yaml:"path" toml:"path"`
	// RejectsPath additionally writes retained rejects as CSV.
	RejectsPath string `json:"rejects_path" yaml:"rejects_path" toml:"rejects_path"`
	Color       bool   `json:"color" yaml:"color" toml:"color"`
}

// MetricsConfig selects a metrics backend: none (default), pushgateway or
// datadog.
type MetricsConfig struct {
	Backend        string `json:"backend" yaml:"backend" toml:"backend"`
	PushgatewayURL string `json:"pushgateway_url" yaml:"pushgateway_url" toml:"pushgateway_url"`
	DatadogAddr    string `json:"datadog_addr" yaml:"datadog_addr" toml:"datadog_addr"`
}

// Options fetches typed values from a free-form map. Getters return def when
// a key is absent or of an unexpected type. The numeric getters accept the
// number types produced by the JSON (float64), YAML (int) and TOML (int64)
// decoders.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if s, ok := o[key].(string); ok {
		return s
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if b, ok := o[key].(bool); ok {
		return b
	}
	return def
}

// Int returns the integer value for key or def.
func (o Options) Int(key string, def int) int {
	switch n := o[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return def
}

// Rune returns the first rune of a string value for key, or def.
func (o Options) Rune(key string, def rune) rune {
	if s, ok := o[key].(string); ok && len(s) > 0 {
		return []rune(s)[0]
	}
	return def
}

// StringMap returns the string-valued entries of an object value. Missing
// keys yield an empty map.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	switch m := o[key].(type) {
	case map[string]any:
		for k, v := range m {
			if s, ok := v.(string); ok {
				res[k] = s
			}
		}
	case map[string]string:
		for k, v := range m {
			res[k] = v
		}
	}
	return res
}

// StringSlice returns the string elements of an array value, or nil.
func (o Options) StringSlice(key string) []string {
	switch vv := o[key].(type) {
	case []any:
		out := make([]string, 0, len(vv))
		for _, x := range vv {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return vv
	}
	return nil
}

// Objects returns the object elements of an array value as Options, or nil.
// Used for lists such as parser scrub rules.
func (o Options) Objects(key string) []Options {
	arr, ok := o[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Options, 0, len(arr))
	for _, x := range arr {
		if m, ok := x.(map[string]any); ok {
			out = append(out, Options(m))
		}
	}
	return out
}

// Any returns the raw value for key.
func (o Options) Any(key string) any { return o[key] }

// UnmarshalJSON decodes a missing or null options object into an empty map.
func (o *Options) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	var tmp map[string]any
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
