package csv

import "csvingest/internal/config"

// Options configures a Tokenizer. Zero Comma means ','.
type Options struct {
	Comma      rune
	Comment    rune
	TrimSpace  bool
	LazyQuotes bool
	HasHeader  bool
	HeaderMap  map[string]string
	Scrub      []ScrubRule
}

// DefaultOptions matches the parser defaults of pipeline files: header on,
// edge whitespace trimmed.
func DefaultOptions() Options {
	return Options{Comma: ',', TrimSpace: true, HasHeader: true}
}

// OptionsFrom reads parser.options from a pipeline file:
//
//   - comma (string; first rune used; default ',')
//   - comment (string; first rune; default none)
//   - trim_space (bool; default true)
//   - lazy_quotes (bool; default false)
//   - has_header (bool; default true)
//   - header_map (object; source header -> column name)
//   - scrub (array of {from, to} literal rewrites)
func OptionsFrom(o config.Options) Options {
	opt := Options{
		Comma:      o.Rune("comma", ','),
		Comment:    o.Rune("comment", 0),
		TrimSpace:  o.Bool("trim_space", true),
		LazyQuotes: o.Bool("lazy_quotes", false),
		HasHeader:  o.Bool("has_header", true),
		HeaderMap:  o.StringMap("header_map"),
	}
	for _, r := range o.Objects("scrub") {
		opt.Scrub = append(opt.Scrub, ScrubRule{
			From: []byte(r.String("from", "")),
			To:   []byte(r.String("to", "")),
		})
	}
	return opt
}
