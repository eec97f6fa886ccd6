// Package csv turns a byte stream into RawRows one logical record at a time.
//
// Tokenizer wraps encoding/csv: quoting, escaped quotes and embedded
// delimiters or newlines are handled there. This package adds the parts an
// ingest run needs on top: a separately consumed header row, BOM stripping,
// optional streaming byte scrubs, source line numbers for every record, and
// a classification of parse faults into ones the stream can recover from and
// ones it cannot.
package csv

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"csvingest/internal/record"
)

const utf8BOM = "\uFEFF"

// Tokenizer is a sequential RawRow producer. It is not safe for concurrent
// use; the ingest coordinator calls it from a single goroutine.
type Tokenizer struct {
	cr    *csv.Reader
	src   io.Reader
	opt   Options
	lines *lineOffsets

	headerDone bool
	header     []string
	first      bool

	fatal error
}

type readResult struct {
	fields []string
	line   int
	err    error
}

// New returns a Tokenizer reading from r. If r is an io.Closer, Close
// forwards to it.
func New(r io.Reader, opt Options) *Tokenizer {
	src := r
	if len(opt.Scrub) > 0 {
		r = Scrub(r, opt.Scrub)
	}
	lines := newLineOffsets(r)
	cr := csv.NewReader(lines)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.Comment = opt.Comment
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1 // width is the validator's business
	// ReuseRecord stays off: fields are handed to worker goroutines.
	return &Tokenizer{cr: cr, src: src, opt: opt, lines: lines, first: true}
}

// ReadHeader consumes and returns the header row (trimmed, BOM stripped).
// It returns (nil, nil) when Options.HasHeader is false, and io.EOF when
// the input is empty. Calling it more than once returns the same header.
func (t *Tokenizer) ReadHeader() ([]string, error) {
	if !t.opt.HasHeader {
		t.headerDone = true
		return nil, nil
	}
	if t.headerDone {
		return t.header, nil
	}
	r := t.read()
	t.headerDone = true
	if r.err != nil {
		if r.err == io.EOF {
			return nil, io.EOF
		}
		return nil, t.classify(r)
	}
	hdr := make([]string, len(r.fields))
	for i, h := range r.fields {
		hdr[i] = strings.TrimSpace(h)
	}
	t.header = hdr
	return hdr, nil
}

// Header returns the header consumed by ReadHeader, if any.
func (t *Tokenizer) Header() []string { return t.header }

// Next returns the next record. At end of input it returns io.EOF. Faults
// come back as *record.TokenizeError; when its Resync is true the tokenizer
// has skipped past the bad record and Next may be called again, otherwise
// every later call returns the same error.
//
// If a header is expected and ReadHeader was not called, Next consumes it
// first.
func (t *Tokenizer) Next() (record.RawRow, error) {
	if t.fatal != nil {
		return record.RawRow{}, t.fatal
	}
	if !t.headerDone {
		if _, err := t.ReadHeader(); err != nil {
			return record.RawRow{}, err
		}
	}

	r := t.read()
	if r.err != nil {
		if r.err == io.EOF {
			return record.RawRow{}, io.EOF
		}
		return record.RawRow{}, t.classify(r)
	}
	if t.opt.TrimSpace {
		for i, f := range r.fields {
			if hasEdgeSpace(f) {
				r.fields[i] = strings.TrimSpace(f)
			}
		}
	}
	return record.RawRow{Line: r.line, Fields: r.fields}, nil
}

// Close closes the underlying reader when it is an io.Closer.
func (t *Tokenizer) Close() error {
	if c, ok := t.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *Tokenizer) read() readResult {
	fields, err := t.cr.Read()
	if err != nil {
		return readResult{err: err}
	}
	line, _ := t.cr.FieldPos(0)
	t.lines.forget(line)
	if t.first {
		t.first = false
		if len(fields) > 0 {
			fields[0] = strings.TrimPrefix(fields[0], utf8BOM)
		}
	}
	return readResult{fields: fields, line: line}
}

// classify turns a read error into a TokenizeError and records it as fatal
// when the stream cannot continue.
//
// encoding/csv resumes at the next line after most parse errors, so those
// are resynchronizable. The one exception is an unterminated quoted field:
// the reader consumes everything up to EOF looking for the closing quote and
// reports ErrQuote at the end of the input. A quote that did close but was
// followed by a stray character is reported at the quote itself, before the
// end of the consumed input, and the reader resumes on the next line.
func (t *Tokenizer) classify(r readResult) error {
	var pe *csv.ParseError
	if !errors.As(r.err, &pe) {
		t.fatal = &record.TokenizeError{Code: record.ReadFailure, Err: r.err}
		return t.fatal
	}
	t.first = false

	te := &record.TokenizeError{
		Line:   pe.StartLine,
		Code:   record.MalformedQuoting,
		Resync: true,
		Err:    pe,
	}
	if errors.Is(pe.Err, csv.ErrQuote) && pe.Line > pe.StartLine && t.atEndOfInput(pe) {
		te.Resync = false
		t.fatal = te
	}
	return te
}

// atEndOfInput reports whether the position of pe is the end of everything
// the csv reader has consumed. Columns are counted after CRLF is folded to
// LF, so the end of a CRLF line reports one byte short.
func (t *Tokenizer) atEndOfInput(pe *csv.ParseError) bool {
	off, ok := t.lines.offset(pe.Line, pe.Column)
	if !ok {
		return true
	}
	return off+1 >= t.cr.InputOffset()
}

// hasEdgeSpace reports whether s starts or ends with ASCII whitespace.
func hasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case ' ', '\t', '\n', '\r':
		return true
	}
	switch s[len(s)-1] {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
