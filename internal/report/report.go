// Package report renders an ingest.Summary for people and machines: a text
// block (optionally colored), JSON, a CSV of retained rejects and an XLSX
// workbook.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/fatih/color"

	"csvingest/internal/ingest"
	"csvingest/internal/record"
)

// TextOptions tunes WriteText.
type TextOptions struct {
	// Color enables ANSI colors regardless of whether w is a terminal.
	Color bool
	// MaxRejects caps how many rejected rows are listed (default 20).
	MaxRejects int
}

// WriteText writes a human summary of s to w.
func WriteText(w io.Writer, s ingest.Summary, opt TextOptions) error {
	if opt.MaxRejects <= 0 {
		opt.MaxRejects = 20
	}
	paint := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if opt.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	title := paint(color.FgCyan, color.Bold)
	label := paint(color.FgWhite)
	good := paint(color.FgGreen)
	bad := paint(color.FgRed)
	warn := paint(color.FgYellow)

	status := good
	switch s.Status {
	case ingest.Halted, ingest.Cancelled:
		status = warn
	case ingest.Aborted:
		status = bad
	}

	ew := &errWriter{w: w}
	job := s.Job
	if job == "" {
		job = "-"
	}
	ew.printf("%s\n", title.Sprintf("ingest %s (run %s)", job, s.RunID))
	ew.printf("  %s %s\n", label.Sprint("status:  "), status.Sprint(string(s.Status)))
	ew.printf("  %s %d\n", label.Sprint("seen:    "), s.RowsSeen)
	ew.printf("  %s %s\n", label.Sprint("accepted:"), good.Sprint(s.RowsAccepted))
	rej := good
	if s.RowsRejected > 0 {
		rej = bad
	}
	ew.printf("  %s %s\n", label.Sprint("rejected:"), rej.Sprint(s.RowsRejected))
	if s.RowsSeen > 0 {
		ew.printf("  %s %d-%d\n", label.Sprint("lines:   "), s.FirstLine, s.LastLine)
	}
	ew.printf("  %s %s\n", label.Sprint("duration:"), s.Duration.Truncate(time.Millisecond))
	if s.Truncated {
		ew.printf("  %s\n", warn.Sprint("input not fully consumed"))
	}
	if s.Error != "" {
		ew.printf("  %s %s\n", label.Sprint("error:   "), bad.Sprint(s.Error))
	}

	if len(s.RejectedByReason) > 0 {
		ew.printf("%s\n", title.Sprint("rejects by reason"))
		for _, r := range sortedReasons(s.RejectedByReason) {
			ew.printf("  %-22s %d\n", r, s.RejectedByReason[r])
		}
	}

	if len(s.Rejected) > 0 {
		ew.printf("%s\n", title.Sprint("rejected rows"))
		for i, o := range s.Rejected {
			if i == opt.MaxRejects {
				ew.printf("  ... %d more retained\n", len(s.Rejected)-i)
				break
			}
			for _, fe := range o.Errors {
				ew.printf("  %s\n", bad.Sprint(fe.Error()))
			}
		}
		if d := s.DetailsDropped(); d > 0 {
			ew.printf("  %s\n", warn.Sprintf("%d rejected rows without retained detail", d))
		}
	}
	return ew.err
}

// WriteJSON writes s as indented JSON.
func WriteJSON(w io.Writer, s ingest.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// RejectsHeader is the column layout of WriteRejectsCSV.
var RejectsHeader = []string{"reason", "line", "column", "raw", "message"}

// WriteRejectsCSV writes one line per retained field error.
func WriteRejectsCSV(w io.Writer, s ingest.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RejectsHeader); err != nil {
		return err
	}
	for _, o := range s.Rejected {
		for _, fe := range o.Errors {
			rec := []string{string(fe.Reason), strconv.Itoa(fe.Line), fe.Column, fe.Raw, fe.Message}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func sortedReasons(m map[record.ReasonCode]int64) []record.ReasonCode {
	out := make([]record.ReasonCode, 0, len(m))
	for r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if m[out[i]] != m[out[j]] {
			return m[out[i]] > m[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, a ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, a...)
}
