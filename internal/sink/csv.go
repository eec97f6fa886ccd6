package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"csvingest/internal/record"
)

// CSV writes records as CSV rows with a header line of columns. Values are
// rendered with record.Canonical; nulls become empty fields.
//
// Rows are encoded into a buffer and handed to the underlying writer in one
// Write per call, so a failed batch leaves none of its rows behind.
type CSV struct {
	out     io.Writer
	c       io.Closer
	columns []string
	wrote   bool

	buf    bytes.Buffer
	enc    *csv.Writer
	row    []string
	queued bool // header encoded but not committed
}

// NewCSV writes to w. When w is an io.Closer, Close closes it.
func NewCSV(w io.Writer, columns []string) *CSV {
	s := &CSV{out: w, columns: columns, row: make([]string, len(columns))}
	s.enc = csv.NewWriter(&s.buf)
	if c, ok := w.(io.Closer); ok {
		s.c = c
	}
	return s
}

// Write appends one row.
func (s *CSV) Write(_ context.Context, rec record.Record) error {
	if err := s.encode(rec); err != nil {
		return err
	}
	return s.commit()
}

// WriteBatch appends recs with a single write to the underlying writer.
func (s *CSV) WriteBatch(_ context.Context, recs []record.Record) error {
	for _, rec := range recs {
		if err := s.encode(rec); err != nil {
			return err
		}
	}
	return s.commit()
}

func (s *CSV) encode(rec record.Record) error {
	if !s.wrote && !s.queued {
		if err := s.enc.Write(s.columns); err != nil {
			s.reset()
			return fmt.Errorf("csv sink: header: %w", err)
		}
		s.queued = true
	}
	for i, c := range s.columns {
		s.row[i] = record.Canonical(rec.Values[c])
	}
	if err := s.enc.Write(s.row); err != nil {
		s.reset()
		return fmt.Errorf("csv sink: %w", err)
	}
	return nil
}

// commit writes everything encoded since the last commit. The header counts
// as written only once a commit carrying it succeeds.
func (s *CSV) commit() error {
	s.enc.Flush()
	if err := s.enc.Error(); err != nil {
		s.reset()
		return fmt.Errorf("csv sink: %w", err)
	}
	defer s.reset()
	if _, err := s.out.Write(s.buf.Bytes()); err != nil {
		return fmt.Errorf("csv sink: %w", err)
	}
	s.wrote = true
	return nil
}

// reset drops rows encoded but not yet committed.
func (s *CSV) reset() {
	s.enc.Flush()
	s.buf.Reset()
	s.queued = false
}

// Close writes the header if nothing else was written and closes the
// underlying writer when it is closable.
func (s *CSV) Close() error {
	if !s.wrote {
		if err := s.enc.Write(s.columns); err != nil {
			return err
		}
		s.queued = true
		if err := s.commit(); err != nil {
			return err
		}
	}
	if s.c != nil {
		return s.c.Close()
	}
	return nil
}
