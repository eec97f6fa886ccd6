package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"csvingest/internal/record"
)

// Sink writes accepted records through a Repository. It implements both the
// single-record and the batch sink contracts of the ingest coordinator; each
// call is one CopyFrom, so a failed call leaves nothing behind.
//
// A Sink is driven from one goroutine.
type Sink struct {
	repo    Repository
	columns []string
	log     *slog.Logger

	batches   int64
	total     int64
	start     time.Time
	lastFlush time.Time
	lastTotal int64
}

// NewSink writes the named columns, in order, of every record to repo.
func NewSink(repo Repository, columns []string, log *slog.Logger) (*Sink, error) {
	if repo == nil {
		return nil, fmt.Errorf("storage: nil repository")
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("storage: sink needs at least one column")
	}
	if log == nil {
		log = slog.Default()
	}
	now := time.Now()
	return &Sink{repo: repo, columns: columns, log: log, start: now, lastFlush: now}, nil
}

// Write inserts one record.
func (s *Sink) Write(ctx context.Context, rec record.Record) error {
	return s.WriteBatch(ctx, []record.Record{rec})
}

// WriteBatch inserts recs in one CopyFrom.
func (s *Sink) WriteBatch(ctx context.Context, recs []record.Record) error {
	if len(recs) == 0 {
		return nil
	}
	rows := make([][]any, len(recs))
	for i, r := range recs {
		row := make([]any, len(s.columns))
		for j, c := range s.columns {
			row[j] = dbValue(r.Values[c])
		}
		rows[i] = row
	}

	n, err := s.repo.CopyFrom(ctx, s.columns, rows)
	if err != nil {
		s.log.Error("storage: copy failed",
			slog.Int("rows", len(rows)),
			slog.Int("first_line", recs[0].Line),
			slog.Int64("total_inserted", s.total),
			slog.Any("err", err),
		)
		return &record.SinkError{Reason: "copy", Err: err}
	}
	if n != int64(len(rows)) {
		return &record.SinkError{Reason: "copy", Err: fmt.Errorf("backend accepted %d of %d rows", n, len(rows))}
	}

	s.batches++
	s.total += n
	now := time.Now()
	since := now.Sub(s.lastFlush)
	rps := float64(0)
	if since > 0 {
		rps = float64(s.total-s.lastTotal) / since.Seconds()
	}
	s.log.Debug("storage: batch",
		slog.Int64("batch", s.batches),
		slog.Float64("rps", rps),
		slog.Int64("inserted", n),
		slog.Int64("total_inserted", s.total),
		slog.Duration("elapsed", now.Sub(s.start).Truncate(time.Millisecond)),
	)
	s.lastFlush, s.lastTotal = now, s.total
	return nil
}

// Inserted reports rows written so far.
func (s *Sink) Inserted() int64 { return s.total }

// dbValue maps record values onto types every database/sql and pgx driver
// accepts. Decimals travel as their canonical string.
func dbValue(v any) any {
	if d, ok := v.(decimal.Decimal); ok {
		return d.String()
	}
	return v
}
