// Package ingest drives a stream of raw rows through validation and
// transformation into a sink and builds the run Summary.
//
// Concurrency model:
//
//	producer (1)  tokenizer.Next, between-row cancellation check, window slot
//	     → workers (N)  validate + transform, pure per-row work
//	     → coordinator (1)  ordered reassembly, sink writes, Summary fold
//
// Rows are tagged with a dispatch sequence number. Workers may finish out of
// order; the coordinator holds completed results in a reassembly buffer and
// folds them strictly in sequence order, so the Summary, OnOutcome, and the
// sink all observe source order. A semaphore of Window slots bounds rows in
// flight: a slot is taken before a row is pulled and given back once that
// row is folded, so the producer blocks when ordered output falls behind.
//
// Only the coordinator goroutine touches the Summary and the sink.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"csvingest/internal/metrics"
	"csvingest/internal/record"
	"csvingest/internal/schema"
	"csvingest/internal/transformer"
	"csvingest/internal/validator"
)

// Tokenizer yields raw rows in source order. Next returns io.EOF at the end
// of input and a *record.TokenizeError for faults; any other error is
// treated as an unrecoverable stream fault.
type Tokenizer interface {
	Next() (record.RawRow, error)
}

// Sink consumes accepted records. A returned error rejects that row with
// SINK_FAILURE; it never aborts the run.
type Sink interface {
	Write(ctx context.Context, rec record.Record) error
}

// BatchSink is a Sink that can also take several records in one call. A
// failed batch rejects every row in it.
type BatchSink interface {
	Sink
	WriteBatch(ctx context.Context, recs []record.Record) error
}

// The reject log shows this many rows in full before going quiet.
const logRejects = 3

type job struct {
	seq int64
	raw record.RawRow
	// pre is set for rows already decided by the producer (tokenizer faults).
	pre *record.Outcome
}

type result struct {
	seq int64
	out record.Outcome
}

// producerState is written by the producer before it closes the job channel
// and read by the coordinator only after every worker has exited.
type producerState struct {
	fatal     error
	fatalLine int
	cancelled bool
}

// Run ingests every row tok yields. The returned Summary is always
// populated, even on error. The error is non-nil only for invalid arguments
// and *IngestError{Code: StreamCorrupt}; cancelling ctx ends the run with
// status CANCELLED and a nil error.
func Run(ctx context.Context, tok Tokenizer, s *schema.Schema, p transformer.Pipeline, sink Sink, opt Options) (Summary, error) {
	opt = opt.withDefaults()
	started := time.Now()
	t := newTally(uuid.NewString(), opt.Job, opt.MaxRejectedDetailsStored, started)

	switch {
	case tok == nil:
		return failArgs(t, started, "nil tokenizer")
	case s == nil:
		return failArgs(t, started, "nil schema")
	case sink == nil:
		return failArgs(t, started, "nil sink")
	}

	log := opt.Logger.With(slog.String("run_id", t.sum.RunID), slog.String("job", opt.Job))
	log.Info("ingest: start",
		slog.Int("columns", s.Len()),
		slog.Int("transforms", len(p)),
		slog.Int("workers", opt.Workers),
		slog.Int("window", opt.Window),
		slog.Int("batch_size", opt.BatchSize),
	)

	c := &coordinator{
		opt:   opt,
		log:   log,
		tally: t,
		sink:  sink,
		v:     validator.New(s),
		p:     p,
	}
	if bs, ok := sink.(BatchSink); ok && opt.BatchSize > 1 {
		c.batchSink = bs
	}
	st, err := c.run(ctx, tok)

	sum := t.finish(st, time.Since(started))
	if err != nil {
		sum.Error = err.Error()
	}
	c.logSummary(sum)
	recordMetrics(opt.Job, sum, err)
	return sum, err
}

func failArgs(t *tally, started time.Time, msg string) (Summary, error) {
	err := &IngestError{Code: InvalidArgument, Err: errors.New(msg)}
	sum := t.finish(Aborted, time.Since(started))
	sum.Error = err.Error()
	return sum, err
}

type coordinator struct {
	opt       Options
	log       *slog.Logger
	tally     *tally
	sink      Sink
	batchSink BatchSink
	v         *validator.Validator
	p         transformer.Pipeline

	batch    []record.Outcome
	halted   bool
	rejected int
}

func (c *coordinator) run(parent context.Context, tok Tokenizer) (Status, error) {
	ctx, stop := context.WithCancel(parent)
	defer stop()

	jobs := make(chan job, c.opt.Workers)
	results := make(chan result, c.opt.Window)
	slots := make(chan struct{}, c.opt.Window)
	var ps producerState

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		c.produce(gctx, parent, tok, jobs, slots, &ps)
		return nil
	})
	for i := 0; i < c.opt.Workers; i++ {
		g.Go(func() error {
			for j := range jobs {
				r := result{seq: j.seq}
				if j.pre != nil {
					r.out = *j.pre
				} else {
					r.out = c.process(j.raw)
				}
				select {
				case results <- r:
				case <-gctx.Done():
					// Drain so the producer never blocks on a full jobs channel.
					for range jobs {
					}
					return nil
				}
			}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	var (
		pending   = make(map[int64]record.Outcome, c.opt.Window)
		next      int64
		stopped   bool
		cancelled bool
	)
	for r := range results {
		if stopped {
			continue
		}
		pending[r.seq] = r.out
		for {
			o, ok := pending[next]
			if !ok {
				break
			}
			if parent.Err() != nil {
				cancelled, stopped = true, true
				stop()
				break
			}
			delete(pending, next)
			next++
			c.fold(ctx, o)
			<-slots
			if c.halted {
				stopped = true
				stop()
				break
			}
		}
	}

	switch {
	case c.halted:
		return Halted, nil
	case cancelled || ps.cancelled && ps.fatal == nil:
		// Records held for a batch were never written; they are not counted.
		c.batch = c.batch[:0]
		return Cancelled, nil
	}

	c.flush(ctx)
	if c.halted {
		return Halted, nil
	}
	if ps.fatal != nil {
		return Aborted, &IngestError{Code: StreamCorrupt, Line: ps.fatalLine, Err: ps.fatal}
	}
	return Completed, nil
}

// produce pulls rows until EOF, a fatal fault, or cancellation. parent is the
// caller's context; ctx additionally ends on halt.
func (c *coordinator) produce(ctx, parent context.Context, tok Tokenizer, jobs chan<- job, slots chan struct{}, ps *producerState) {
	var seq int64
	for {
		if parent.Err() != nil {
			ps.cancelled = true
			return
		}
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			ps.cancelled = parent.Err() != nil
			return
		}

		raw, err := tok.Next()
		if err == io.EOF {
			<-slots
			return
		}
		j := job{seq: seq, raw: raw}
		if err != nil {
			var te *record.TokenizeError
			if !errors.As(err, &te) || !te.Resync {
				ps.fatal = err
				if te != nil {
					ps.fatalLine = te.Line
				}
				<-slots
				return
			}
			o := record.Reject(te.Line, record.FieldError{
				Line:    te.Line,
				Index:   -1,
				Reason:  record.ReasonMalformedRow,
				Message: fmt.Sprintf("%s: %v", te.Code, te.Err),
			})
			j.pre = &o
		}

		select {
		case jobs <- j:
			seq++
		case <-ctx.Done():
			ps.cancelled = parent.Err() != nil
			return
		}
	}
}

// process is the pure per-row stage run by workers.
func (c *coordinator) process(raw record.RawRow) record.Outcome {
	if c.opt.MaxRowLength > 0 && len(raw.Fields) > c.opt.MaxRowLength {
		return record.Reject(raw.Line, validator.ExtraColumn(raw, c.opt.MaxRowLength))
	}
	o := c.v.Validate(raw)
	if !o.Accepted {
		return o
	}
	rec, fe := c.p.Apply(*o.Record)
	if fe != nil {
		return record.Reject(raw.Line, *fe)
	}
	return record.Accept(rec)
}

// fold forwards one ordered outcome to the sink and the Summary.
func (c *coordinator) fold(ctx context.Context, o record.Outcome) {
	if !o.Accepted {
		// A reject must not overtake accepted rows still waiting in a batch.
		c.flush(ctx)
		if c.halted {
			return
		}
		c.account(o)
		return
	}

	if c.batchSink != nil {
		c.batch = append(c.batch, o)
		if len(c.batch) >= c.opt.BatchSize {
			c.flush(ctx)
		}
		return
	}

	if err := c.sink.Write(ctx, *o.Record); err != nil {
		c.account(sinkReject(o, err))
		return
	}
	c.account(o)
}

// flush writes the pending batch, if any, and accounts for its rows.
func (c *coordinator) flush(ctx context.Context) {
	if len(c.batch) == 0 || c.halted {
		return
	}
	recs := make([]record.Record, len(c.batch))
	for i, o := range c.batch {
		recs[i] = *o.Record
	}
	err := c.batchSink.WriteBatch(ctx, recs)
	if err == nil {
		metrics.RecordBatches(c.opt.Job, 1)
	} else {
		c.log.Warn("ingest: batch write failed",
			slog.Int("rows", len(recs)),
			slog.Int("first_line", recs[0].Line),
			slog.Int("last_line", recs[len(recs)-1].Line),
			slog.Any("err", err),
		)
	}
	batch := c.batch
	c.batch = c.batch[:0]
	for _, o := range batch {
		if c.halted {
			return
		}
		if err != nil {
			o = sinkReject(o, err)
		}
		c.account(o)
	}
}

// account is the single point where an outcome becomes part of the Summary.
func (c *coordinator) account(o record.Outcome) {
	c.tally.add(o)
	if c.opt.OnOutcome != nil {
		c.opt.OnOutcome(o)
	}
	if o.Accepted {
		return
	}
	c.rejected++
	switch {
	case c.rejected <= logRejects:
		c.log.Warn("ingest: row rejected", slog.Int("line", o.Line), slog.Any("errors", o.Errors))
	case c.rejected == logRejects+1:
		c.log.Warn("ingest: additional rejections suppressed")
	}
	if c.opt.StopOnFirstError {
		c.halted = true
	}
}

func sinkReject(o record.Outcome, err error) record.Outcome {
	return record.Reject(o.Line, record.FieldError{
		Line:    o.Line,
		Index:   -1,
		Reason:  record.ReasonSinkFailure,
		Message: err.Error(),
	})
}

func (c *coordinator) logSummary(s Summary) {
	c.log.Info("ingest: summary",
		slog.String("status", string(s.Status)),
		slog.Int64("seen", s.RowsSeen),
		slog.Int64("accepted", s.RowsAccepted),
		slog.Int64("rejected", s.RowsRejected),
		slog.Int("details", len(s.Rejected)),
		slog.Int("first_line", s.FirstLine),
		slog.Int("last_line", s.LastLine),
		slog.Bool("truncated", s.Truncated),
		slog.Duration("elapsed", s.Duration.Truncate(time.Millisecond)),
	)
	if s.RowsSeen != s.RowsAccepted+s.RowsRejected {
		c.log.Error("ingest: row accounting mismatch",
			slog.Int64("seen", s.RowsSeen),
			slog.Int64("accounted", s.RowsAccepted+s.RowsRejected),
		)
	}
	for reason, n := range s.RejectedByReason {
		c.log.Info("ingest: rejects by reason", slog.String("reason", string(reason)), slog.Int64("rows", n))
	}
}

func recordMetrics(job string, s Summary, err error) {
	metrics.RecordStep(job, "ingest", err, s.Duration)
	metrics.RecordRow(job, "seen", s.RowsSeen)
	metrics.RecordRow(job, "accepted", s.RowsAccepted)
	metrics.RecordRow(job, "rejected", s.RowsRejected)
	for reason, n := range s.RejectedByReason {
		metrics.RecordReject(job, string(reason), n)
	}
}
