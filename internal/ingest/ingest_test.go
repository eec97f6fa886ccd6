package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"

	csvparse "csvingest/internal/parser/csv"
	"csvingest/internal/record"
	"csvingest/internal/schema"
	"csvingest/internal/transformer"
)

// sliceTok yields rows, then io.EOF. An entry in faults replaces the row at
// that index with an error.
type sliceTok struct {
	rows   []record.RawRow
	faults map[int]error
	i      int
	// onNext, when set, runs before each row is returned.
	onNext func(i int)
}

func (s *sliceTok) Next() (record.RawRow, error) {
	if s.i >= len(s.rows) {
		return record.RawRow{}, io.EOF
	}
	i := s.i
	s.i++
	if s.onNext != nil {
		s.onNext(i)
	}
	if err, ok := s.faults[i]; ok {
		return record.RawRow{}, err
	}
	return s.rows[i], nil
}

// collectSink records every write. failLines rejects rows on those lines.
type collectSink struct {
	mu        sync.Mutex
	recs      []record.Record
	failLines map[int]bool
}

func (c *collectSink) Write(_ context.Context, rec record.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failLines[rec.Line] {
		return errors.New("disk full")
	}
	c.recs = append(c.recs, rec)
	return nil
}

// batchSink records batches. failBatch makes the n-th batch (0-based) fail.
type batchSink struct {
	collectSink
	batches   [][]record.Record
	failBatch int
}

func (b *batchSink) WriteBatch(_ context.Context, recs []record.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.batches)
	b.batches = append(b.batches, append([]record.Record(nil), recs...))
	if n == b.failBatch {
		return errors.New("copy failed")
	}
	b.recs = append(b.recs, recs...)
	return nil
}

func rows(lines ...[]string) []record.RawRow {
	out := make([]record.RawRow, len(lines))
	for i, f := range lines {
		out[i] = record.RawRow{Line: i + 2, Fields: f}
	}
	return out
}

func idEmail(t *testing.T) *schema.Schema {
	t.Helper()
	return schema.MustRegister([]schema.Column{
		{Name: "id", Type: schema.Integer},
		{Name: "email", Type: schema.String, Constraints: []schema.Constraint{schema.Email()}},
	})
}

func numbered(n int) []record.RawRow {
	out := make([]record.RawRow, n)
	for i := range out {
		out[i] = record.RawRow{Line: i + 2, Fields: []string{strconv.Itoa(i), fmt.Sprintf("u%d@example.com", i)}}
	}
	return out
}

/*
TestRun_AcceptsAndRejects runs the canonical three-row file: one good row,
one with a bad email, one with an empty id.
*/
func TestRun_AcceptsAndRejects(t *testing.T) {
	tok := &sliceTok{rows: rows(
		[]string{"1", "a@x.io"},
		[]string{"2", "nope"},
		[]string{"", "c@x.io"},
	)}
	sink := &collectSink{}

	sum, err := Run(context.Background(), tok, idEmail(t), nil, sink, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Status != Completed || sum.Truncated {
		t.Fatalf("status = %s truncated=%v; want COMPLETED", sum.Status, sum.Truncated)
	}
	if sum.RowsSeen != 3 || sum.RowsAccepted != 1 || sum.RowsRejected != 2 {
		t.Fatalf("counts = %d/%d/%d; want 3/1/2", sum.RowsSeen, sum.RowsAccepted, sum.RowsRejected)
	}
	if len(sink.recs) != 1 || sink.recs[0].Values["id"] != int64(1) {
		t.Fatalf("sink got %+v", sink.recs)
	}
	if len(sum.Rejected) != 2 {
		t.Fatalf("rejected details = %d; want 2", len(sum.Rejected))
	}
	r0, r1 := sum.Rejected[0], sum.Rejected[1]
	if r0.Line != 3 || r0.Errors[0].Column != "email" || r0.Errors[0].Reason != record.ReasonConstraintViolation {
		t.Fatalf("first reject = %+v", r0)
	}
	if r1.Line != 4 || r1.Errors[0].Column != "id" || r1.Errors[0].Reason != record.ReasonMissingRequired {
		t.Fatalf("second reject = %+v", r1)
	}
	if sum.FirstLine != 2 || sum.LastLine != 4 {
		t.Fatalf("lines = %d..%d; want 2..4", sum.FirstLine, sum.LastLine)
	}
	if sum.RunID == "" {
		t.Fatalf("missing run id")
	}
}

/*
TestRun_OrderedUnderParallelism checks that with many workers the sink and
OnOutcome still see rows in source order and counts are conserved.
*/
func TestRun_OrderedUnderParallelism(t *testing.T) {
	in := numbered(500)
	// Poison every 7th row so rejects interleave with accepts.
	for i := 0; i < len(in); i += 7 {
		in[i].Fields[1] = "bad"
	}
	var lines []int
	sink := &collectSink{}
	opt := Options{
		Workers:   8,
		Window:    16,
		OnOutcome: func(o record.Outcome) { lines = append(lines, o.Line) },
	}

	sum, err := Run(context.Background(), &sliceTok{rows: in}, idEmail(t), nil, sink, opt)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.RowsSeen != 500 || sum.RowsAccepted+sum.RowsRejected != sum.RowsSeen {
		t.Fatalf("counts = %+v", sum)
	}
	if sum.RowsRejected != 72 {
		t.Fatalf("rejected = %d; want 72", sum.RowsRejected)
	}
	for i, l := range lines {
		if l != i+2 {
			t.Fatalf("outcome %d on line %d; want %d", i, l, i+2)
		}
	}
	for i := 1; i < len(sink.recs); i++ {
		if sink.recs[i].Line <= sink.recs[i-1].Line {
			t.Fatalf("sink out of order at %d", i)
		}
	}
}

/*
TestRun_Idempotent runs the same input twice and expects identical counts,
reject details and sink contents.
*/
func TestRun_Idempotent(t *testing.T) {
	s := idEmail(t)
	in := rows([]string{"1", "a@x.io"}, []string{"x", "b@x.io"}, []string{"3", "c@x.io", "extra"})

	var sums [2]Summary
	var sinks [2]*collectSink
	for i := range sums {
		sinks[i] = &collectSink{}
		var err error
		sums[i], err = Run(context.Background(), &sliceTok{rows: in}, s, nil, sinks[i], Options{Workers: 4})
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	a, b := sums[0], sums[1]
	if a.RowsAccepted != b.RowsAccepted || a.RowsRejected != b.RowsRejected || len(a.Rejected) != len(b.Rejected) {
		t.Fatalf("runs differ: %+v vs %+v", a, b)
	}
	for i := range a.Rejected {
		if fmt.Sprint(a.Rejected[i].Errors) != fmt.Sprint(b.Rejected[i].Errors) {
			t.Fatalf("reject %d differs", i)
		}
	}
	if len(sinks[0].recs) != len(sinks[1].recs) {
		t.Fatalf("sink contents differ")
	}
	if a.RunID == b.RunID {
		t.Fatalf("run ids should be unique")
	}
}

func TestRun_MaxRowLength(t *testing.T) {
	empty := schema.MustRegister(nil)
	tok := &sliceTok{rows: rows([]string{"a", "b"}, []string{"a", "b", "c"})}

	sum, err := Run(context.Background(), tok, empty, nil, &collectSink{}, Options{MaxRowLength: 2})
	if err != nil {
		t.Fatal(err)
	}
	// The empty schema rejects every non-empty row on its own; the row over
	// the limit must report the limit index, not 0.
	if sum.RowsRejected != 2 {
		t.Fatalf("rejected = %d; want 2", sum.RowsRejected)
	}
	over := sum.Rejected[1].Errors
	if len(over) != 1 || over[0].Reason != record.ReasonExtraColumn || over[0].Index != 2 || over[0].Raw != "c" {
		t.Fatalf("over-length errors = %+v", over)
	}
}

/*
TestRun_Cancel cancels after the producer has pulled a few rows. The run
returns CANCELLED with a nil error, and every counted row was fully folded.
*/
func TestRun_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tok := &sliceTok{rows: numbered(1000)}
	tok.onNext = func(i int) {
		if i == 10 {
			cancel()
		}
	}
	sink := &collectSink{}

	sum, err := Run(ctx, tok, idEmail(t), nil, sink, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Status != Cancelled || !sum.Truncated {
		t.Fatalf("status = %s truncated=%v; want CANCELLED, truncated", sum.Status, sum.Truncated)
	}
	if sum.RowsSeen > 11 {
		t.Fatalf("seen = %d; want at most 11", sum.RowsSeen)
	}
	if int64(len(sink.recs)) != sum.RowsAccepted {
		t.Fatalf("sink has %d records, summary says %d", len(sink.recs), sum.RowsAccepted)
	}
}

func TestRun_StopOnFirstError(t *testing.T) {
	in := numbered(100)
	in[5].Fields[0] = "five"
	sink := &collectSink{}

	sum, err := Run(context.Background(), &sliceTok{rows: in}, idEmail(t), nil, sink, Options{StopOnFirstError: true, Workers: 4})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Status != Halted || !sum.Truncated {
		t.Fatalf("status = %s; want HALTED", sum.Status)
	}
	if sum.RowsSeen != 6 || sum.RowsAccepted != 5 || sum.RowsRejected != 1 {
		t.Fatalf("counts = %d/%d/%d; want 6/5/1", sum.RowsSeen, sum.RowsAccepted, sum.RowsRejected)
	}
	if sum.LastLine != 7 {
		t.Fatalf("last line = %d; want 7", sum.LastLine)
	}
}

func TestRun_FatalTokenizerFault(t *testing.T) {
	tok := &sliceTok{
		rows: numbered(5),
		faults: map[int]error{3: &record.TokenizeError{
			Line: 5, Code: record.MalformedQuoting, Err: errors.New("unterminated quote"),
		}},
	}

	sum, err := Run(context.Background(), tok, idEmail(t), nil, &collectSink{}, Options{})
	var ie *IngestError
	if !errors.As(err, &ie) || ie.Code != StreamCorrupt || ie.Line != 5 {
		t.Fatalf("err = %v; want STREAM_CORRUPT at line 5", err)
	}
	if sum.Status != Aborted || sum.RowsSeen != 3 || sum.Error == "" {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestRun_ResyncFaultBecomesReject(t *testing.T) {
	tok := &sliceTok{
		rows: numbered(4),
		faults: map[int]error{1: &record.TokenizeError{
			Line: 3, Code: record.MalformedQuoting, Resync: true, Err: errors.New(`bare " in non-quoted field`),
		}},
	}

	sum, err := Run(context.Background(), tok, idEmail(t), nil, &collectSink{}, Options{Workers: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.RowsSeen != 4 || sum.RowsRejected != 1 || sum.RejectedByReason[record.ReasonMalformedRow] != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.Rejected[0].Line != 3 {
		t.Fatalf("malformed row on line %d; want 3", sum.Rejected[0].Line)
	}
}

/*
TestRun_ClosedQuoteOnLastRecord runs the real tokenizer over a file whose
last record has a closed multi-line quote followed by a stray character. The
row must become a MALFORMED_ROW reject and the run must complete.
*/
func TestRun_ClosedQuoteOnLastRecord(t *testing.T) {
	in := "id,email\n1,a@b.com\n2,\"x\ny\"z\n"
	tok := csvparse.New(strings.NewReader(in), csvparse.DefaultOptions())
	if _, err := tok.ReadHeader(); err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}

	sum, err := Run(context.Background(), tok, idEmail(t), nil, &collectSink{}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Status != Completed || sum.RowsSeen != 2 || sum.RowsAccepted != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.RejectedByReason[record.ReasonMalformedRow] != 1 || sum.Rejected[0].Line != 3 {
		t.Fatalf("rejects = %+v", sum.Rejected)
	}
}

func TestRun_SinkFailure(t *testing.T) {
	sink := &collectSink{failLines: map[int]bool{3: true}}

	sum, err := Run(context.Background(), &sliceTok{rows: numbered(3)}, idEmail(t), nil, sink, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Status != Completed || sum.RowsAccepted != 2 || sum.RowsRejected != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	e := sum.Rejected[0].Errors[0]
	if e.Reason != record.ReasonSinkFailure || e.Index != -1 || e.Message != "disk full" {
		t.Fatalf("sink reject = %+v", e)
	}
}

/*
TestRun_Batching checks batches are cut at BatchSize and before any reject,
and that a failed batch rejects each of its rows.
*/
func TestRun_Batching(t *testing.T) {
	in := numbered(7)
	in[3].Fields[0] = "x" // reject on line 5 splits the first batch
	sink := &batchSink{failBatch: 2}
	var order []int

	sum, err := Run(context.Background(), &sliceTok{rows: in}, idEmail(t), nil, sink, Options{
		BatchSize: 2,
		Workers:   3,
		OnOutcome: func(o record.Outcome) { order = append(order, o.Line) },
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Batches: [2 3] [4] (flushed before reject on 5) [6 7] (fails) [8].
	var sizes []int
	for _, b := range sink.batches {
		sizes = append(sizes, len(b))
	}
	if fmt.Sprint(sizes) != "[2 1 2 1]" {
		t.Fatalf("batch sizes = %v", sizes)
	}
	if sum.RowsAccepted != 4 || sum.RowsRejected != 3 {
		t.Fatalf("counts = %d/%d; want 4/3", sum.RowsAccepted, sum.RowsRejected)
	}
	if sum.RejectedByReason[record.ReasonSinkFailure] != 2 {
		t.Fatalf("sink failures = %d; want 2", sum.RejectedByReason[record.ReasonSinkFailure])
	}
	if fmt.Sprint(order) != "[2 3 4 5 6 7 8]" {
		t.Fatalf("outcome order = %v", order)
	}
}

/*
TestRun_DetailCap caps stored details but keeps every count and the
per-reason tally exact.
*/
func TestRun_DetailCap(t *testing.T) {
	in := numbered(50)
	for i := range in {
		if i%2 == 0 {
			in[i].Fields[0] = "nan"
		}
	}

	sum, err := Run(context.Background(), &sliceTok{rows: in}, idEmail(t), nil, &collectSink{}, Options{MaxRejectedDetailsStored: 5})
	if err != nil {
		t.Fatal(err)
	}
	if sum.RowsRejected != 25 || len(sum.Rejected) != 5 || sum.DetailsDropped() != 20 {
		t.Fatalf("rejected=%d details=%d dropped=%d", sum.RowsRejected, len(sum.Rejected), sum.DetailsDropped())
	}
	if sum.RejectedByReason[record.ReasonTypeMismatch] != 25 {
		t.Fatalf("by reason = %v", sum.RejectedByReason)
	}
	if sum.Rejected[4].Line != 10 {
		t.Fatalf("fifth detail on line %d; want 10", sum.Rejected[4].Line)
	}

	none, _ := Run(context.Background(), &sliceTok{rows: in}, idEmail(t), nil, &collectSink{}, Options{MaxRejectedDetailsStored: -1})
	if len(none.Rejected) != 0 || none.RowsRejected != 25 {
		t.Fatalf("negative cap kept %d details", len(none.Rejected))
	}
}

func TestRun_TransformRejects(t *testing.T) {
	p := transformer.Pipeline{
		transformer.Func("no_ones", func(r record.Record) (record.Record, error) {
			if r.Values["id"] == int64(1) {
				return record.Record{}, errors.New("id 1 is reserved")
			}
			return r.With("seen", true), nil
		}),
	}
	sink := &collectSink{}

	sum, err := Run(context.Background(), &sliceTok{rows: numbered(3)}, idEmail(t), p, sink, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if sum.RowsRejected != 1 || sum.Rejected[0].Errors[0].Column != "no_ones" {
		t.Fatalf("summary = %+v", sum)
	}
	for _, r := range sink.recs {
		if r.Values["seen"] != true {
			t.Fatalf("record %d missed the transform", r.Line)
		}
	}
}

func TestRun_InvalidArguments(t *testing.T) {
	s := idEmail(t)
	tok := &sliceTok{}
	sink := &collectSink{}
	tests := []struct {
		name string
		tok  Tokenizer
		s    *schema.Schema
		sink Sink
	}{
		{"nil tokenizer", nil, s, sink},
		{"nil schema", tok, nil, sink},
		{"nil sink", tok, s, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sum, err := Run(context.Background(), tc.tok, tc.s, nil, tc.sink, Options{})
			var ie *IngestError
			if !errors.As(err, &ie) || ie.Code != InvalidArgument {
				t.Fatalf("err = %v; want INVALID_ARGUMENT", err)
			}
			if sum.Status != Aborted {
				t.Fatalf("status = %s", sum.Status)
			}
		})
	}
}

func TestRun_EmptyInput(t *testing.T) {
	sum, err := Run(context.Background(), &sliceTok{}, idEmail(t), nil, &collectSink{}, Options{Workers: 3})
	if err != nil || sum.Status != Completed || sum.RowsSeen != 0 || sum.Truncated {
		t.Fatalf("summary = %+v err = %v", sum, err)
	}
}
