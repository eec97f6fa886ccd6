// Package sink provides the in-process record sinks: Discard, Collect, a
// CSV writer, and a Dedup wrapper that rejects repeated keys.
//
// Every sink here satisfies the ingest coordinator's Sink contract; CSV and
// Collect also take batches.
package sink

import (
	"context"
	"sync"

	"csvingest/internal/record"
)

// Sink consumes accepted records.
type Sink interface {
	Write(ctx context.Context, rec record.Record) error
}

// BatchSink also takes several records per call.
type BatchSink interface {
	Sink
	WriteBatch(ctx context.Context, recs []record.Record) error
}

// Discard drops every record. It is the sink behind validate-only runs.
type Discard struct{}

func (Discard) Write(context.Context, record.Record) error { return nil }

// Collect keeps every record in memory.
type Collect struct {
	mu   sync.Mutex
	recs []record.Record
}

func (c *Collect) Write(_ context.Context, rec record.Record) error {
	c.mu.Lock()
	c.recs = append(c.recs, rec)
	c.mu.Unlock()
	return nil
}

func (c *Collect) WriteBatch(_ context.Context, recs []record.Record) error {
	c.mu.Lock()
	c.recs = append(c.recs, recs...)
	c.mu.Unlock()
	return nil
}

// Records returns a copy of what has been written so far.
func (c *Collect) Records() []record.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]record.Record(nil), c.recs...)
}
