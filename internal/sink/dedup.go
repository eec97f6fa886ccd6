package sink

import (
	"context"
	"fmt"
	"strings"

	"csvingest/internal/record"
)

// Dedup forwards a record to next only the first time its key columns are
// seen; later duplicates fail with a *record.SinkError so the coordinator
// rejects them. Keys are xxh3 fingerprints of the canonical key values.
//
// A record whose forward to next fails is not remembered, so a retry of the
// same key is not reported as a duplicate.
type Dedup struct {
	next Sink
	keys []string
	seen map[uint64]int // fingerprint -> first line
}

// NewDedup wraps next. keys must be non-empty.
func NewDedup(next Sink, keys []string) (*Dedup, error) {
	if next == nil {
		return nil, fmt.Errorf("dedup: nil sink")
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("dedup: at least one key column is required")
	}
	return &Dedup{next: next, keys: keys, seen: make(map[uint64]int)}, nil
}

func (d *Dedup) Write(ctx context.Context, rec record.Record) error {
	fp := rec.Fingerprint(d.keys...)
	if first, dup := d.seen[fp]; dup {
		return &record.SinkError{
			Reason: "duplicate_key",
			Err:    fmt.Errorf("(%s) already written on line %d", strings.Join(d.keys, ", "), first),
		}
	}
	if err := d.next.Write(ctx, rec); err != nil {
		return err
	}
	d.seen[fp] = rec.Line
	return nil
}

// Seen reports how many distinct keys have been written.
func (d *Dedup) Seen() int { return len(d.seen) }
