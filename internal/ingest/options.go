package ingest

import (
	"log/slog"

	"csvingest/internal/record"
)

// DefaultMaxRejectedDetails is the reject-detail cap used when
// Options.MaxRejectedDetailsStored is zero.
const DefaultMaxRejectedDetails = 100

// Options tunes a run. The zero value is a valid sequential configuration.
type Options struct {
	// MaxRejectedDetailsStored caps how many rejected outcomes the Summary
	// retains. Zero means DefaultMaxRejectedDetails; negative keeps none.
	// Counts are exact regardless.
	MaxRejectedDetailsStored int

	// StopOnFirstError halts the run at the first rejected row.
	StopOnFirstError bool

	// MaxRowLength rejects rows with more raw fields than this with
	// EXTRA_COLUMN before any validation. Zero disables the check.
	MaxRowLength int

	// Workers is the number of validate+transform goroutines (default 1).
	Workers int

	// Window bounds rows in flight between the tokenizer and the fold
	// (default 4*Workers, never below Workers).
	Window int

	// BatchSize groups accepted records for sinks implementing BatchSink.
	// Values <= 1 write one record at a time.
	BatchSize int

	// Job labels logs, metrics and the Summary.
	Job string

	// Logger receives run-level logs. Nil means slog.Default().
	Logger *slog.Logger

	// OnOutcome, when set, is called for every folded outcome in source
	// order from the coordinator goroutine.
	OnOutcome func(record.Outcome)
}

func (o Options) withDefaults() Options {
	if o.MaxRejectedDetailsStored == 0 {
		o.MaxRejectedDetailsStored = DefaultMaxRejectedDetails
	}
	if o.MaxRejectedDetailsStored < 0 {
		o.MaxRejectedDetailsStored = 0
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Window <= 0 {
		o.Window = 4 * o.Workers
	}
	if o.Window < o.Workers {
		o.Window = o.Workers
	}
	if o.BatchSize < 1 {
		o.BatchSize = 1
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
