package ingest

import (
	"time"

	"csvingest/internal/record"
)

// Status is the terminal state of a run.
type Status string

const (
	Running   Status = "RUNNING"
	Completed Status = "COMPLETED"
	Halted    Status = "HALTED"
	Aborted   Status = "ABORTED"
	Cancelled Status = "CANCELLED"
)

// Summary is the result of one run. Counts are exact; Rejected holds at most
// the configured number of details and is not exhaustive.
type Summary struct {
	RunID  string `json:"run_id"`
	Job    string `json:"job,omitempty"`
	Status Status `json:"status"`

	RowsSeen     int64 `json:"rows_seen"`
	RowsAccepted int64 `json:"rows_accepted"`
	RowsRejected int64 `json:"rows_rejected"`

	// Rejected lists the first rejected outcomes in source order.
	Rejected []record.Outcome `json:"rejected"`
	// RejectedByReason counts rejected rows per reason code. A row with
	// several errors of one reason counts once for it.
	RejectedByReason map[record.ReasonCode]int64 `json:"rejected_by_reason"`

	FirstLine int  `json:"first_line"`
	LastLine  int  `json:"last_line"`
	Truncated bool `json:"truncated"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	// Error is the text of the hard failure returned by Run, if any.
	Error string `json:"error,omitempty"`
}

// Final reports whether the summary is in a terminal state.
func (s Summary) Final() bool { return s.Status != Running && s.Status != "" }

// DetailsDropped is the number of rejected rows whose details were not kept.
func (s Summary) DetailsDropped() int64 { return s.RowsRejected - int64(len(s.Rejected)) }

// tally is the single-writer accumulator behind a Summary.
type tally struct {
	sum      Summary
	maxStore int
}

func newTally(runID, job string, maxStore int, started time.Time) *tally {
	return &tally{
		sum: Summary{
			RunID:            runID,
			Job:              job,
			Status:           Running,
			RejectedByReason: make(map[record.ReasonCode]int64),
			StartedAt:        started,
		},
		maxStore: maxStore,
	}
}

func (t *tally) add(o record.Outcome) {
	s := &t.sum
	if s.RowsSeen == 0 {
		s.FirstLine = o.Line
	}
	s.LastLine = o.Line
	s.RowsSeen++
	if o.Accepted {
		s.RowsAccepted++
		return
	}
	s.RowsRejected++
	for _, r := range o.Reasons() {
		s.RejectedByReason[r]++
	}
	if len(s.Rejected) < t.maxStore {
		s.Rejected = append(s.Rejected, o)
	}
}

func (t *tally) finish(st Status, d time.Duration) Summary {
	t.sum.Status = st
	t.sum.Truncated = st != Completed
	t.sum.Duration = d
	return t.sum
}
