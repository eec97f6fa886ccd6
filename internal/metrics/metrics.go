// Package metrics records ingest counters and timings through a pluggable
// global Backend. The default backend drops everything, so callers never
// need to check whether metrics are configured.
//
// Concrete backends live in subpackages (prompush, datadog) so the rest of
// the module depends only on this package.
package metrics

import (
	"sync"
	"time"
)

// Metric names shared by every backend.
const (
	StepTotal    = "ingest_step_total"
	StepDuration = "ingest_step_duration_seconds"
	RowsTotal    = "ingest_rows_total"
	RejectsTotal = "ingest_rejects_total"
	BatchesTotal = "ingest_batches_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend receives metric observations.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration-style value.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered metrics, if the backend buffers.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b as the global backend. Nil is ignored.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

// Reset restores the no-op backend.
func Reset() {
	mu.Lock()
	backend = nopBackend{}
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordStep counts one execution of step and observes its duration,
// labelled success or failure by err.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "status": status}

	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRow adds delta rows of kind (seen, accepted, rejected) for job.
// Non-positive deltas are ignored.
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{"job": job, "kind": kind})
}

// RecordReject adds delta rejected rows carrying reason.
func RecordReject(job, reason string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RejectsTotal, float64(delta), Labels{"job": job, "reason": reason})
}

// RecordBatches counts sink batches written for job.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(BatchesTotal, float64(delta), Labels{"job": job})
}
