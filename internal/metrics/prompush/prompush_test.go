package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"csvingest/internal/metrics"
)

func TestNewBackend(t *testing.T) {
	tests := []struct {
		name    string
		job     string
		url     string
		wantErr bool
		wantJob string
	}{
		{name: "missing gateway", job: "x", url: "", wantErr: true},
		{name: "default job", job: "", url: "http://pg:9091", wantJob: "csvingest"},
		{name: "explicit job", job: "volumes", url: "http://pg:9091", wantJob: "volumes"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, err := NewBackend(tc.job, tc.url)
			if tc.wantErr {
				if err == nil || b != nil {
					t.Fatalf("NewBackend = %v, %v; want nil, error", b, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBackend: %v", err)
			}
			if b.jobName != tc.wantJob {
				t.Fatalf("jobName = %q; want %q", b.jobName, tc.wantJob)
			}
		})
	}
}

/*
TestIncCounter verifies each metric name lands in its own collector with the
right label values, and unknown names are ignored.
*/
func TestIncCounter(t *testing.T) {
	b, err := NewBackend("j", "http://pg:9091")
	if err != nil {
		t.Fatal(err)
	}

	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "ingest", "status": "success"})
	b.IncCounter(metrics.RowsTotal, 5, metrics.Labels{"kind": "seen"})
	b.IncCounter(metrics.RowsTotal, 2, metrics.Labels{"kind": "seen"})
	b.IncCounter(metrics.RejectsTotal, 3, metrics.Labels{"reason": "TYPE_MISMATCH"})
	b.IncCounter(metrics.BatchesTotal, 4, nil)
	b.IncCounter("unknown_total", 100, nil)

	if got := testutil.ToFloat64(b.stepCounter.WithLabelValues("ingest", "success")); got != 1 {
		t.Fatalf("step counter = %v; want 1", got)
	}
	if got := testutil.ToFloat64(b.rowCounter.WithLabelValues("seen")); got != 7 {
		t.Fatalf("row counter = %v; want 7", got)
	}
	if got := testutil.ToFloat64(b.rejectCounter.WithLabelValues("TYPE_MISMATCH")); got != 3 {
		t.Fatalf("reject counter = %v; want 3", got)
	}
	if got := testutil.ToFloat64(b.batchCounter); got != 4 {
		t.Fatalf("batch counter = %v; want 4", got)
	}
}

func TestObserveHistogram(t *testing.T) {
	b, err := NewBackend("j", "http://pg:9091")
	if err != nil {
		t.Fatal(err)
	}
	b.ObserveHistogram(metrics.StepDuration, 0.25, metrics.Labels{"step": "ingest", "status": "success"})
	b.ObserveHistogram("other_seconds", 9, metrics.Labels{"step": "ingest", "status": "success"})

	if n := testutil.CollectAndCount(b.stepDuration); n != 1 {
		t.Fatalf("summary series = %d; want 1", n)
	}
}

/*
TestFlush verifies Flush pushes a non-empty payload to /metrics/job/<job>
on the gateway.
*/
func TestFlush(t *testing.T) {
	var (
		mu   sync.Mutex
		path string
		body string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		path, body = r.URL.Path, string(b)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := NewBackend("volumes", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	b.IncCounter(metrics.RowsTotal, 1, metrics.Labels{"kind": "seen"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if path != "/metrics/job/volumes" {
		t.Fatalf("path = %q", path)
	}
	if body == "" {
		t.Fatalf("empty push body")
	}
}

func TestFlush_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	b, err := NewBackend("j", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Flush(); err == nil {
		t.Fatalf("Flush succeeded against a failing gateway")
	}
}
