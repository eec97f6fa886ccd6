package datadog

import (
	"net"
	"strings"
	"testing"
	"time"

	"csvingest/internal/metrics"
)

func TestNewBackend_RequiresAddr(t *testing.T) {
	if _, err := NewBackend(Config{}); err == nil {
		t.Fatalf("NewBackend with empty Addr succeeded")
	}
}

func TestTags_Sorted(t *testing.T) {
	got := tags(metrics.Labels{"kind": "seen", "job": "volumes"})
	if strings.Join(got, ",") != "job:volumes,kind:seen" {
		t.Fatalf("tags = %v", got)
	}
	if tags(nil) != nil {
		t.Fatalf("tags(nil) should be nil")
	}
}

/*
TestBackend_SendsToAgent runs a UDP listener in place of the agent and checks
that a counter arrives with its namespace and tags.
*/
func TestBackend_SendsToAgent(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp listen: %v", err)
	}
	defer pc.Close()

	b, err := NewBackend(Config{Addr: pc.LocalAddr().String(), Namespace: "csvingest."})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.IncCounter(metrics.RowsTotal, 3, metrics.Labels{"kind": "seen"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	buf := make([]byte, 4096)
	_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := string(buf[:n])
	if !strings.Contains(got, "csvingest."+metrics.RowsTotal+":3|c") || !strings.Contains(got, "kind:seen") {
		t.Fatalf("packet = %q", got)
	}
}
