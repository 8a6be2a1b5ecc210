package proc

import "testing"

func TestSnapshotComputesTotalsAndLatency(t *testing.T) {
	m := NewMetrics(0)
	m.RecordRead(1024, 1_000_000, true)
	m.RecordWrite(2048, 2_000_000, true)
	m.RecordRead(512, 500_000, false)

	snap := m.Snapshot(10)
	if snap.ReadOps != 2 {
		t.Fatalf("expected 2 read ops, got %d", snap.ReadOps)
	}
	if snap.ReadBytes != 1024 {
		t.Fatalf("expected 1024 read bytes (errors excluded), got %d", snap.ReadBytes)
	}
	if snap.ReadErrors != 1 {
		t.Fatalf("expected 1 read error, got %d", snap.ReadErrors)
	}
	if snap.TotalOps != 3 {
		t.Fatalf("expected 3 total ops, got %d", snap.TotalOps)
	}
	if snap.AvgLatencyNs == 0 {
		t.Fatalf("expected non-zero average latency")
	}
	if snap.UptimeTicks != 10 {
		t.Fatalf("expected uptime of 10 ticks, got %d", snap.UptimeTicks)
	}
}

func TestWatcherRateLimitsEmission(t *testing.T) {
	w := NewWatcher(5)
	if !w.ShouldEmit(0) {
		t.Fatalf("expected first emission to be allowed")
	}
	if w.ShouldEmit(2) {
		t.Fatalf("expected emission within interval to be suppressed")
	}
	if !w.ShouldEmit(5) {
		t.Fatalf("expected emission allowed once interval elapses")
	}
}
