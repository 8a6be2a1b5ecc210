// Package proc implements NineDoor's /proc observability surface:
// atomic hot-path counters rendered as a deterministic snapshot, with
// an optional Prometheus mirror for operators who want to scrape
// rather than walk the namespace.
//
// Counters and latency-bucket layout follow a logarithmic latency
// histogram over plain atomic-counter fields, covering 9P operations
// and provider categories.
package proc

import (
	"sync/atomic"
)

// LatencyBuckets are cumulative-count histogram boundaries in
// nanoseconds, spanning 1us .. 10s.
var LatencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Metrics tracks NineDoor's operational counters.
type Metrics struct {
	ReadOps atomic.Uint64
	WriteOps atomic.Uint64
	WalkOps atomic.Uint64
	OpenOps atomic.Uint64
	ClunkOps atomic.Uint64

	ReadBytes atomic.Uint64
	WriteBytes atomic.Uint64

	ReadErrors atomic.Uint64
	WriteErrors atomic.Uint64

	RateLimitedOps atomic.Uint64
	PermissionOps atomic.Uint64

	TotalLatencyNs atomic.Uint64
	OpCount atomic.Uint64

	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	ActiveSessions atomic.Uint64
	ActiveFids atomic.Uint64

	StartTimeTick atomic.Uint64
}

// NewMetrics returns a zeroed Metrics, stamped with the pump tick it
// was created at (ticks, not wall-clock, per the hive's no-wall-clock
// design).
func NewMetrics(startTick uint64) *Metrics {
	m := &Metrics{}
	m.StartTimeTick.Store(startTick)
	return m
}

// RecordRead accounts one read operation.
func (m *Metrics) RecordRead(bytes uint64, latencyNs uint64, success bool) {
	m.ReadOps.Add(1)
	if success {
		m.ReadBytes.Add(bytes)
	} else {
		m.ReadErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordWrite accounts one write operation.
func (m *Metrics) RecordWrite(bytes uint64, latencyNs uint64, success bool) {
	m.WriteOps.Add(1)
	if success {
		m.WriteBytes.Add(bytes)
	} else {
		m.WriteErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordDenied accounts a request rejected by policy or budget.
func (m *Metrics) RecordDenied(rateLimited bool) {
	if rateLimited {
		m.RateLimitedOps.Add(1)
	} else {
		m.PermissionOps.Add(1)
	}
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)
	for i, bound := range LatencyBuckets {
		if latencyNs <= bound {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// AverageLatencyNs returns the mean recorded latency, or 0 if no
// operation has been recorded yet.
func (m *Metrics) AverageLatencyNs() uint64 {
	count := m.OpCount.Load()
	if count == 0 {
		return 0
	}
	return m.TotalLatencyNs.Load() / count
}
