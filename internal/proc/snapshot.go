package proc

// Snapshot is a deterministic, point-in-time rendering of Metrics: a
// plain struct of already-computed values, not a live reference to
// the atomics, so two snapshots taken a tick apart never race each
// other.
type Snapshot struct {
	ReadOps  uint64
	WriteOps uint64
	WalkOps  uint64
	OpenOps  uint64
	ClunkOps uint64

	ReadBytes  uint64
	WriteBytes uint64

	ReadErrors  uint64
	WriteErrors uint64

	RateLimitedOps uint64
	PermissionOps  uint64

	TotalOps     uint64
	AvgLatencyNs uint64

	LatencyHistogram [numLatencyBuckets]uint64

	ActiveSessions uint64
	ActiveFids     uint64

	UptimeTicks uint64
}

// Snapshot renders m's current counters. currentTick is the pump's
// current tick count, used to derive uptime without a wall clock.
func (m *Metrics) Snapshot(currentTick uint64) Snapshot {
	s := Snapshot{
		ReadOps:        m.ReadOps.Load(),
		WriteOps:       m.WriteOps.Load(),
		WalkOps:        m.WalkOps.Load(),
		OpenOps:        m.OpenOps.Load(),
		ClunkOps:       m.ClunkOps.Load(),
		ReadBytes:      m.ReadBytes.Load(),
		WriteBytes:     m.WriteBytes.Load(),
		ReadErrors:     m.ReadErrors.Load(),
		WriteErrors:    m.WriteErrors.Load(),
		RateLimitedOps: m.RateLimitedOps.Load(),
		PermissionOps:  m.PermissionOps.Load(),
		ActiveSessions: m.ActiveSessions.Load(),
		ActiveFids:     m.ActiveFids.Load(),
		AvgLatencyNs:   m.AverageLatencyNs(),
	}
	s.TotalOps = s.ReadOps + s.WriteOps + s.WalkOps + s.OpenOps + s.ClunkOps
	for i := range m.LatencyBuckets {
		s.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}
	start := m.StartTimeTick.Load()
	if currentTick > start {
		s.UptimeTicks = currentTick - start
	}
	return s
}
