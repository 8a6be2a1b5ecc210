package proc

import "github.com/prometheus/client_golang/prometheus"

// RegisterPrometheus wires m's counters into reg as GaugeFuncs, so an
// operator who wants to scrape rather than walk /proc can do so
// without the hive maintaining a second, independently-updated copy
// of the same numbers (each GaugeFunc reads straight through to the
// atomic counter at scrape time).
func RegisterPrometheus(reg prometheus.Registerer, m *Metrics, currentTick func() uint64) error {
	gauge := func(name, help string, fn func() float64) error {
		g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "ninedoor",
			Name:      name,
			Help:      help,
		}, fn)
		return reg.Register(g)
	}

	metrics := []struct {
		name string
		help string
		fn   func() float64
	}{
		{"read_ops_total", "Total read operations observed.", func() float64 { return float64(m.ReadOps.Load()) }},
		{"write_ops_total", "Total write operations observed.", func() float64 { return float64(m.WriteOps.Load()) }},
		{"read_bytes_total", "Total bytes read.", func() float64 { return float64(m.ReadBytes.Load()) }},
		{"write_bytes_total", "Total bytes written.", func() float64 { return float64(m.WriteBytes.Load()) }},
		{"rate_limited_total", "Operations rejected as RateLimited.", func() float64 { return float64(m.RateLimitedOps.Load()) }},
		{"permission_denied_total", "Operations rejected as Permission.", func() float64 { return float64(m.PermissionOps.Load()) }},
		{"active_sessions", "Currently attached sessions.", func() float64 { return float64(m.ActiveSessions.Load()) }},
		{"active_fids", "Currently allocated fids across all sessions.", func() float64 { return float64(m.ActiveFids.Load()) }},
		{"avg_latency_ns", "Mean recorded operation latency in nanoseconds.", func() float64 { return float64(m.AverageLatencyNs()) }},
		{"uptime_ticks", "Pump ticks elapsed since startup.", func() float64 { return float64(currentTick() - m.StartTimeTick.Load()) }},
	}
	for _, mt := range metrics {
		if err := gauge(mt.name, mt.help, mt.fn); err != nil {
			return err
		}
	}
	return nil
}
