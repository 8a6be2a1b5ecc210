package proc

import "sync"

// Watcher rate-limits /proc/ingest/watch emissions to at most once
// per minIntervalTicks pump ticks, so a busy watcher never
// starves other provider categories of a pump slice.
type Watcher struct {
	mu sync.Mutex
	minIntervalTicks uint64
	lastEmitTick uint64
	emitted bool
}

// NewWatcher returns a watcher gated to minIntervalTicks.
func NewWatcher(minIntervalTicks uint64) *Watcher {
	return &Watcher{minIntervalTicks: minIntervalTicks}
}

// ShouldEmit reports whether enough ticks have passed since the last
// emission, and if so records currentTick as the new baseline.
func (w *Watcher) ShouldEmit(currentTick uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.emitted || currentTick-w.lastEmitTick >= w.minIntervalTicks {
		w.lastEmitTick = currentTick
		w.emitted = true
		return true
	}
	return false
}
