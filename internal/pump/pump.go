// Package pump implements the cooperative, single-threaded event loop:
// one tick drains transport bytes, dispatches complete frames, runs
// provider housekeeping, and emits bounded observability snapshots —
// never blocking, never starving a provider category for more than
// one tick.
//
// OS-thread pinning happens before the loop starts, the loop itself
// is a ctx.Done-gated for/select, and a single stage's error is logged
// rather than propagated so one misbehaving stage can't panic the
// whole pump.
package pump

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sys/unix"

	"github.com/cohesix/ninedoor/internal/constants"
	"github.com/cohesix/ninedoor/internal/logging"
)

// Stage is one of the four ordered steps a tick performs.
type Stage func() error

// Config wires a Pump's four stages and optional CPU pinning.
type Config struct {
	Logger *logging.Logger
	CPUAffinity []int
	Drain Stage // pull transport bytes into the codec
	Dispatch Stage // dispatch complete frames up to tags_per_session
	ProviderWork Stage // ring retention, CAS verification, audit emission
	Emit Stage // bounded observability snapshot emission
}

// Pump drives the four-stage tick loop.
type Pump struct {
	cfg Config
	tick uint64
}

// New returns a Pump from cfg. Any nil stage is treated as a no-op,
// so callers may omit stages they don't need (e.g. a host sidecar
// with no provider housekeeping).
func New(cfg Config) *Pump {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	noop := func() error { return nil }
	if cfg.Drain == nil {
		cfg.Drain = noop
	}
	if cfg.Dispatch == nil {
		cfg.Dispatch = noop
	}
	if cfg.ProviderWork == nil {
		cfg.ProviderWork = noop
	}
	if cfg.Emit == nil {
		cfg.Emit = noop
	}
	return &Pump{cfg: cfg}
}

// Tick returns the number of ticks this pump has executed.
func (p *Pump) Tick() uint64 { return p.tick }

// Step runs one tick's four stages in order, logging (but not
// propagating) a stage's error so a single misbehaving provider never
// stalls the other three stages.
func (p *Pump) Step() {
	stages := []struct {
		name string
		fn   Stage
	}{
		{"drain", p.cfg.Drain},
		{"dispatch", p.cfg.Dispatch},
		{"provider_work", p.cfg.ProviderWork},
		{"emit", p.cfg.Emit},
	}
	for _, s := range stages {
		if err := s.fn(); err != nil {
			p.cfg.Logger.Warn("pump stage failed", "stage", s.name, "tick", p.tick, "err", err)
		}
	}
	p.tick++
}

// Run pins the calling goroutine to an OS thread (and, if configured,
// a specific CPU) and executes Step once per constants.Tick until ctx
// is cancelled.
func (p *Pump) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if len(p.cfg.CPUAffinity) > 0 {
		var mask unix.CPUSet
		mask.Set(p.cfg.CPUAffinity[0])
		if err := unix.SchedSetaffinity(0, &mask); err != nil {
			p.cfg.Logger.Warn("failed to set pump CPU affinity", "cpu", p.cfg.CPUAffinity[0], "err", err)
		}
	}

	ticker := time.NewTicker(constants.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Step()
		}
	}
}
