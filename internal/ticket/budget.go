package ticket

import (
	"sync/atomic"

	"github.com/cohesix/ninedoor/internal/errcode"
)

// BudgetState is the live, decrementing counterpart to an immutable
// Budget: it decrements monotonically using atomic counters so the
// hot path never allocates or takes a lock.
//
// TTL is tracked in event-pump ticks, not wall-clock time;
// TicksPerSecond converts a ticket's TTLSeconds into a tick budget
// once, at session attach.
type BudgetState struct {
	ops atomic.Uint64
	bytes atomic.Uint64
	resumes atomic.Uint64
	advances atomic.Uint64
	ttlTicksLeft atomic.Uint64
}

// NewBudgetState derives a live budget from a ticket's immutable
// Budget/CursorLimits, converting TTLSeconds to ticks at the given rate.
func NewBudgetState(b Budget, cl CursorLimits, ticksPerSecond uint64) *BudgetState {
	s := &BudgetState{}
	s.ops.Store(b.Ops)
	s.bytes.Store(b.Bytes)
	s.resumes.Store(cl.Resumes)
	s.advances.Store(cl.Advances)
	s.ttlTicksLeft.Store(uint64(b.TTLSeconds) * ticksPerSecond)
	return s
}

// ConsumeOp decrements the op and byte counters for one accepted
// operation. Returns RateLimited without mutating further state once
// either counter would go negative.
func (s *BudgetState) ConsumeOp(nbytes uint64) error {
	if !decrementOrFail(&s.ops, 1) {
		return errcode.New("quota", errcode.RateLimited, "ops budget exhausted")
	}
	if nbytes > 0 && !decrementOrFail(&s.bytes, nbytes) {
		return errcode.New("quota", errcode.RateLimited, "byte budget exhausted")
	}
	return nil
}

// ConsumeCursorResume accounts a RESUMED_WITH_GAP-triggering resume.
func (s *BudgetState) ConsumeCursorResume() error {
	if !decrementOrFail(&s.resumes, 1) {
		return errcode.New("quota", errcode.RateLimited, "cursor resume budget exhausted")
	}
	return nil
}

// ConsumeCursorAdvance accounts a normal cursor read advance.
func (s *BudgetState) ConsumeCursorAdvance() error {
	if !decrementOrFail(&s.advances, 1) {
		return errcode.New("quota", errcode.RateLimited, "cursor advance budget exhausted")
	}
	return nil
}

// Tick decrements the TTL by one pump tick, returning true once it
// reaches zero (the session must be closed at the next tick).
func (s *BudgetState) Tick() bool {
	for {
		cur := s.ttlTicksLeft.Load()
		if cur == 0 {
			return true
		}
		if s.ttlTicksLeft.CompareAndSwap(cur, cur-1) {
			return cur-1 == 0
		}
	}
}

// decrementOrFail atomically subtracts n from c, failing (without
// mutating) if that would underflow.
func decrementOrFail(c *atomic.Uint64, n uint64) bool {
	for {
		cur := c.Load()
		if cur < n {
			return false
		}
		if c.CompareAndSwap(cur, cur-n) {
			return true
		}
	}
}
