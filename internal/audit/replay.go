package audit

import (
	"hash/fnv"
	"sync"

	"github.com/cohesix/ninedoor/internal/errcode"
)

// ReplayState is a replay run's lifecycle stage.
type ReplayState string

const (
	ReplayIdle ReplayState = "idle"
	ReplayRunning ReplayState = "running"
	ReplayDone ReplayState = "done"
)

// ReplayResult is the outcome of hashing a retained record sequence.
type ReplayResult struct {
	Hash uint64
	Count int
}

// HashSequence computes a deterministic FNV-1a hash over records in
// order, each separated by a NUL byte so a record boundary can never
// be mistaken for content.
func HashSequence(records [][]byte) ReplayResult {
	h := fnv.New64a()
	for _, r := range records {
		h.Write(r)
		h.Write([]byte{0})
	}
	return ReplayResult{Hash: h.Sum64(), Count: len(records)}
}

// ReplaySession tracks one replay run's state machine, driven by
// /replay/ctl and observed via /replay/status.
type ReplaySession struct {
	mu sync.Mutex
	state ReplayState
	result ReplayResult
}

// NewReplaySession returns an idle replay session.
func NewReplaySession() *ReplaySession {
	return &ReplaySession{state: ReplayIdle}
}

// Start runs a replay over records synchronously (the event pump is
// cooperative and single-tick, so there is no background worker to
// hand this to) and leaves the session Done with the computed hash.
// Starting a session that is already Running is Busy.
func (s *ReplaySession) Start(records [][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == ReplayRunning {
		return errcode.New("replay_start", errcode.Busy, "replay already running")
	}
	s.state = ReplayRunning
	s.result = HashSequence(records)
	s.state = ReplayDone
	return nil
}

// Status returns the session's current state and last result.
func (s *ReplaySession) Status() (ReplayState, ReplayResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.result
}
