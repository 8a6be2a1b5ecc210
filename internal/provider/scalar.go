package provider

import (
	"sync"

	"github.com/cohesix/ninedoor/wire"
)

// Scalar is a read-only node whose value is replaced wholesale (a
// counter snapshot, a version string) rather than appended to. A
// single RWMutex is enough since scalar values are small and
// whole-value, not byte-range addressed.
type Scalar struct {
	mu    sync.RWMutex
	qid   wire.Qid
	name  string
	value []byte
}

// NewScalar returns a scalar node seeded with value.
func NewScalar(qid wire.Qid, name string, value []byte) *Scalar {
	s := &Scalar{qid: qid, name: name}
	s.Set(value)
	return s
}

// Set replaces the scalar's value and bumps the qid version, so a
// client re-walking the node observes that it changed.
func (s *Scalar) Set(value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = append([]byte(nil), value...)
	s.qid.Version++
}

func (s *Scalar) Qid() wire.Qid { s.mu.RLock(); defer s.mu.RUnlock(); return s.qid }
func (s *Scalar) Kind() Kind    { return KindScalar }

func (s *Scalar) Open(mode wire.OpenMode) error {
	if mode.Writable() {
		return errReadOnly("scalar_open")
	}
	return nil
}

func (s *Scalar) Read(cursor uint64, p []byte) (ReadResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cursor >= uint64(len(s.value)) {
		return ReadResult{NextCursor: cursor, EOF: true}, nil
	}
	n := copy(p, s.value[cursor:])
	return ReadResult{N: n, NextCursor: cursor + uint64(n), EOF: cursor+uint64(n) >= uint64(len(s.value))}, nil
}

func (s *Scalar) Write([]byte) (int, error) {
	return 0, errReadOnly("scalar_write")
}

func (s *Scalar) Stat() Stat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stat{Qid: s.qid, Length: uint64(len(s.value)), Name: s.name}
}
