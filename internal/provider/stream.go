package provider

import (
	"sync"

	"github.com/cohesix/ninedoor/wire"
)

// Stream is an append-only byte log bounded to maxBytes: once full,
// the oldest bytes are dropped to make room, and the stream tracks
// how many bytes have been dropped so cursor math stays consistent
// (a cursor before the drop point simply clamps forward, not a gap —
// gap semantics are reserved for record-aligned Ring).
type Stream struct {
	mu       sync.RWMutex
	qid      wire.Qid
	name     string
	maxBytes uint64
	dropped  uint64
	data     []byte
}

// NewStream returns an empty append-only stream capped at maxBytes.
func NewStream(qid wire.Qid, name string, maxBytes uint64) *Stream {
	return &Stream{qid: qid, name: name, maxBytes: maxBytes}
}

func (s *Stream) Qid() wire.Qid { s.mu.RLock(); defer s.mu.RUnlock(); return s.qid }
func (s *Stream) Kind() Kind    { return KindStream }

func (s *Stream) Open(mode wire.OpenMode) error {
	if mode.Truncates() {
		return errReadOnly("stream_open")
	}
	return nil
}

// Write appends p, trimming from the front if the stream would exceed
// maxBytes.
func (s *Stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data, p...)
	s.qid.Version++
	if over := uint64(len(s.data)) - s.maxBytes; s.maxBytes > 0 && over > 0 && over < uint64(len(s.data)) {
		s.data = append([]byte(nil), s.data[over:]...)
		s.dropped += over
	}
	return len(p), nil
}

// Read returns bytes from cursor (an absolute offset into the full,
// ever-growing stream). A cursor below the current drop point is
// clamped to the oldest retained byte.
func (s *Stream) Read(cursor uint64, p []byte) (ReadResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cursor < s.dropped {
		cursor = s.dropped
	}
	rel := cursor - s.dropped
	if rel >= uint64(len(s.data)) {
		return ReadResult{NextCursor: cursor, EOF: true}, nil
	}
	n := copy(p, s.data[rel:])
	return ReadResult{N: n, NextCursor: cursor + uint64(n)}, nil
}

func (s *Stream) Stat() Stat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stat{Qid: s.qid, Length: s.dropped + uint64(len(s.data)), Name: s.name}
}
