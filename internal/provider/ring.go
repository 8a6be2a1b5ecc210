package provider

import (
	"sync"

	"github.com/OneOfOne/xxhash"

	"github.com/cohesix/ninedoor/internal/errcode"
	"github.com/cohesix/ninedoor/wire"
)

// ringRecord is one record-aligned entry: a monotonic sequence number
// (the cursor unit, not a byte offset) and an xxhash checksum the
// reader can use to detect corruption independent of the wire's own
// framing.
type ringRecord struct {
	seq uint64
	checksum uint32
	data []byte
}

// Ring is a power-of-two-capacity, record-aligned circular buffer
// with cursor-resumable reads. Eviction always drops
// whole records, never a partial one, so a resuming cursor either
// lands exactly on a retained record or is advanced to the oldest one
// with Gap set.
type Ring struct {
	mu sync.RWMutex
	qid wire.Qid
	name string
	capBytes uint64
	used uint64
	nextSeq uint64
	records []ringRecord
}

func isPowerOfTwo(n uint64) bool { return n != 0 && n&(n-1) == 0 }

// NewRing returns a ring capped at capBytes, which must be a power of
// two.
func NewRing(qid wire.Qid, name string, capBytes uint64) (*Ring, error) {
	if !isPowerOfTwo(capBytes) {
		return nil, errcode.New("ring_new", errcode.Invalid, "ring capacity must be a power of two")
	}
	return &Ring{qid: qid, name: name, capBytes: capBytes}, nil
}

func (r *Ring) Qid() wire.Qid { r.mu.RLock(); defer r.mu.RUnlock(); return r.qid }
func (r *Ring) Kind() Kind { return KindRing }

func (r *Ring) Open(mode wire.OpenMode) error {
	if mode.Truncates() {
		return errReadOnly("ring_open")
	}
	return nil
}

// Write appends one record, evicting whole records from the oldest
// end until the new one fits within capBytes. Capacity is charged
// against payload bytes only: a ring sized for N same-size records
// retains exactly N, never fewer.
func (r *Ring) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	size := uint64(len(p))
	if size > r.capBytes {
		return 0, errcode.New("ring_write", errcode.TooBig, "record larger than ring capacity")
	}
	for r.used+size > r.capBytes && len(r.records) > 0 {
		r.used -= uint64(len(r.records[0].data))
		r.records = r.records[1:]
	}
	r.nextSeq++
	rec := ringRecord{seq: r.nextSeq, checksum: xxhash.Checksum32(p), data: append([]byte(nil), p...)}
	r.records = append(r.records, rec)
	r.used += size
	r.qid.Version++
	return len(p), nil
}

// Read returns the record at cursor (a sequence number), advancing
// NextCursor to cursor+1. If cursor has fallen behind the oldest
// retained record, it is snapped forward and Gap is reported.
func (r *Ring) Read(cursor uint64, p []byte) (ReadResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.records) == 0 {
		return ReadResult{NextCursor: cursor, EOF: true}, nil
	}
	oldest := r.records[0].seq
	gap := false
	if cursor < oldest {
		cursor = oldest
		gap = true
	}
	idx := cursor - oldest
	if idx >= uint64(len(r.records)) {
		return ReadResult{NextCursor: cursor, EOF: true, Gap: gap}, nil
	}
	rec := r.records[idx]
	if len(p) < len(rec.data) {
		return ReadResult{}, errcode.New("ring_read", errcode.TooBig, "caller buffer smaller than record")
	}
	n := copy(p, rec.data)
	return ReadResult{N: n, NextCursor: cursor + 1, Gap: gap}, nil
}

// Checksum returns the stored checksum for the record at seq, for
// callers that want to verify integrity independently of Read.
func (r *Ring) Checksum(seq uint64) (uint32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.records) == 0 {
		return 0, false
	}
	idx := seq - r.records[0].seq
	if seq < r.records[0].seq || idx >= uint64(len(r.records)) {
		return 0, false
	}
	return r.records[idx].checksum, true
}

func (r *Ring) Stat() Stat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stat{Qid: r.qid, Length: r.used, Name: r.name}
}
