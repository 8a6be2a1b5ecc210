// Package audit implements the bounded audit ledger and deterministic
// replay: every policy-relevant event is appended as one JSONL
// record, evicted whole-record (never a split line) once the
// ledger's byte cap is exceeded, and a replay recomputes a stable
// hash over the retained sequence.
//
// The eviction shape mirrors a record-aligned ring buffer: whole
// records drop from the oldest end, never a partial one, applied here
// to JSONL audit lines instead of binary telemetry records.
package audit

import (
	"sync"

	"github.com/cohesix/ninedoor/internal/errcode"
)

// Ledger is a bounded, append-only sequence of JSONL records.
type Ledger struct {
	mu sync.Mutex
	capBytes uint64
	used uint64
	records [][]byte
	dropped uint64
	nextSeq uint64
}

// NewLedger returns an empty ledger capped at capBytes.
func NewLedger(capBytes uint64) *Ledger {
	return &Ledger{capBytes: capBytes}
}

// Append adds one JSONL record, evicting the oldest whole records
// until it fits, and returns the record's sequence number.
func (l *Ledger) Append(record []byte) (uint64, error) {
	size := uint64(len(record)) + 1
	if l.capBytes > 0 && size > l.capBytes {
		return 0, errcode.New("audit_append", errcode.TooBig, "record larger than ledger capacity")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.capBytes > 0 && l.used+size > l.capBytes && len(l.records) > 0 {
		l.used -= uint64(len(l.records[0])) + 1
		l.records = l.records[1:]
		l.dropped++
	}
	l.records = append(l.records, append([]byte(nil), record...))
	l.used += size
	seq := l.nextSeq
	l.nextSeq++
	return seq, nil
}

// Records returns a snapshot of the currently retained records,
// oldest first.
func (l *Ledger) Records() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, len(l.records))
	copy(out, l.records)
	return out
}

// Dropped reports how many records have been evicted to stay under
// the byte cap, for /proc accounting.
func (l *Ledger) Dropped() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Len reports the number of retained records.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
