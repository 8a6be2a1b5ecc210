package provider

import (
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/cohesix/ninedoor/internal/errcode"
	"github.com/cohesix/ninedoor/wire"
)

// CBORSummary is a read-only node whose bytes are a CBOR encoding of
// a snapshot value, regenerated on demand by a Source function. Used
// for /proc's deterministic structured snapshot and for worker
// telemetry summaries. Deterministic key order comes from cbor/v2
// encoding exported struct fields in declaration order, not map
// iteration.
type CBORSummary struct {
	mu sync.RWMutex
	qid wire.Qid
	name string
	source func() (any, error)
	cache []byte
}

// NewCBORSummary returns a summary node whose Source is invoked fresh
// on every read-only Open and every explicit Refresh; reads serve the
// bytes of the latest rendering.
func NewCBORSummary(qid wire.Qid, name string, source func() (any, error)) *CBORSummary {
	return &CBORSummary{qid: qid, name: name, source: source}
}

// Refresh re-renders the summary's CBOR bytes and bumps the qid
// version so a concurrent reader's stat reflects the new length.
func (c *CBORSummary) Refresh() error {
	v, err := c.source()
	if err != nil {
		return errcode.Wrap("cbor_summary_refresh", err)
	}
	enc, err := cbor.Marshal(v)
	if err != nil {
		return errcode.Wrap("cbor_summary_refresh", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = enc
	c.qid.Version++
	return nil
}

func (c *CBORSummary) Qid() wire.Qid { c.mu.RLock(); defer c.mu.RUnlock(); return c.qid }
func (c *CBORSummary) Kind() Kind { return KindCBORSummary }

func (c *CBORSummary) Open(mode wire.OpenMode) error {
	if mode.Writable() {
		return errReadOnly("cbor_summary_open")
	}
	return c.Refresh()
}

func (c *CBORSummary) Read(cursor uint64, p []byte) (ReadResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cursor >= uint64(len(c.cache)) {
		return ReadResult{NextCursor: cursor, EOF: true}, nil
	}
	n := copy(p, c.cache[cursor:])
	return ReadResult{N: n, NextCursor: cursor + uint64(n), EOF: cursor+uint64(n) >= uint64(len(c.cache))}, nil
}

func (c *CBORSummary) Write([]byte) (int, error) {
	return 0, errReadOnly("cbor_summary_write")
}

func (c *CBORSummary) Stat() Stat {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stat{Qid: c.qid, Length: uint64(len(c.cache)), Name: c.name}
}
