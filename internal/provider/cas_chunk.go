package provider

import (
	"github.com/cohesix/ninedoor/internal/cas"
	"github.com/cohesix/ninedoor/internal/errcode"
	"github.com/cohesix/ninedoor/wire"
)

// CASChunk is the write path for /updates/<epoch>/chunks/<hash>: bytes
// accumulate until they reach expectedSize, at which point the epoch
// verifies the complete chunk's SHA-256 in one call. A verified chunk
// is then readable back through the same node.
type CASChunk struct {
	qid wire.Qid
	name string
	epoch *cas.Epoch
	hash string
	expectedSize int
	buf []byte
	committed bool
}

// NewCASChunk returns a chunk-write node bound to one declared hash
// within epoch. The hive passes its manifest's cas.chunk_bytes as
// expectedSize for every hash, the last one included, so a final chunk
// shorter than chunk_bytes never reaches expectedSize and is not
// committed.
func NewCASChunk(qid wire.Qid, name string, epoch *cas.Epoch, hash string, expectedSize int) *CASChunk {
	return &CASChunk{qid: qid, name: name, epoch: epoch, hash: hash, expectedSize: expectedSize}
}

func (c *CASChunk) Qid() wire.Qid { return c.qid }
func (c *CASChunk) Kind() Kind { return KindCASChunk }

func (c *CASChunk) Open(mode wire.OpenMode) error {
	if data, err := c.epoch.GetChunk(c.hash); err == nil {
		c.buf = data
		c.committed = true
	}
	return nil
}

func (c *CASChunk) Read(cursor uint64, p []byte) (ReadResult, error) {
	if !c.committed {
		return ReadResult{}, errcode.New("cas_chunk_read", errcode.NotFound, "chunk not yet committed")
	}
	if cursor >= uint64(len(c.buf)) {
		return ReadResult{NextCursor: cursor, EOF: true}, nil
	}
	n := copy(p, c.buf[cursor:])
	return ReadResult{N: n, NextCursor: cursor + uint64(n), EOF: cursor+uint64(n) >= uint64(len(c.buf))}, nil
}

// Write appends to the pending chunk buffer, committing once it
// reaches expectedSize. A hash mismatch at commit quarantines the
// write: the buffer is discarded and the next write starts fresh.
func (c *CASChunk) Write(p []byte) (int, error) {
	if c.committed {
		return 0, errcode.New("cas_chunk_write", errcode.Invalid, "chunk already committed")
	}
	if len(c.buf)+len(p) > c.expectedSize {
		return 0, errcode.New("cas_chunk_write", errcode.TooBig, "write exceeds declared chunk size")
	}
	c.buf = append(c.buf, p...)
	if len(c.buf) < c.expectedSize {
		return len(p), nil
	}
	if err := c.epoch.PutChunk(c.hash, c.buf); err != nil {
		c.buf = nil
		return 0, errcode.Wrap("cas_chunk_write", err)
	}
	c.committed = true
	return len(p), nil
}

func (c *CASChunk) Stat() Stat {
	return Stat{Qid: c.qid, Length: uint64(len(c.buf)), Name: c.name}
}
