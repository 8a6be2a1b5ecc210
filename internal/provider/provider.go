// Package provider implements the uniform node contract: every
// namespace leaf — scalar, stream, ring, CBOR summary, control sink,
// or CAS chunk — answers the same {qid, open, read, write, stat}
// shape through the Node interface and reports its concrete Kind,
// which policy and /proc accounting use to tell leaves apart.
package provider

import (
	"github.com/cohesix/ninedoor/internal/errcode"
	"github.com/cohesix/ninedoor/wire"
)

// Kind tags a node's concrete behavior for /proc accounting and for
// policy's NodeAttrs derivation.
type Kind uint8

const (
	KindScalar Kind = iota
	KindStream
	KindRing
	KindCBORSummary
	KindControlSink
	KindCASChunk
)

// Stat is the provider-facing metadata a Tstat reply is built from.
type Stat struct {
	Qid wire.Qid
	Length uint64
	Name string
}

// ReadResult carries a read's outcome, including ring/stream
// cursor-resume semantics: a resumed cursor that landed behind the
// oldest retained record reports Gap so the caller can surface
// RESUMED_WITH_GAP rather than silently skip data.
type ReadResult struct {
	N int
	NextCursor uint64
	Gap bool
	EOF bool
}

// Node is the contract every namespace leaf implements.
type Node interface {
	Qid() wire.Qid
	Kind() Kind
	Open(mode wire.OpenMode) error
	Read(cursor uint64, p []byte) (ReadResult, error)
	Write(p []byte) (n int, err error)
	Stat() Stat
}

// errReadOnly is returned by Write on nodes that never accept writes.
func errReadOnly(op string) error {
	return errcode.New(op, errcode.Permission, "node is read-only")
}

// errWriteOnly is returned by Read on nodes that never accept reads.
func errWriteOnly(op string) error {
	return errcode.New(op, errcode.Permission, "node is write-only")
}
