package hive

import (
	"github.com/cohesix/ninedoor/internal/constants"
	"github.com/cohesix/ninedoor/internal/session"
	"github.com/cohesix/ninedoor/wire"
)

// Conn is the per-connection state the transport/pump layer owns: a
// frame reader accumulating transport bytes and, once Tattach
// succeeds, the resulting Session. Tversion/Tattach are answered
// before Session exists; every later opcode requires it.
type Conn struct {
	ID      string
	Reader  *wire.FrameReader
	Session *session.Session
	Msize   uint32
	closed  bool
}

// NewConn returns a fresh connection state bound to id, ready to
// negotiate Tversion at the protocol ceiling until the client narrows it.
func NewConn(id string) *Conn {
	return &Conn{ID: id, Reader: wire.NewFrameReader(constants.MaxMsize), Msize: constants.MaxMsize}
}

// Closed reports whether this connection has been torn down (budget
// exhaustion, ticket revocation, or an unrecoverable codec error).
func (c *Conn) Closed() bool { return c.closed }
