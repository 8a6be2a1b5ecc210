// Package ticket implements capability-ticket minting and verification:
// a MAC-authenticated claims struct the host compiler mints and
// NineDoor sessions consume at attach time.
package ticket

import (
	"crypto/subtle"
	"encoding/binary"

	"github.com/cohesix/ninedoor/internal/constants"
	"github.com/cohesix/ninedoor/internal/errcode"
	"lukechampine.com/blake3"
)

// Role is one of the roles a ticket may carry.
type Role string

const (
	RoleQueen Role = "queen"
	RoleWorker Role = "worker"
	RoleHost Role = "host"
	RoleObserver Role = "observer"
)

// Budget bounds what a session may do before it must reattach.
type Budget struct {
	TTLSeconds uint32
	Ops uint64
	Bytes uint64
}

// CursorLimits bounds ring/stream cursor operations separately from
// the general op/byte budget (TicketClaims).
type CursorLimits struct {
	Resumes uint64
	Advances uint64
}

// Claims is the immutable, post-mint capability payload.
type Claims struct {
	Role Role
	Subject string
	Scopes []string
	Budget Budget
	CursorLimits CursorLimits
	IssuedAtMs uint64
}

// MACSize is the BLAKE3-keyed MAC length (32 bytes).
const MACSize = 32

// Ticket is claims plus their MAC. Once minted, Claims is never
// mutated; only a session's derived BudgetState decrements.
type Ticket struct {
	Claims Claims
	MAC [MACSize]byte
}

// canonicalEncode produces a deterministic byte encoding of claims for
// MAC computation and verification. Field order is fixed; there is no
// ambiguity for a verifier to exploit.
func canonicalEncode(c Claims) []byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, byte(len(c.Role)))
	buf = append(buf, c.Role...)
	buf = append(buf, byte(len(c.Subject)))
	buf = append(buf, c.Subject...)
	buf = append(buf, byte(len(c.Scopes)))
	for _, s := range c.Scopes {
		var lenBuf [2]byte
		binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(s)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, s...)
	}
	var n [24]byte
	binary.LittleEndian.PutUint32(n[0:4], c.Budget.TTLSeconds)
	binary.LittleEndian.PutUint64(n[4:12], c.Budget.Ops)
	binary.LittleEndian.PutUint64(n[12:20], c.Budget.Bytes)
	buf = append(buf, n[:20]...)
	var cl [16]byte
	binary.LittleEndian.PutUint64(cl[0:8], c.CursorLimits.Resumes)
	binary.LittleEndian.PutUint64(cl[8:16], c.CursorLimits.Advances)
	buf = append(buf, cl[:]...)
	var issued [8]byte
	binary.LittleEndian.PutUint64(issued[:], c.IssuedAtMs)
	buf = append(buf, issued[:]...)
	return buf
}

// Validate checks structural bounds independent of any key: per-ticket
// scope count <= 8, per-scope path length <= 128.
func Validate(c Claims) error {
	if len(c.Scopes) > constants.MaxScopesPerTicket {
		return errcode.New("ticket-validate", errcode.Invalid, "too many scopes")
	}
	for _, s := range c.Scopes {
		if len(s) > constants.MaxScopePathLen {
			return errcode.New("ticket-validate", errcode.Invalid, "scope path too long")
		}
	}
	switch c.Role {
	case RoleQueen, RoleWorker, RoleHost, RoleObserver:
	default:
		return errcode.New("ticket-validate", errcode.Invalid, "unknown role")
	}
	return nil
}

// Mint produces a Ticket over claims, keyed by the hive's symmetric
// MAC key (provisioned by the host compiler, never by the core).
func Mint(key []byte, c Claims) (*Ticket, error) {
	if err := Validate(c); err != nil {
		return nil, err
	}
	mac := blake3.New(MACSize, key)
	mac.Write(canonicalEncode(c))
	var out [MACSize]byte
	copy(out[:], mac.Sum(nil))
	return &Ticket{Claims: c, MAC: out}, nil
}

// Verify recomputes the MAC over t.Claims and compares it to t.MAC in
// constant time. A tampered claims field (any bit flipped) or a wrong
// key fails verification uniformly as Invalid.
func Verify(key []byte, t *Ticket) error {
	mac := blake3.New(MACSize, key)
	mac.Write(canonicalEncode(t.Claims))
	want := mac.Sum(nil)
	if subtle.ConstantTimeCompare(want, t.MAC[:]) != 1 {
		return errcode.New("ticket-verify", errcode.Invalid, "MAC mismatch")
	}
	if err := Validate(t.Claims); err != nil {
		return err
	}
	return nil
}
