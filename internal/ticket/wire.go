package ticket

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/cohesix/ninedoor/internal/errcode"
)

// wireTicket is the CBOR shape of a Ticket as it crosses the wire
// inside TattachMsg.Ticket (wire/messages.go leaves this blob
// opaque; this package is the one place it is interpreted). The MAC
// travels as a fixed-length byte string; canonicalEncode is never
// serialized directly since it exists only to feed the MAC.
type wireTicket struct {
	Role         string   `cbor:"role"`
	Subject      string   `cbor:"subject"`
	Scopes       []string `cbor:"scopes"`
	TTLSeconds   uint32   `cbor:"ttl_s"`
	Ops          uint64   `cbor:"ops"`
	Bytes        uint64   `cbor:"bytes"`
	Resumes      uint64   `cbor:"resumes"`
	Advances     uint64   `cbor:"advances"`
	IssuedAtMs   uint64   `cbor:"issued_at_ms"`
	MAC          []byte   `cbor:"mac"`
}

// Encode serializes t for transport. The host compiler that mints
// tickets is expected to produce this same shape.
func Encode(t *Ticket) ([]byte, error) {
	w := wireTicket{
		Role:       string(t.Claims.Role),
		Subject:    t.Claims.Subject,
		Scopes:     t.Claims.Scopes,
		TTLSeconds: t.Claims.Budget.TTLSeconds,
		Ops:        t.Claims.Budget.Ops,
		Bytes:      t.Claims.Budget.Bytes,
		Resumes:    t.Claims.CursorLimits.Resumes,
		Advances:   t.Claims.CursorLimits.Advances,
		IssuedAtMs: t.Claims.IssuedAtMs,
		MAC:        t.MAC[:],
	}
	return cbor.Marshal(w)
}

// Decode parses a transported ticket, checking only MAC length here;
// Verify is the caller's responsibility once a key is available.
func Decode(raw []byte) (*Ticket, error) {
	var w wireTicket
	if err := cbor.Unmarshal(raw, &w); err != nil {
		return nil, errcode.New("ticket_decode", errcode.Invalid, "malformed ticket CBOR")
	}
	if len(w.MAC) != MACSize {
		return nil, errcode.New("ticket_decode", errcode.Invalid, "malformed MAC length")
	}
	var mac [MACSize]byte
	copy(mac[:], w.MAC)
	return &Ticket{
		Claims: Claims{
			Role:         Role(w.Role),
			Subject:      w.Subject,
			Scopes:       w.Scopes,
			Budget:       Budget{TTLSeconds: w.TTLSeconds, Ops: w.Ops, Bytes: w.Bytes},
			CursorLimits: CursorLimits{Resumes: w.Resumes, Advances: w.Advances},
			IssuedAtMs:   w.IssuedAtMs,
		},
		MAC: mac,
	}, nil
}
