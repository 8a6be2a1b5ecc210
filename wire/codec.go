package wire

import (
	"encoding/binary"

	"github.com/cohesix/ninedoor/internal/constants"
	"github.com/cohesix/ninedoor/internal/errcode"
)

// HeaderLen is the fixed size-prefix+type+tag header every frame
// carries ahead of its opcode-specific body.
const HeaderLen = 4 + 1 + 2

// encoder accumulates a frame body using a manual
// encoding/binary.LittleEndian field-at-a-time approach, generalized
// to variable-length strings and byte blobs.
type encoder struct {
	buf []byte
}

func (e *encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) u16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }
func (e *encoder) u32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }
func (e *encoder) u64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }

func (e *encoder) bytes(b []byte) {
	e.u32(uint32(len(b)))
	e.buf = append(e.buf, b...)
}

func (e *encoder) str(s string) {
	e.u16(uint16(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *encoder) qid(q Qid) {
	e.u8(uint8(q.Type))
	e.u32(q.Version)
	e.u64(q.Path)
}

func (e *encoder) qids(qs []Qid) {
	e.u16(uint16(len(qs)))
	for _, q := range qs {
		e.qid(q)
	}
}

func (e *encoder) strs(ss []string) {
	e.u16(uint16(len(ss)))
	for _, s := range ss {
		e.str(s)
	}
}

// decoder walks a frame body, returning errcode.Invalid on any
// short-read or malformed field, never panicking: the event pump
// is panic-free by construction.
type decoder struct {
	data []byte
	off  int
}

func (d *decoder) remaining() int { return len(d.data) - d.off }

func (d *decoder) u8() (uint8, error) {
	if d.remaining() < 1 {
		return 0, errcode.Invalid
	}
	v := d.data[d.off]
	d.off++
	return v, nil
}

func (d *decoder) u16() (uint16, error) {
	if d.remaining() < 2 {
		return 0, errcode.Invalid
	}
	v := binary.LittleEndian.Uint16(d.data[d.off:])
	d.off += 2
	return v, nil
}

func (d *decoder) u32() (uint32, error) {
	if d.remaining() < 4 {
		return 0, errcode.Invalid
	}
	v := binary.LittleEndian.Uint32(d.data[d.off:])
	d.off += 4
	return v, nil
}

func (d *decoder) u64() (uint64, error) {
	if d.remaining() < 8 {
		return 0, errcode.Invalid
	}
	v := binary.LittleEndian.Uint64(d.data[d.off:])
	d.off += 8
	return v, nil
}

func (d *decoder) bytes() ([]byte, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	if d.remaining() < int(n) {
		return nil, errcode.Invalid
	}
	b := make([]byte, n)
	copy(b, d.data[d.off:d.off+int(n)])
	d.off += int(n)
	return b, nil
}

func (d *decoder) str() (string, error) {
	n, err := d.u16()
	if err != nil {
		return "", err
	}
	if d.remaining() < int(n) {
		return "", errcode.Invalid
	}
	s := string(d.data[d.off : d.off+int(n)])
	d.off += int(n)
	if !ValidString(s) {
		return "", errcode.Invalid
	}
	return s, nil
}

func (d *decoder) qid() (Qid, error) {
	t, err := d.u8()
	if err != nil {
		return Qid{}, err
	}
	v, err := d.u32()
	if err != nil {
		return Qid{}, err
	}
	p, err := d.u64()
	if err != nil {
		return Qid{}, err
	}
	return Qid{Type: QidType(t), Version: v, Path: p}, nil
}

func (d *decoder) qids() ([]Qid, error) {
	n, err := d.u16()
	if err != nil {
		return nil, err
	}
	qs := make([]Qid, 0, n)
	for i := uint16(0); i < n; i++ {
		q, err := d.qid()
		if err != nil {
			return nil, err
		}
		qs = append(qs, q)
	}
	return qs, nil
}

func (d *decoder) strs() ([]string, error) {
	n, err := d.u16()
	if err != nil {
		return nil, err
	}
	ss := make([]string, 0, n)
	for i := uint16(0); i < n; i++ {
		s, err := d.str()
		if err != nil {
			return nil, err
		}
		ss = append(ss, s)
	}
	return ss, nil
}

func (d *decoder) done() bool { return d.remaining() == 0 }

// EncodeFrame wraps an already-encoded body with the size/type/tag
// header. size includes the header itself.
func EncodeFrame(mtype MType, tag Tag, body []byte) []byte {
	total := HeaderLen + len(body)
	out := make([]byte, 0, total)
	out = binary.LittleEndian.AppendUint32(out, uint32(total))
	out = append(out, byte(mtype))
	out = binary.LittleEndian.AppendUint16(out, tag)
	out = append(out, body...)
	return out
}

// FrameHeader is the decoded size/type/tag prefix of a frame.
type FrameHeader struct {
	Size uint32
	Type MType
	Tag  Tag
}

// DecodeFrameHeader reads the fixed header. Callers must have at
// least HeaderLen bytes; use PeekFrameLen first when buffering.
func DecodeFrameHeader(data []byte) (FrameHeader, error) {
	if len(data) < HeaderLen {
		return FrameHeader{}, errcode.Invalid
	}
	size := binary.LittleEndian.Uint32(data[0:4])
	mtype := MType(data[4])
	tag := binary.LittleEndian.Uint16(data[5:7])
	return FrameHeader{Size: size, Type: mtype, Tag: tag}, nil
}

// PeekFrameLen reports the declared frame length without consuming
// anything, or false if fewer than HeaderLen bytes are buffered yet.
func PeekFrameLen(data []byte) (uint32, bool) {
	if len(data) < HeaderLen {
		return 0, false
	}
	return binary.LittleEndian.Uint32(data[0:4]), true
}

// CheckSize enforces the TooBig contract: declared size must not
// exceed the negotiated msize, which itself never exceeds the
// protocol-fixed ceiling.
func CheckSize(declared, msizeNegotiated uint32) error {
	if msizeNegotiated > constants.MaxMsize {
		return errcode.New("codec", errcode.Invalid, "msize exceeds protocol ceiling")
	}
	if declared > msizeNegotiated {
		return errcode.New("codec", errcode.TooBig, "frame exceeds negotiated msize")
	}
	return nil
}
