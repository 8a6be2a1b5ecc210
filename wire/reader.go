package wire

import "github.com/cohesix/ninedoor/internal/errcode"

// FrameReader accumulates transport bytes and yields complete frames.
// It never blocks: Feed appends whatever the transport handed over
// this tick, and Next drains as many complete frames as are buffered,
// decoding multiple requests from a single transport read. Partial
// frames remain buffered across ticks.
type FrameReader struct {
	buf []byte
	msizeNegotiated uint32
}

// NewFrameReader creates a reader bound to a session's negotiated msize.
func NewFrameReader(msizeNegotiated uint32) *FrameReader {
	return &FrameReader{msizeNegotiated: msizeNegotiated}
}

// Feed appends newly-read transport bytes.
func (r *FrameReader) Feed(b []byte) {
	r.buf = append(r.buf, b...)
}

// SetMsize updates the bound after Tversion negotiation.
func (r *FrameReader) SetMsize(msize uint32) {
	r.msizeNegotiated = msize
}

// Next extracts one complete frame if buffered, reporting ok=false
// when more bytes are needed. This is not an error: the caller should
// simply return to polling the transport, since the pump never
// blocks.
func (r *FrameReader) Next() (FrameHeader, []byte, bool, error) {
	size, have := PeekFrameLen(r.buf)
	if !have {
		return FrameHeader{}, nil, false, nil
	}
	if err := CheckSize(size, r.msizeNegotiated); err != nil {
		// Drop the corrupt/oversize frame; the stream position is
		// unrecoverable once size disagrees with what follows, so the
		// caller closes the session.
		r.buf = nil
		return FrameHeader{}, nil, false, err
	}
	if uint32(len(r.buf)) < size {
		return FrameHeader{}, nil, false, nil
	}
	hdr, err := DecodeFrameHeader(r.buf)
	if err != nil {
		r.buf = nil
		return FrameHeader{}, nil, false, errcode.Invalid
	}
	body := make([]byte, size-HeaderLen)
	copy(body, r.buf[HeaderLen:size])
	r.buf = r.buf[size:]
	return hdr, body, true, nil
}

// Pending reports whether a partial frame remains buffered.
func (r *FrameReader) Pending() int { return len(r.buf) }
