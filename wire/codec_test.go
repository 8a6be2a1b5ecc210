package wire

import (
	"bytes"
	"testing"

	"github.com/cohesix/ninedoor/internal/errcode"
)

func TestFrameRoundTrip(t *testing.T) {
	body := EncodeTversion(TversionMsg{Msize: 8192, Version: "9P2000.L"})
	frame := EncodeFrame(Tversion, NoTag, body)

	hdr, err := DecodeFrameHeader(frame)
	if err != nil {
		t.Fatalf("DecodeFrameHeader: %v", err)
	}
	if hdr.Type != Tversion || hdr.Tag != NoTag {
		t.Fatalf("unexpected header: %+v", hdr)
	}
	if hdr.Size != uint32(len(frame)) {
		t.Fatalf("size mismatch: hdr=%d actual=%d", hdr.Size, len(frame))
	}

	got, err := DecodeTversion(frame[HeaderLen:])
	if err != nil {
		t.Fatalf("DecodeTversion: %v", err)
	}
	if got.Msize != 8192 || got.Version != "9P2000.L" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}

	// Re-encoding must be byte-identical.
	again := EncodeFrame(Tversion, NoTag, EncodeTversion(got))
	if !bytes.Equal(frame, again) {
		t.Fatalf("encode not idempotent")
	}
}

func TestCheckSizeTooBig(t *testing.T) {
	if err := CheckSize(9000, 8192); errcode.CodeOf(err) != errcode.TooBig {
		t.Fatalf("expected TooBig, got %v", err)
	}
}

func TestWalkDepthAndDotDot(t *testing.T) {
	if err := ValidateWalkNames(make([]string, 9)); errcode.CodeOf(err) != errcode.Invalid {
		t.Fatalf("expected Invalid for depth>8, got %v", err)
	}
	if err := ValidateWalkNames([]string{"a", "..", "b"}); errcode.CodeOf(err) != errcode.Invalid {
		t.Fatalf("expected Invalid for .., got %v", err)
	}
	if err := ValidateWalkNames([]string{"a", "", "b"}); errcode.CodeOf(err) != errcode.Invalid {
		t.Fatalf("expected Invalid for empty component, got %v", err)
	}
	if err := ValidateWalkNames([]string{"proc", "boot"}); err != nil {
		t.Fatalf("unexpected error for valid walk: %v", err)
	}
}

func TestInvalidUTF8Rejected(t *testing.T) {
	bad := string([]byte{0xff, 0xfe})
	if ValidString(bad) {
		t.Fatalf("expected invalid UTF-8 to be rejected")
	}
	if ValidString("has\x00nul") {
		t.Fatalf("expected embedded NUL to be rejected")
	}
}

func TestFrameReaderBatching(t *testing.T) {
	r := NewFrameReader(8192)
	f1 := EncodeFrame(Tclunk, 1, EncodeTclunk(TclunkMsg{Fid: 1}))
	f2 := EncodeFrame(Tclunk, 2, EncodeTclunk(TclunkMsg{Fid: 2}))
	r.Feed(append(append([]byte{}, f1...), f2...))

	hdr, _, ok, err := r.Next()
	if err != nil || !ok || hdr.Tag != 1 {
		t.Fatalf("expected first frame tag=1, got hdr=%+v ok=%v err=%v", hdr, ok, err)
	}
	hdr, _, ok, err = r.Next()
	if err != nil || !ok || hdr.Tag != 2 {
		t.Fatalf("expected second frame tag=2, got hdr=%+v ok=%v err=%v", hdr, ok, err)
	}
	if _, _, ok, _ := r.Next(); ok {
		t.Fatalf("expected no more frames")
	}
}

func TestFrameReaderPartial(t *testing.T) {
	r := NewFrameReader(8192)
	f := EncodeFrame(Tclunk, 1, EncodeTclunk(TclunkMsg{Fid: 1}))
	r.Feed(f[:len(f)-1])
	if _, _, ok, err := r.Next(); ok || err != nil {
		t.Fatalf("expected pending, got ok=%v err=%v", ok, err)
	}
	r.Feed(f[len(f)-1:])
	if _, _, ok, err := r.Next(); !ok || err != nil {
		t.Fatalf("expected frame once complete, got ok=%v err=%v", ok, err)
	}
}
