package provider

import (
	"testing"

	"github.com/cohesix/ninedoor/internal/errcode"
	"github.com/cohesix/ninedoor/wire"
)

func TestScalarReadAndRejectsWrite(t *testing.T) {
	s := NewScalar(wire.Qid{}, "version", []byte("v1"))
	buf := make([]byte, 8)
	res, err := s.Read(0, buf)
	if err != nil || res.N != 2 || !res.EOF {
		t.Fatalf("unexpected read result: %+v err=%v", res, err)
	}
	if _, err := s.Write([]byte("x")); errcode.CodeOf(err) != errcode.Permission {
		t.Fatalf("expected Permission, got %v", err)
	}
}

func TestStreamAppendAndTrim(t *testing.T) {
	s := NewStream(wire.Qid{}, "log", 8)
	s.Write([]byte("abcd"))
	s.Write([]byte("efgh"))
	s.Write([]byte("ij")) // forces eviction of leading bytes
	buf := make([]byte, 16)
	res, err := s.Read(0, buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := string(buf[:res.N]); got != "cdefghij" {
		t.Fatalf("unexpected stream contents after trim: %q", got)
	}
}

func TestRingRequiresPowerOfTwoCapacity(t *testing.T) {
	if _, err := NewRing(wire.Qid{}, "ring", 100); errcode.CodeOf(err) != errcode.Invalid {
		t.Fatalf("expected Invalid for non-power-of-two capacity, got %v", err)
	}
}

func TestRingResumeWithGap(t *testing.T) {
	r, err := NewRing(wire.Qid{}, "ring", 128)
	if err != nil {
		t.Fatalf("NewRing: %v", err)
	}
	for i := 0; i < 20; i++ {
		if _, err := r.Write([]byte("0123456789")); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}
	buf := make([]byte, 32)
	res, err := r.Read(0, buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !res.Gap {
		t.Fatalf("expected Gap after eviction, got %+v", res)
	}
}

func TestRingCapacityCountsPayloadBytesOnly(t *testing.T) {
	r, err := NewRing(wire.Qid{}, "ring", 4096)
	if err != nil {
		t.Fatalf("NewRing: %v", err)
	}
	rec := make([]byte, 1024)
	for i := 0; i < 5; i++ {
		if _, err := r.Write(rec); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}
	buf := make([]byte, 1024)
	cursor := uint64(0)
	for want := uint64(2); want <= 5; want++ {
		res, err := r.Read(cursor, buf)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if res.EOF {
			t.Fatalf("expected a surviving record at seq=%d, got EOF", want)
		}
		cursor = res.NextCursor
	}
	res, err := r.Read(cursor, buf)
	if err != nil {
		t.Fatalf("Read past end: %v", err)
	}
	if !res.EOF {
		t.Fatalf("expected EOF after the 4 surviving records, got %+v", res)
	}
}

func TestCBORSummaryRefreshAndReadOnly(t *testing.T) {
	calls := 0
	cs := NewCBORSummary(wire.Qid{}, "summary", func() (any, error) {
		calls++
		return map[string]int{"n": calls}, nil
	})
	if err := cs.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if cs.Stat().Length == 0 {
		t.Fatalf("expected non-empty cbor payload")
	}
	if _, err := cs.Write([]byte("x")); errcode.CodeOf(err) != errcode.Permission {
		t.Fatalf("expected Permission, got %v", err)
	}
}

func TestControlSinkDispatchesCompleteLines(t *testing.T) {
	var got [][]byte
	sink := NewControlSink(wire.Qid{}, "ctl", 4, func(line []byte) error {
		got = append(got, line)
		return nil
	})
	if _, err := sink.Write([]byte(`{"op":"spawn"}` + "\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one dispatched line, got %d", len(got))
	}
	if _, err := sink.Write([]byte("not json\n")); errcode.CodeOf(err) != errcode.Invalid {
		t.Fatalf("expected Invalid for malformed line, got %v", err)
	}
}
