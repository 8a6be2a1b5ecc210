package session

import (
	"testing"

	"github.com/cohesix/ninedoor/internal/errcode"
	"github.com/cohesix/ninedoor/wire"
)

func TestFidAllocAndDoubleAllocRejected(t *testing.T) {
	ft := NewFidTable()
	if err := ft.Alloc(1, "/worker/w1", wire.Qid{Type: wire.QTFile}); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if err := ft.Alloc(1, "/worker/w1", wire.Qid{}); errcode.CodeOf(err) != errcode.Invalid {
		t.Fatalf("expected Invalid for double alloc, got %v", err)
	}
}

func TestFidOpenTwiceRejected(t *testing.T) {
	ft := NewFidTable()
	ft.Alloc(2, "/worker/w1", wire.Qid{})
	if err := ft.SetOpen(2, wire.OREAD); err != nil {
		t.Fatalf("SetOpen: %v", err)
	}
	if err := ft.SetOpen(2, wire.OREAD); errcode.CodeOf(err) != errcode.Invalid {
		t.Fatalf("expected Invalid for double open, got %v", err)
	}
}

func TestFidClunkThenLookupNotFound(t *testing.T) {
	ft := NewFidTable()
	ft.Alloc(3, "/x", wire.Qid{})
	ft.Clunk(3)
	if _, err := ft.Get(3); errcode.CodeOf(err) != errcode.NotFound {
		t.Fatalf("expected NotFound after clunk, got %v", err)
	}
}

func TestTagLifecycle(t *testing.T) {
	tt := NewTagTable(4)
	if err := tt.Begin(0); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := tt.Begin(0); errcode.CodeOf(err) != errcode.Busy {
		t.Fatalf("expected Busy for reused in-flight tag, got %v", err)
	}
	if err := tt.Complete(0, []byte("reply")); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	reply, ok := tt.TakeReply(0)
	if !ok || string(reply) != "reply" {
		t.Fatalf("unexpected reply: %q ok=%v", reply, ok)
	}
	if err := tt.Begin(0); err != nil {
		t.Fatalf("Begin after drain should succeed: %v", err)
	}
}

func TestTagOutsideWindowInvalid(t *testing.T) {
	tt := NewTagTable(2)
	if err := tt.Begin(5); errcode.CodeOf(err) != errcode.Invalid {
		t.Fatalf("expected Invalid for out-of-window tag, got %v", err)
	}
}
