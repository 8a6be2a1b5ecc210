package policy

import (
	"testing"

	"github.com/cohesix/ninedoor/internal/errcode"
	"github.com/cohesix/ninedoor/internal/ticket"
	"github.com/cohesix/ninedoor/wire"
)

func TestCanAttachRequiresSubjectForNonQueen(t *testing.T) {
	c := ticket.Claims{Role: ticket.RoleWorker}
	if err := CanAttach(c); errcode.CodeOf(err) != errcode.Permission {
		t.Fatalf("expected Permission, got %v", err)
	}
	c.Subject = "worker-1"
	if err := CanAttach(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCanOpenScopeAndAppendOnly(t *testing.T) {
	c := ticket.Claims{Role: ticket.RoleWorker, Subject: "w1", Scopes: []string{"/worker/w1"}}
	err := CanOpen(c, "/worker/w1/telemetry", wire.OWRITE, NodeAttrs{AppendOnly: true})
	if err != nil {
		t.Fatalf("expected open to succeed: %v", err)
	}
	err = CanOpen(c, "/worker/w1/telemetry", wire.OWRITE|wire.OTRUNC, NodeAttrs{AppendOnly: true})
	if errcode.CodeOf(err) != errcode.Permission {
		t.Fatalf("expected Permission for TRUNC on append-only, got %v", err)
	}
	err = CanOpen(c, "/other/path", wire.OREAD, NodeAttrs{})
	if errcode.CodeOf(err) != errcode.Permission {
		t.Fatalf("expected Permission for out-of-scope path, got %v", err)
	}
}

func TestCanOpenQueenOnly(t *testing.T) {
	worker := ticket.Claims{Role: ticket.RoleWorker, Subject: "w1", Scopes: []string{"/queen/ctl"}}
	if err := CanOpen(worker, "/queen/ctl", wire.OWRITE, NodeAttrs{QueenOnly: true}); errcode.CodeOf(err) != errcode.Permission {
		t.Fatalf("expected Permission for non-queen on queen-only sink, got %v", err)
	}
	queen := ticket.Claims{Role: ticket.RoleQueen, Scopes: []string{"/queen/ctl"}}
	if err := CanOpen(queen, "/queen/ctl", wire.OWRITE, NodeAttrs{QueenOnly: true}); err != nil {
		t.Fatalf("unexpected error for queen: %v", err)
	}
}

func TestCanCreateCASOnly(t *testing.T) {
	queen := ticket.Claims{Role: ticket.RoleQueen}
	lookup := func(epoch, hash string) bool { return hash == "deadbeef" }
	if err := CanCreate(queen, "v1", "deadbeef", true, lookup); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := CanCreate(queen, "v1", "other", true, lookup); errcode.CodeOf(err) != errcode.Permission {
		t.Fatalf("expected Permission for undeclared hash, got %v", err)
	}
	if err := CanCreate(queen, "v1", "deadbeef", false, lookup); errcode.CodeOf(err) != errcode.Permission {
		t.Fatalf("expected Permission outside CAS namespace, got %v", err)
	}
}
