// Package policy implements the per-session capability checks of
// can_attach, can_open, can_create. Each hook is a total
// function over a ticket's claims and the operation being attempted,
// returning the closed error taxonomy — never a bespoke message.
package policy

import (
	"strings"

	"github.com/cohesix/ninedoor/internal/errcode"
	"github.com/cohesix/ninedoor/internal/ticket"
	"github.com/cohesix/ninedoor/wire"
)

// CanAttach requires the ticket's role to be whitelisted, and any
// non-queen role to present a non-empty subject.
func CanAttach(c ticket.Claims) error {
	switch c.Role {
	case ticket.RoleQueen, ticket.RoleWorker, ticket.RoleHost, ticket.RoleObserver:
	default:
		return errcode.New("can_attach", errcode.Permission, "role not whitelisted")
	}
	if c.Role != ticket.RoleQueen && strings.TrimSpace(c.Subject) == "" {
		return errcode.New("can_attach", errcode.Permission, "subject required for non-queen role")
	}
	return nil
}

// scopeAllows reports whether any of a ticket's scopes covers path,
// treating a scope as a path prefix (a scope "/worker" covers
// "/worker/1/telemetry").
func scopeAllows(scopes []string, path string) bool {
	for _, s := range scopes {
		if path == s || strings.HasPrefix(path, strings.TrimSuffix(s, "/")+"/") {
			return true
		}
	}
	return false
}

// NodeAttrs describes the provider-node facts CanOpen needs that are
// not carried by the ticket: whether the node is append-only, and
// whether it is a queen-only control sink.
type NodeAttrs struct {
	AppendOnly bool
	QueenOnly bool
}

// CanOpen requires the path to fall within an allowed scope,
// rejects TRUNC and read-write opens on append-only nodes (read-only
// and write-only opens pass), and
// rejects non-queen roles on queen-only sinks.
func CanOpen(c ticket.Claims, path string, mode wire.OpenMode, attrs NodeAttrs) error {
	if attrs.QueenOnly && c.Role != ticket.RoleQueen {
		return errcode.New("can_open", errcode.Permission, "queen-only node")
	}
	if !scopeAllows(c.Scopes, path) {
		return errcode.NewPath("can_open", path, errcode.Permission, "path not in scope")
	}
	if attrs.AppendOnly {
		if mode.Truncates() {
			return errcode.NewPath("can_open", path, errcode.Permission, "append-only node rejects TRUNC")
		}
		if mode.Writable() && mode&0x3 != wire.OWRITE {
			return errcode.NewPath("can_open", path, errcode.Permission, "append-only node requires write-only mode")
		}
	}
	return nil
}

// PendingChunkLookup reports whether hash is declared in a pending
// (not-yet-ready) manifest for the given epoch.
type PendingChunkLookup func(epoch, hash string) bool

// CanCreate rejects create everywhere except within the CAS chunk
// namespace, and even there only for queen tickets whose target hash
// is declared in a pending manifest.
func CanCreate(c ticket.Claims, epoch, hash string, isCASPath bool, lookup PendingChunkLookup) error {
	if !isCASPath {
		return errcode.New("can_create", errcode.Permission, "create not supported outside CAS namespace")
	}
	if c.Role != ticket.RoleQueen {
		return errcode.New("can_create", errcode.Permission, "CAS chunk creation requires queen role")
	}
	if lookup == nil || !lookup(epoch, hash) {
		return errcode.New("can_create", errcode.Permission, "hash not declared in a pending manifest")
	}
	return nil
}
