// Package session implements the per-connection state: a session's
// ticket claims, live budget, mount table, fid table, and pipelined
// tag window.
package session

import (
	"github.com/cohesix/ninedoor/internal/namespace"
	"github.com/cohesix/ninedoor/internal/ticket"
)

// Session is one attached connection's complete server-side state.
type Session struct {
	ID string
	Claims ticket.Claims
	Budget *ticket.BudgetState
	Namespace *namespace.Table
	Fids *FidTable
	Tags *TagTable
	Msize uint32
}

// New constructs a session for a successfully-verified ticket.
func New(id string, claims ticket.Claims, budget *ticket.BudgetState, tagsPerSession int, msize uint32) *Session {
	return &Session{
		ID: id,
		Claims: claims,
		Budget: budget,
		Namespace: namespace.New(),
		Fids: NewFidTable(),
		Tags: NewTagTable(tagsPerSession),
		Msize: msize,
	}
}
