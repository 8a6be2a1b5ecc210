// Package approval implements the policy layer's single-use approval
// gate: an action queued by the queen through /policy/ctl and
// consumed exactly once by whatever operation it authorizes, observed
// through /actions/<id>/status. Uses the same guarded-map shape as
// session.FidTable — approvals are sparse and looked up by id, not a
// hot per-tick path.
package approval

import (
	"sync"

	"github.com/cohesix/ninedoor/internal/errcode"
)

// Status is an approval's lifecycle stage.
type Status string

const (
	StatusQueued Status = "queued"
	StatusConsumed Status = "consumed"
)

// Approval is one queued authorization, matching the target_path/
// decision shape a gated write is checked against.
type Approval struct {
	ID string
	TargetPath string
	Decision string // "allow" or "deny"
	Status Status
}

// Gate holds all outstanding approvals for a session or hive. order
// records arrival sequence so ConsumeForPath can pick the oldest
// match deterministically rather than depend on map iteration.
type Gate struct {
	mu sync.Mutex
	byID map[string]*Approval
	order []string
}

// NewGate returns an empty approval gate.
func NewGate() *Gate {
	return &Gate{byID: make(map[string]*Approval)}
}

// Enqueue installs a new queued approval for targetPath. Reusing an
// id is Invalid. An empty decision defaults to "allow".
func (g *Gate) Enqueue(id, targetPath, decision string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.byID[id]; exists {
		return errcode.New("approval_enqueue", errcode.Invalid, "approval id already in use")
	}
	if decision == "" {
		decision = "allow"
	}
	g.byID[id] = &Approval{ID: id, TargetPath: targetPath, Decision: decision, Status: StatusQueued}
	g.order = append(g.order, id)
	return nil
}

// Consume marks a queued approval consumed, returning it. A second
// Consume on the same id is Permission (single-use), and an unknown
// id is NotFound.
func (g *Gate) Consume(id string) (*Approval, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	a, ok := g.byID[id]
	if !ok {
		return nil, errcode.New("approval_consume", errcode.NotFound, "unknown approval id")
	}
	if a.Status == StatusConsumed {
		return nil, errcode.New("approval_consume", errcode.Permission, "approval already consumed")
	}
	a.Status = StatusConsumed
	return a, nil
}

// ConsumeForPath finds and consumes the oldest still-queued approval
// whose TargetPath matches path. A gated write calls this instead of
// Consume-by-id since the write itself carries no action id — the
// approval is addressed by the path it authorizes. No matching queued
// approval (none enqueued, or already consumed by a prior write) is
// Permission.
func (g *Gate) ConsumeForPath(path string) (*Approval, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range g.order {
		a := g.byID[id]
		if a.Status == StatusQueued && a.TargetPath == path {
			a.Status = StatusConsumed
			return a, nil
		}
	}
	return nil, errcode.New("approval_consume", errcode.Permission, "no queued approval for path")
}

// Status reports an approval's current stage.
func (g *Gate) Status(id string) (Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	a, ok := g.byID[id]
	if !ok {
		return "", errcode.New("approval_status", errcode.NotFound, "unknown approval id")
	}
	return a.Status, nil
}
