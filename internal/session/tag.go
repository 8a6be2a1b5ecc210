package session

import (
	"sync"

	"github.com/cohesix/ninedoor/internal/errcode"
	"github.com/cohesix/ninedoor/wire"
)

// TagState is a per-tag FETCH/COMMIT state machine: a fixed-size
// array of states guarded by one mutex per slot, so pipelined tags
// never contend on a shared lock and the hot path never allocates.
type TagState int

const (
	// TagIdle: no request outstanding; the tag may be reused.
	TagIdle TagState = iota
	// TagPending: a T-message was accepted and dispatched; the reply
	// is not yet ready.
	TagPending
	// TagReady: the provider produced a reply; it is waiting to be
	// flushed to the wire.
	TagReady
)

// TagTable is a session's pipelined tag window, sized to the
// session's negotiated tags_per_session bound.
type TagTable struct {
	mus []sync.Mutex
	states []TagState
	replies [][]byte
}

// NewTagTable preallocates a window of n tag slots.
func NewTagTable(n int) *TagTable {
	return &TagTable{
		mus: make([]sync.Mutex, n),
		states: make([]TagState, n),
		replies: make([][]byte, n),
	}
}

func (t *TagTable) slot(tag wire.Tag) (int, error) {
	i := int(tag)
	if i < 0 || i >= len(t.states) {
		return 0, errcode.New("tag", errcode.Invalid, "tag outside session window")
	}
	return i, nil
}

// Begin transitions tag from idle to pending. Reusing a tag that is
// already in flight is Busy (the client violated the pipelining
// contract).
func (t *TagTable) Begin(tag wire.Tag) error {
	i, err := t.slot(tag)
	if err != nil {
		return err
	}
	t.mus[i].Lock()
	defer t.mus[i].Unlock()
	if t.states[i] != TagIdle {
		return errcode.New("tag", errcode.Busy, "tag already in flight")
	}
	t.states[i] = TagPending
	return nil
}

// Complete attaches a reply to a pending tag and marks it ready.
func (t *TagTable) Complete(tag wire.Tag, reply []byte) error {
	i, err := t.slot(tag)
	if err != nil {
		return err
	}
	t.mus[i].Lock()
	defer t.mus[i].Unlock()
	if t.states[i] != TagPending {
		return errcode.New("tag", errcode.Invalid, "complete on a non-pending tag")
	}
	t.replies[i] = reply
	t.states[i] = TagReady
	return nil
}

// TakeReply drains a ready tag's reply, returning it to idle so the
// client may reuse the tag number.
func (t *TagTable) TakeReply(tag wire.Tag) ([]byte, bool) {
	i, err := t.slot(tag)
	if err != nil {
		return nil, false
	}
	t.mus[i].Lock()
	defer t.mus[i].Unlock()
	if t.states[i] != TagReady {
		return nil, false
	}
	reply := t.replies[i]
	t.replies[i] = nil
	t.states[i] = TagIdle
	return reply, true
}

// Window reports the configured tag window size.
func (t *TagTable) Window() int { return len(t.states) }
