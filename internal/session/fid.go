package session

import (
	"sync"

	"github.com/cohesix/ninedoor/internal/errcode"
	"github.com/cohesix/ninedoor/wire"
)

// FidState is the server-side record a fid names: a resolved path,
// its qid, and (once opened) the mode and read/write cursor.
type FidState struct {
	Path   string
	Qid    wire.Qid
	Opened bool
	Mode   wire.OpenMode
	Cursor uint64
}

// FidTable is a session's fid namespace. Fid counts are small and
// sparse (unlike the fixed-depth tag window) so a guarded map is used
// rather than a preallocated array.
type FidTable struct {
	mu   sync.Mutex
	fids map[wire.Fid]*FidState
}

// NewFidTable returns an empty fid table.
func NewFidTable() *FidTable {
	return &FidTable{fids: make(map[wire.Fid]*FidState)}
}

// Alloc installs a fresh fid bound to path/qid. It is Invalid to
// reuse a fid that is already allocated (the client must clunk first).
func (t *FidTable) Alloc(fid wire.Fid, path string, qid wire.Qid) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.fids[fid]; exists {
		return errcode.New("fid_alloc", errcode.Invalid, "fid already in use")
	}
	t.fids[fid] = &FidState{Path: path, Qid: qid}
	return nil
}

// Get returns the fid's state, or NotFound if it is not allocated.
func (t *FidTable) Get(fid wire.Fid) (*FidState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.fids[fid]
	if !ok {
		return nil, errcode.New("fid_lookup", errcode.NotFound, "unknown fid")
	}
	return st, nil
}

// SetOpen marks fid as opened with the given mode, rejecting a
// double-open (Invalid).
func (t *FidTable) SetOpen(fid wire.Fid, mode wire.OpenMode) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.fids[fid]
	if !ok {
		return errcode.New("fid_open", errcode.NotFound, "unknown fid")
	}
	if st.Opened {
		return errcode.New("fid_open", errcode.Invalid, "fid already opened")
	}
	st.Opened = true
	st.Mode = mode
	return nil
}

// Advance moves fid's read/write cursor forward by n bytes.
func (t *FidTable) Advance(fid wire.Fid, n uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.fids[fid]; ok {
		st.Cursor += n
	}
}

// Clunk removes fid from the table. Clunking an unknown fid is not an
// error (matches 9P idempotence around teardown).
func (t *FidTable) Clunk(fid wire.Fid) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.fids, fid)
}

// Len reports the number of live fids, for /proc accounting.
func (t *FidTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.fids)
}
