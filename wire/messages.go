package wire

// Message payloads for the opcode set NineDoor serves:
// version, attach, walk, open, read, write, clunk, stat, remove.
// Struct field order is wire order, full stop.

type TversionMsg struct {
	Msize uint32
	Version string
}

type RversionMsg struct {
	Msize uint32
	Version string
}

// TattachMsg carries the ticket as an opaque byte blob (its own codec
// lives in internal/ticket); the wire layer never interprets it.
type TattachMsg struct {
	Fid Fid
	Aname string
	Ticket []byte
}

type RattachMsg struct {
	Qid Qid
}

type TwalkMsg struct {
	Fid Fid
	NewFid Fid
	Names []string
}

type RwalkMsg struct {
	Qids []Qid
}

type TopenMsg struct {
	Fid Fid
	Mode OpenMode
}

type RopenMsg struct {
	Qid Qid
	IOUnit uint32
}

type TreadMsg struct {
	Fid Fid
	Offset uint64
	Count uint32
}

type RreadMsg struct {
	Data []byte
}

type TwriteMsg struct {
	Fid Fid
	Offset uint64
	Data []byte
}

type RwriteMsg struct {
	Count uint32
}

type TclunkMsg struct {
	Fid Fid
}

type RclunkMsg struct{}

// TremoveMsg is structurally parseable but always answered Permission:
// remove is not a supported operation.
type TremoveMsg struct {
	Fid Fid
}

type TstatMsg struct {
	Fid Fid
}

type RstatMsg struct {
	Data []byte
}

// RerrorMsg carries only a Code name (no user-controlled free
// text ever crosses the wire).
type RerrorMsg struct {
	Code string
}
