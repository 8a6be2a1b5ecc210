// Package wire implements the Secure9P (9P2000.L subset) frame codec:
// encode/decode for the opcode set NineDoor serves, bounded msize,
// and UTF-8/path validation.
package wire

import "github.com/cohesix/ninedoor/internal/constants"

// MType is the 9P message type byte.
type MType uint8

const (
	Tversion MType = 100
	Rversion MType = 101
	Tattach  MType = 104
	Rattach  MType = 105
	Rerror   MType = 107
	Twalk    MType = 110
	Rwalk    MType = 111
	Topen    MType = 112
	Ropen    MType = 113
	Tread    MType = 116
	Rread    MType = 117
	Twrite   MType = 118
	Rwrite   MType = 119
	Tclunk   MType = 120
	Rclunk   MType = 121
	Tremove  MType = 122
	Rremove  MType = 123
	Tstat    MType = 124
	Rstat    MType = 125
)

// Tag identifies a pipelined request/response pair within a session.
type Tag = uint16

// NoTag is the sentinel used on Tversion, which precedes tag allocation.
const NoTag = constants.NoTag

// Fid is a session-local handle to a resolved namespace node.
type Fid = uint32

// NoFid is the sentinel for "no fid".
const NoFid = constants.NoFid

// QidType mirrors the high bits of a 9P mode word that classify a node.
type QidType uint8

const (
	QTFile   QidType = 0x00
	QTAppend QidType = 0x40
	QTDir    QidType = 0x80
)

// Qid is a provider-stable node identity: {type, version, path}.
type Qid struct {
	Type    QidType
	Version uint32
	Path    uint64
}

// OpenMode mirrors the low bits of 9P's open/create mode byte.
type OpenMode uint8

const (
	OREAD  OpenMode = 0x0
	OWRITE OpenMode = 0x1
	ORDWR  OpenMode = 0x2
	OTRUNC OpenMode = 0x10
)

func (m OpenMode) Truncates() bool { return m&OTRUNC != 0 }
func (m OpenMode) Writable() bool  { return m&0x3 == OWRITE || m&0x3 == ORDWR }
func (m OpenMode) Readable() bool  { return m&0x3 == OREAD || m&0x3 == ORDWR }
