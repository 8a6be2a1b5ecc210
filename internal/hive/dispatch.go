// Dispatch implements per-frame half of the event pump:
// given one already-decoded frame, resolve policy, namespace, and
// provider, and produce the reply frame. The pump's Dispatch stage
// calls HandleFrame once per buffered frame, up to tags_per_session
// per tick.
package hive

import (
	"github.com/cohesix/ninedoor/internal/errcode"
	"github.com/cohesix/ninedoor/internal/namespace"
	"github.com/cohesix/ninedoor/internal/policy"
	"github.com/cohesix/ninedoor/internal/provider"
	"github.com/cohesix/ninedoor/internal/session"
	"github.com/cohesix/ninedoor/internal/ticket"
	"github.com/cohesix/ninedoor/wire"
)

// HandleFrame decodes and executes one request body against conn,
// returning the fully framed reply. Every path through this function
// returns a frame — a rejected or malformed request becomes an
// Rerror frame, never a dropped connection, except where the codec
// itself reports an unrecoverable stream error (handled by the caller
// before HandleFrame is reached).
func (h *Hive) HandleFrame(conn *Conn, hdr wire.FrameHeader, body []byte) []byte {
	rtype, respBody, err := h.route(conn, hdr.Type, body)
	if err != nil {
		return wire.EncodeFrame(wire.Rerror, hdr.Tag, wire.EncodeRerror(wire.RerrorMsg{Code: string(errcode.CodeOf(err))}))
	}
	return wire.EncodeFrame(rtype, hdr.Tag, respBody)
}

func (h *Hive) route(conn *Conn, mtype wire.MType, body []byte) (wire.MType, []byte, error) {
	switch mtype {
	case wire.Tversion:
		return h.handleVersion(conn, body)
	case wire.Tattach:
		return h.handleAttach(conn, body)
	}

	if conn.Session == nil {
		return 0, nil, errcode.New("dispatch", errcode.Closed, "no session attached")
	}
	switch mtype {
	case wire.Twalk:
		return h.handleWalk(conn, body)
	case wire.Topen:
		return h.handleOpen(conn, body)
	case wire.Tread:
		return h.handleRead(conn, body)
	case wire.Twrite:
		return h.handleWrite(conn, body)
	case wire.Tclunk:
		return h.handleClunk(conn, body)
	case wire.Tstat:
		return h.handleStat(conn, body)
	case wire.Tremove:
		return 0, nil, errcode.New("remove", errcode.Permission, "remove is not a supported operation")
	default:
		return 0, nil, errcode.New("dispatch", errcode.Invalid, "unknown message type")
	}
}

func (h *Hive) handleVersion(conn *Conn, body []byte) (wire.MType, []byte, error) {
	req, err := wire.DecodeTversion(body)
	if err != nil {
		return 0, nil, err
	}
	msize := req.Msize
	if msize == 0 || msize > h.Manifest.Bounds.Msize {
		msize = h.Manifest.Bounds.Msize
	}
	conn.Reader.SetMsize(msize)
	conn.Msize = msize
	return wire.Rversion, wire.EncodeRversion(wire.RversionMsg{Msize: msize, Version: "9P2000.L"}), nil
}

// handleAttach verifies the ticket carried in the body, consults
// can_attach, and creates the session plus its root fid.
func (h *Hive) handleAttach(conn *Conn, body []byte) (wire.MType, []byte, error) {
	req, err := wire.DecodeTattach(body)
	if err != nil {
		return 0, nil, err
	}
	tk, err := decodeTicket(req.Ticket)
	if err != nil {
		return 0, nil, err
	}
	sess, err := h.Attach(conn.ID, tk, conn.Msize)
	if err != nil {
		return 0, nil, err
	}
	rootQid := wire.Qid{Type: wire.QTDir, Version: 0, Path: 0}
	if err := sess.Fids.Alloc(req.Fid, "/", rootQid); err != nil {
		h.Detach(conn.ID)
		return 0, nil, err
	}
	h.Metrics.ActiveFids.Add(1)
	conn.Session = sess
	return wire.Rattach, wire.EncodeRattach(wire.RattachMsg{Qid: rootQid}), nil
}

func decodeTicket(raw []byte) (*ticket.Ticket, error) {
	return ticket.Decode(raw)
}

func (h *Hive) handleWalk(conn *Conn, body []byte) (wire.MType, []byte, error) {
	req, err := wire.DecodeTwalk(body)
	if err != nil {
		return 0, nil, err
	}
	base, err := conn.Session.Fids.Get(req.Fid)
	if err != nil {
		return 0, nil, err
	}
	newPath, err := resolveNamespace(conn.Session, base.Path, req.Names)
	if err != nil {
		return 0, nil, err
	}
	node, nerr := h.lookup(conn.Session, newPath)
	var qid wire.Qid
	if nerr == nil {
		qid = node.Qid()
	} else {
		qid = wire.Qid{Type: wire.QTFile, Version: 0, Path: 0}
	}
	if req.Fid != req.NewFid {
		if err := conn.Session.Fids.Alloc(req.NewFid, newPath, qid); err != nil {
			return 0, nil, err
		}
	} else {
		conn.Session.Fids.Clunk(req.Fid)
		if err := conn.Session.Fids.Alloc(req.Fid, newPath, qid); err != nil {
			return 0, nil, err
		}
	}
	qids := []wire.Qid{}
	if nerr == nil {
		qids = append(qids, qid)
	}
	return wire.Rwalk, wire.EncodeRwalk(wire.RwalkMsg{Qids: qids}), nil
}

func resolveNamespace(sess *session.Session, base string, names []string) (string, error) {
	resolved, err := sess.Namespace.Resolve(base)
	if err != nil {
		return "", err
	}
	return namespace.Walk(resolved, names)
}

func (h *Hive) handleOpen(conn *Conn, body []byte) (wire.MType, []byte, error) {
	req, err := wire.DecodeTopen(body)
	if err != nil {
		return 0, nil, err
	}
	fidState, err := conn.Session.Fids.Get(req.Fid)
	if err != nil {
		return 0, nil, err
	}
	node, err := h.lookup(conn.Session, fidState.Path)
	if err != nil {
		return 0, nil, err
	}
	attrs := policy.NodeAttrs{
		AppendOnly: node.Kind() == provider.KindStream || node.Kind() == provider.KindRing,
		QueenOnly: fidState.Path == "/queen/ctl",
	}
	if err := policy.CanOpen(conn.Session.Claims, fidState.Path, req.Mode, attrs); err != nil {
		h.Metrics.RecordDenied(false)
		return 0, nil, err
	}
	if err := node.Open(req.Mode); err != nil {
		return 0, nil, err
	}
	if err := conn.Session.Fids.SetOpen(req.Fid, req.Mode); err != nil {
		return 0, nil, err
	}
	return wire.Ropen, wire.EncodeRopen(wire.RopenMsg{Qid: node.Qid(), IOUnit: conn.Session.Msize - wire.HeaderLen}), nil
}

func (h *Hive) handleRead(conn *Conn, body []byte) (wire.MType, []byte, error) {
	req, err := wire.DecodeTread(body)
	if err != nil {
		return 0, nil, err
	}
	fidState, err := conn.Session.Fids.Get(req.Fid)
	if err != nil {
		return 0, nil, err
	}
	if !fidState.Opened {
		return 0, nil, errcode.New("read", errcode.Invalid, "fid not opened")
	}
	if err := conn.Session.Budget.ConsumeOp(0); err != nil {
		h.Metrics.RecordDenied(true)
		return 0, nil, err
	}
	node, err := h.lookup(conn.Session, fidState.Path)
	if err != nil {
		return 0, nil, err
	}
	count := req.Count
	// An Rread frame carries the header and a 4-byte length ahead of
	// the data, so the data is clamped to keep the reply within msize.
	if limit := conn.Session.Msize - wire.HeaderLen - 4; count > limit {
		count = limit
	}
	buf := make([]byte, count)
	result, err := node.Read(fidState.Cursor, buf)
	if err != nil {
		h.Metrics.RecordRead(0, 0, false)
		return 0, nil, err
	}
	conn.Session.Fids.Advance(req.Fid, uint64(result.N))
	h.Metrics.RecordRead(uint64(result.N), 0, true)
	return wire.Rread, wire.EncodeRread(wire.RreadMsg{Data: buf[:result.N]}), nil
}

func (h *Hive) handleWrite(conn *Conn, body []byte) (wire.MType, []byte, error) {
	req, err := wire.DecodeTwrite(body)
	if err != nil {
		return 0, nil, err
	}
	fidState, err := conn.Session.Fids.Get(req.Fid)
	if err != nil {
		return 0, nil, err
	}
	if !fidState.Opened {
		return 0, nil, errcode.New("write", errcode.Invalid, "fid not opened")
	}
	if err := conn.Session.Budget.ConsumeOp(uint64(len(req.Data))); err != nil {
		h.Metrics.RecordDenied(true)
		return 0, nil, err
	}
	if err := h.policyGate(fidState.Path); err != nil {
		h.Metrics.RecordDenied(true)
		return 0, nil, err
	}
	node, err := h.lookup(conn.Session, fidState.Path)
	if err != nil {
		return 0, nil, err
	}
	n, err := node.Write(req.Data)
	if err != nil {
		h.Metrics.RecordWrite(0, 0, false)
		return 0, nil, err
	}
	conn.Session.Fids.Advance(req.Fid, uint64(n))
	h.Metrics.RecordWrite(uint64(n), 0, true)
	return wire.Rwrite, wire.EncodeRwrite(wire.RwriteMsg{Count: uint32(n)}), nil
}

func (h *Hive) handleClunk(conn *Conn, body []byte) (wire.MType, []byte, error) {
	req, err := wire.DecodeTclunk(body)
	if err != nil {
		return 0, nil, err
	}
	if _, err := conn.Session.Fids.Get(req.Fid); err != nil {
		return 0, nil, errcode.New("clunk", errcode.Closed, "fid already clunked")
	}
	conn.Session.Fids.Clunk(req.Fid)
	h.Metrics.ActiveFids.Add(^uint64(0))
	return wire.Rclunk, wire.EncodeRclunk(wire.RclunkMsg{}), nil
}

func (h *Hive) handleStat(conn *Conn, body []byte) (wire.MType, []byte, error) {
	req, err := wire.DecodeTstat(body)
	if err != nil {
		return 0, nil, err
	}
	fidState, err := conn.Session.Fids.Get(req.Fid)
	if err != nil {
		return 0, nil, err
	}
	node, err := h.lookup(conn.Session, fidState.Path)
	if err != nil {
		return 0, nil, err
	}
	stat := node.Stat()
	return wire.Rstat, wire.EncodeRstat(wire.RstatMsg{Data: []byte(stat.Name)}), nil
}

// lookup resolves path against the session's bind table, then the
// hive's static provider map, falling back to pattern-matched dynamic
// nodes (CAS epochs, action status, model weights).
func (h *Hive) lookup(sess *session.Session, path string) (provider.Node, error) {
	resolved, err := sess.Namespace.Resolve(path)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	node, ok := h.providers[resolved]
	h.mu.Unlock()
	if ok {
		return node, nil
	}
	return h.resolveDynamic(resolved)
}
