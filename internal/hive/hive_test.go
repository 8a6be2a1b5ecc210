package hive

import (
	"bytes"
	"testing"

	"github.com/cohesix/ninedoor/internal/errcode"
	"github.com/cohesix/ninedoor/internal/manifest"
	"github.com/cohesix/ninedoor/internal/provider"
	"github.com/cohesix/ninedoor/internal/queenctl"
	"github.com/cohesix/ninedoor/internal/ticket"
	"github.com/cohesix/ninedoor/wire"
)

var testKey = []byte("test-hive-key-0123456789abcdef0")

func newTestHive(t *testing.T) *Hive {
	t.Helper()
	m := manifest.DefaultManifest()
	return NewHive(Config{Manifest: m, TicketKey: testKey})
}

func queenTicket(t *testing.T, scopes []string) *ticket.Ticket {
	t.Helper()
	tk, err := ticket.Mint(testKey, ticket.Claims{
		Role:    ticket.RoleQueen,
		Subject: "queen-0",
		Scopes:  scopes,
		Budget:  ticket.Budget{TTLSeconds: 60, Ops: 100, Bytes: 1 << 20},
	})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	return tk
}

func rtrip(t *testing.T, conn *Conn, h *Hive, mtype wire.MType, tag wire.Tag, body []byte) (wire.FrameHeader, []byte) {
	t.Helper()
	frame := wire.EncodeFrame(mtype, tag, body)
	conn.Reader.Feed(frame)
	hdr, reqBody, ok, err := conn.Reader.Next()
	if err != nil || !ok {
		t.Fatalf("Next: ok=%v err=%v", ok, err)
	}
	reply := h.HandleFrame(conn, hdr, reqBody)
	rhdr, err := wire.DecodeFrameHeader(reply)
	if err != nil {
		t.Fatalf("DecodeFrameHeader: %v", err)
	}
	return rhdr, reply[wire.HeaderLen:]
}

func TestAttachWalkOpenWriteClunk(t *testing.T) {
	h := newTestHive(t)
	conn := NewConn("conn-1")
	tk := queenTicket(t, []string{"/queen/ctl", "/log/queen.log"})
	rawTicket, err := ticket.Encode(tk)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	rhdr, body := rtrip(t, conn, h, wire.Tversion, 0, wire.EncodeTversion(wire.TversionMsg{Msize: 1 << 16, Version: "9P2000.L"}))
	if rhdr.Type != wire.Rversion {
		t.Fatalf("expected Rversion, got %d", rhdr.Type)
	}
	_ = body

	rhdr, body = rtrip(t, conn, h, wire.Tattach, 1, wire.EncodeTattach(wire.TattachMsg{Fid: 0, Aname: "", Ticket: rawTicket}))
	if rhdr.Type != wire.Rattach {
		t.Fatalf("expected Rattach, got %d", rhdr.Type)
	}
	if conn.Session == nil {
		t.Fatalf("expected session to be set after attach")
	}

	rhdr, body = rtrip(t, conn, h, wire.Twalk, 2, wire.EncodeTwalk(wire.TwalkMsg{Fid: 0, NewFid: 1, Names: []string{"queen", "ctl"}}))
	if rhdr.Type != wire.Rwalk {
		t.Fatalf("expected Rwalk, got %d", rhdr.Type)
	}
	rwalk, err := wire.DecodeRwalk(body)
	if err != nil {
		t.Fatalf("DecodeRwalk: %v", err)
	}
	if len(rwalk.Qids) != 1 {
		t.Fatalf("expected walk to resolve /queen/ctl to a known qid, got %d qids", len(rwalk.Qids))
	}

	rhdr, _ = rtrip(t, conn, h, wire.Topen, 3, wire.EncodeTopen(wire.TopenMsg{Fid: 1, Mode: wire.OWRITE}))
	if rhdr.Type != wire.Ropen {
		t.Fatalf("expected Ropen, got %d", rhdr.Type)
	}

	line := []byte(`{"spawn":"heartbeat","ticks":0}` + "\n")
	rhdr, wbody := rtrip(t, conn, h, wire.Twrite, 4, wire.EncodeTwrite(wire.TwriteMsg{Fid: 1, Offset: 0, Data: line}))
	if rhdr.Type != wire.Rwrite {
		t.Fatalf("expected Rwrite, got %d", rhdr.Type)
	}
	rwrite, err := wire.DecodeRwrite(wbody)
	if err != nil {
		t.Fatalf("DecodeRwrite: %v", err)
	}
	if int(rwrite.Count) != len(line) {
		t.Fatalf("expected full write, got count=%d want=%d", rwrite.Count, len(line))
	}

	if _, ok := h.workers["worker-1"]; !ok {
		t.Fatalf("expected spawn verb to auto-allocate worker-1")
	}

	rhdr, _ = rtrip(t, conn, h, wire.Tclunk, 5, wire.EncodeTclunk(wire.TclunkMsg{Fid: 1}))
	if rhdr.Type != wire.Rclunk {
		t.Fatalf("expected Rclunk, got %d", rhdr.Type)
	}

	// A second clunk on the same fid must report Closed, not panic.
	rhdr, ebody := rtrip(t, conn, h, wire.Tclunk, 6, wire.EncodeTclunk(wire.TclunkMsg{Fid: 1}))
	if rhdr.Type != wire.Rerror {
		t.Fatalf("expected Rerror on double clunk, got %d", rhdr.Type)
	}
	rerr, err := wire.DecodeRerror(ebody)
	if err != nil {
		t.Fatalf("DecodeRerror: %v", err)
	}
	if rerr.Code != string(errcode.Closed) {
		t.Fatalf("expected Closed, got %s", rerr.Code)
	}
}

func TestAttachRejectsUnscopedOpen(t *testing.T) {
	h := newTestHive(t)
	conn := NewConn("conn-2")
	tk := queenTicket(t, []string{"/log/queen.log"})
	rawTicket, _ := ticket.Encode(tk)

	rtrip(t, conn, h, wire.Tversion, 0, wire.EncodeTversion(wire.TversionMsg{Msize: 1 << 16, Version: "9P2000.L"}))
	rtrip(t, conn, h, wire.Tattach, 1, wire.EncodeTattach(wire.TattachMsg{Fid: 0, Ticket: rawTicket}))
	rtrip(t, conn, h, wire.Twalk, 2, wire.EncodeTwalk(wire.TwalkMsg{Fid: 0, NewFid: 1, Names: []string{"queen", "ctl"}}))

	rhdr, ebody := rtrip(t, conn, h, wire.Topen, 3, wire.EncodeTopen(wire.TopenMsg{Fid: 1, Mode: wire.OWRITE}))
	if rhdr.Type != wire.Rerror {
		t.Fatalf("expected Rerror for out-of-scope open, got %d", rhdr.Type)
	}
	rerr, err := wire.DecodeRerror(ebody)
	if err != nil {
		t.Fatalf("DecodeRerror: %v", err)
	}
	if rerr.Code != string(errcode.Permission) {
		t.Fatalf("expected Permission, got %s", rerr.Code)
	}
}

func TestTremoveAlwaysPermission(t *testing.T) {
	h := newTestHive(t)
	conn := NewConn("conn-3")
	tk := queenTicket(t, []string{"/queen/ctl"})
	rawTicket, _ := ticket.Encode(tk)
	rtrip(t, conn, h, wire.Tversion, 0, wire.EncodeTversion(wire.TversionMsg{Msize: 1 << 16, Version: "9P2000.L"}))
	rtrip(t, conn, h, wire.Tattach, 1, wire.EncodeTattach(wire.TattachMsg{Fid: 0, Ticket: rawTicket}))

	rhdr, ebody := rtrip(t, conn, h, wire.Tremove, 2, wire.EncodeTclunk(wire.TclunkMsg{Fid: 0}))
	if rhdr.Type != wire.Rerror {
		t.Fatalf("expected Rerror for Tremove, got %d", rhdr.Type)
	}
	rerr, err := wire.DecodeRerror(ebody)
	if err != nil {
		t.Fatalf("DecodeRerror: %v", err)
	}
	if rerr.Code != string(errcode.Permission) {
		t.Fatalf("expected Permission, got %s", rerr.Code)
	}
}

func TestTickExpiresSessionBudget(t *testing.T) {
	h := newTestHive(t)
	tk := queenTicket(t, []string{"/queen/ctl"})
	tk.Claims.Budget.TTLSeconds = 0
	rawTicket, err := ticket.Encode(tk)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := ticket.Decode(rawTicket)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, err := h.Attach("conn-4", decoded, 1<<16); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	expired := h.Tick()
	if len(expired) != 1 || expired[0] != "conn-4" {
		t.Fatalf("expected conn-4 to expire immediately with zero TTL, got %v", expired)
	}
}

func TestMountServiceAliasesRegisteredPath(t *testing.T) {
	h := newTestHive(t)
	if err := h.mountService("/proc/boot", "/alias/boot"); err != nil {
		t.Fatalf("mountService: %v", err)
	}
	node, err := h.resolveDynamic("/alias/boot")
	if err == nil {
		t.Fatalf("expected resolveDynamic to miss an aliased static path (served from providers map directly), got node=%v", node)
	}
	h.mu.Lock()
	_, ok := h.providers["/alias/boot"]
	h.mu.Unlock()
	if !ok {
		t.Fatalf("expected /alias/boot to be registered in providers map")
	}
}

func TestMountServiceUnknownSource(t *testing.T) {
	h := newTestHive(t)
	if err := h.mountService("/no/such/service", "/alias/x"); errcode.CodeOf(err) != errcode.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestSpawnKillWorker(t *testing.T) {
	h := newTestHive(t)
	id, err := h.spawnWorker("heartbeat", 0, queenctl.Budget{})
	if err != nil {
		t.Fatalf("spawnWorker: %v", err)
	}
	if id != "worker-1" {
		t.Fatalf("expected first spawn to allocate worker-1, got %q", id)
	}
	second, err := h.spawnWorker("heartbeat", 0, queenctl.Budget{})
	if err != nil {
		t.Fatalf("spawnWorker second: %v", err)
	}
	if second != "worker-2" {
		t.Fatalf("expected second spawn to allocate worker-2, got %q", second)
	}
	if err := h.killWorker(id); err != nil {
		t.Fatalf("killWorker: %v", err)
	}
	if _, ok := h.workers[id]; ok {
		t.Fatalf("expected worker to be removed after kill")
	}
}

func TestSpawnEmitsRequestedTelemetryFrames(t *testing.T) {
	h := newTestHive(t)
	id, err := h.spawnWorker("heartbeat", 3, queenctl.Budget{TTLSeconds: 60})
	if err != nil {
		t.Fatalf("spawnWorker: %v", err)
	}
	ring := h.workers[id]
	buf := make([]byte, 4096)
	cursor := uint64(0)
	for want := uint64(1); want <= 3; want++ {
		result, err := ring.Read(cursor, buf)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		frame, err := provider.DecodeTelemetryFrame(buf[:result.N])
		if err != nil {
			t.Fatalf("DecodeTelemetryFrame: %v", err)
		}
		if frame.Seq != want {
			t.Fatalf("expected seq=%d, got %d", want, frame.Seq)
		}
		if frame.WorkerID != id || frame.Role != "heartbeat" {
			t.Fatalf("unexpected frame identity: %+v", frame)
		}
		cursor = result.NextCursor
	}
}

func TestBindGlobalAlwaysInvalid(t *testing.T) {
	h := newTestHive(t)
	if err := h.bindGlobal("/a", "/b"); errcode.CodeOf(err) != errcode.Invalid {
		t.Fatalf("expected Invalid, got %v", err)
	}
}

func TestPolicyGateDeniesWriteWithoutApproval(t *testing.T) {
	h := newTestHive(t)
	h.Manifest.Policy.Enable = true
	if err := h.policyGate("/queen/ctl"); errcode.CodeOf(err) != errcode.Permission {
		t.Fatalf("expected Permission for gated write without approval, got %v", err)
	}
	log := h.providers["/log/queen.log"]
	buf := make([]byte, 256)
	result, err := log.Read(0, buf)
	if err != nil {
		t.Fatalf("Read /log/queen.log: %v", err)
	}
	if !bytes.Contains(buf[:result.N], []byte("policy-gate")) {
		t.Fatalf("expected /log/queen.log to contain a policy-gate line, got %q", buf[:result.N])
	}
}

func TestPolicyGateConsumesQueuedApprovalOnce(t *testing.T) {
	h := newTestHive(t)
	h.Manifest.Policy.Enable = true
	if err := h.Approvals.Enqueue("a1", "/queen/ctl", "allow"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := h.policyGate("/queen/ctl"); err != nil {
		t.Fatalf("expected gated write to pass with a queued approval, got %v", err)
	}
	if err := h.policyGate("/queen/ctl"); errcode.CodeOf(err) != errcode.Permission {
		t.Fatalf("expected replay of the consumed approval to be Permission, got %v", err)
	}
}

func TestPolicyGateDisabledSkipsCheck(t *testing.T) {
	h := newTestHive(t)
	if err := h.policyGate("/queen/ctl"); err != nil {
		t.Fatalf("expected policy gate to be a no-op when disabled, got %v", err)
	}
}

func TestResolveGPUPathBusyExceptInfo(t *testing.T) {
	h := newTestHive(t)
	node, err := h.resolveDynamic("/gpu/0/info")
	if err != nil {
		t.Fatalf("resolveDynamic: %v", err)
	}
	buf := make([]byte, 256)
	result, err := node.Read(0, buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Contains(buf[:result.N], []byte("no bridge attached")) {
		t.Fatalf("expected info payload to mention no bridge attached, got %q", buf[:result.N])
	}

	if _, err := h.resolveDynamic("/gpu/0/bridge"); errcode.CodeOf(err) != errcode.Busy {
		t.Fatalf("expected Busy for unattached gpu leaf, got %v", err)
	}
}
