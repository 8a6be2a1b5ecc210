package hive

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/cohesix/ninedoor/internal/errcode"
	"github.com/cohesix/ninedoor/internal/provider"
	"github.com/cohesix/ninedoor/wire"
)

// register installs node at an absolute path. Boot-time registrations
// only; worker rings are added to the same map by spawnWorker, and
// CAS epoch files go through resolveDynamic instead.
func (h *Hive) register(path string, node provider.Node) {
	h.providers[path] = node
}

// bootNamespace binds every statically-known node into the static
// namespace table. Nodes that exist per-worker or per-epoch are
// created lazily by resolveDynamic/spawnWorker instead.
func (h *Hive) bootNamespace() {
	h.register("/proc/boot", provider.NewScalar(h.nextQid(wire.QTFile), "boot", []byte("ninedoor hive booted\n")))

	h.register("/proc/9p/outstanding", provider.NewCBORSummary(h.nextQid(wire.QTFile), "outstanding", func() (any, error) {
		return map[string]any{"active_sessions": h.Metrics.ActiveSessions.Load(), "active_fids": h.Metrics.ActiveFids.Load()}, nil
	}))
	h.register("/proc/9p/sessions.cbor", provider.NewCBORSummary(h.nextQid(wire.QTFile), "sessions", func() (any, error) {
		snap := h.Metrics.Snapshot(h.CurrentTick())
		return snap, nil
	}))
	h.register("/proc/9p/short_writes", provider.NewScalar(h.nextQid(wire.QTFile), "short_writes", []byte("0\n")))

	watchRing, _ := provider.NewRing(h.nextQid(wire.QTAppend), "ingest_watch", 4<<20)
	h.register("/proc/ingest/watch", watchRing)
	h.register("/proc/ingest/p50_ms", provider.NewScalar(h.nextQid(wire.QTFile), "p50_ms", []byte("0\n")))
	h.register("/proc/ingest/p95_ms", provider.NewScalar(h.nextQid(wire.QTFile), "p95_ms", []byte("0\n")))
	h.register("/proc/ingest/backpressure", provider.NewScalar(h.nextQid(wire.QTFile), "backpressure", []byte("0\n")))
	h.register("/proc/ingest/dropped", provider.NewScalar(h.nextQid(wire.QTFile), "dropped", []byte("0\n")))
	h.register("/proc/ingest/queued", provider.NewScalar(h.nextQid(wire.QTFile), "queued", []byte("0\n")))

	h.register("/queen/ctl", provider.NewControlSink(h.nextQid(wire.QTAppend), "queen_ctl", 256, h.Queen.Dispatch))
	h.register("/log/queen.log", provider.NewStream(h.nextQid(wire.QTAppend), "queen_log", 1<<20))

	h.register("/policy/ctl", provider.NewControlSink(h.nextQid(wire.QTAppend), "policy_ctl", 64, h.dispatchPolicyCtl))
	h.register("/policy/rules", provider.NewScalar(h.nextQid(wire.QTFile), "rules", []byte("{}\n")))
	h.register("/actions/queue", provider.NewCBORSummary(h.nextQid(wire.QTFile), "actions_queue", func() (any, error) {
		return map[string]any{"note": "enqueue via /policy/ctl"}, nil
	}))

	h.register("/audit/journal", provider.NewStream(h.nextQid(wire.QTAppend), "audit_journal", h.Manifest.Audit.CapBytes))
	h.register("/audit/decisions", provider.NewStream(h.nextQid(wire.QTAppend), "audit_decisions", h.Manifest.Audit.CapBytes))
	h.register("/audit/export", provider.NewCBORSummary(h.nextQid(wire.QTFile), "audit_export", func() (any, error) {
		return h.Audit.Records(), nil
	}))

	h.register("/replay/ctl", provider.NewControlSink(h.nextQid(wire.QTAppend), "replay_ctl", 8, h.dispatchReplayCtl))
	h.register("/replay/status", provider.NewCBORSummary(h.nextQid(wire.QTFile), "replay_status", func() (any, error) {
		state, result := h.Replay.Status()
		return map[string]any{"state": string(state), "hash": result.Hash, "count": result.Count}, nil
	}))

	h.register("/host/sidecar", provider.NewStream(h.nextQid(wire.QTAppend), "host_sidecar", uint64(h.Manifest.Host.BacklogLen)*4096))

	h.register("/gpu/status", provider.NewScalar(h.nextQid(wire.QTFile), "gpu_status", []byte("no bridge attached\n")))
}

// appendAudit writes one JSONL line to both the live Ledger (for
// replay) and the /audit/journal stream (for readers) — the ledger
// and the stream are kept in lockstep rather than one being derived
// from the other.
func (h *Hive) appendAudit(line []byte) {
	if _, err := h.Audit.Append(line); err != nil {
		h.Logger.Warn("audit ledger append failed", "err", err)
	}
	if n, ok := h.providers["/audit/journal"]; ok {
		_, _ = n.Write(append(append([]byte(nil), line...), '\n'))
	}
}

func (h *Hive) dispatchPolicyCtl(line []byte) error {
	var req struct {
		ID string `json:"id"`
		TargetPath string `json:"target_path"`
		Decision string `json:"decision"`
	}
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(line, &req); err != nil {
		return errcode.New("policy_ctl", errcode.Invalid, "malformed approval request")
	}
	return h.Approvals.Enqueue(req.ID, req.TargetPath, req.Decision)
}

// policyGate enforces the PolicyFS single-use approval check on a
// write to path: when the manifest disables policy gating, or path
// isn't gated, the write proceeds unchecked. A gated write with no
// queued approval for path — including the replay of an
// already-consumed one — is denied with a policy-gate line recorded
// both in the audit journal and in /log/queen.log, the surface a
// queen operator tails directly.
func (h *Hive) policyGate(path string) error {
	if !h.Manifest.Policy.Enable || path != "/queen/ctl" {
		return nil
	}
	approval, err := h.Approvals.ConsumeForPath(path)
	if err != nil {
		h.logPolicyGate(path, "", "denied")
		return err
	}
	h.logPolicyGate(path, approval.ID, "consumed")
	return nil
}

// logPolicyGate records one policy-gate line to the audit ledger/
// journal and to /log/queen.log.
func (h *Hive) logPolicyGate(path, approvalID, outcome string) {
	line := []byte(`{"kind":"policy-gate","target_path":"` + path + `","approval_id":"` + approvalID + `","outcome":"` + outcome + `"}`)
	h.appendAudit(line)
	if n, ok := h.providers["/log/queen.log"]; ok {
		_, _ = n.Write(append(append([]byte(nil), line...), '\n'))
	}
}

func (h *Hive) dispatchReplayCtl(line []byte) error {
	return h.Replay.Start(h.Audit.Records())
}
