package hive

import (
	"fmt"
	"strings"

	"github.com/cohesix/ninedoor/internal/cas"
	"github.com/cohesix/ninedoor/internal/constants"
	"github.com/cohesix/ninedoor/internal/errcode"
	"github.com/cohesix/ninedoor/internal/namespace"
	"github.com/cohesix/ninedoor/internal/provider"
	"github.com/cohesix/ninedoor/internal/queenctl"
	"github.com/cohesix/ninedoor/wire"
)

// spawnWorker implements the queen-ctl spawn verb: allocate a fresh
// sequential worker id, its telemetry ring, and register both its
// canonical shard path and (when the manifest enables it) the legacy
// unsharded alias. If ticks > 0 it also emits that many CBOR Frame v1
// telemetry records so a reader attached immediately after spawn
// observes live data rather than an empty ring.
func (h *Hive) spawnWorker(role string, ticks int, budget queenctl.Budget) (string, error) {
	h.mu.Lock()
	h.nextWorkerSeq++
	workerID := fmt.Sprintf("worker-%d", h.nextWorkerSeq)
	ring, err := provider.NewRing(h.nextQidLocked(wire.QTAppend), "telemetry:"+workerID, h.Manifest.Ring.BytesPerWorker)
	if err != nil {
		h.mu.Unlock()
		return "", errcode.Wrap("spawn", err)
	}
	h.workers[workerID] = ring

	shardPath := fmt.Sprintf("/shard/%s/worker/%s/telemetry", namespace.ShardKey(workerID), workerID)
	h.providers[shardPath] = ring
	if h.Manifest.Shard.LegacyAlias {
		h.providers[fmt.Sprintf("/worker/%s/telemetry", workerID)] = ring
	}
	tick := h.tick
	h.mu.Unlock()

	emittedMs := tick * uint64(constants.Tick.Milliseconds())
	for i := uint64(1); i <= uint64(ticks); i++ {
		frame, err := provider.EncodeTelemetryFrame(workerID, role, i, emittedMs, nil)
		if err != nil {
			return workerID, errcode.Wrap("spawn", err)
		}
		if _, err := ring.Write(frame); err != nil {
			return workerID, errcode.Wrap("spawn", err)
		}
	}
	h.Logger.Info("worker spawned", "worker_id", workerID, "role", role, "ticks", ticks, "budget_ttl_s", budget.TTLSeconds, "shard", namespace.ShardKey(workerID))
	return workerID, nil
}

// killWorker destroys a worker's ring after writing a final END
// sentinel so any reader mid-tail observes termination rather than
// silence.
func (h *Hive) killWorker(workerID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	ring, ok := h.workers[workerID]
	if !ok {
		return errcode.New("kill", errcode.NotFound, "unknown worker")
	}
	_, _ = ring.Write([]byte("END"))
	delete(h.workers, workerID)
	delete(h.providers, fmt.Sprintf("/shard/%s/worker/%s/telemetry", namespace.ShardKey(workerID), workerID))
	delete(h.providers, fmt.Sprintf("/worker/%s/telemetry", workerID))
	h.Logger.Info("worker killed", "worker_id", workerID)
	return nil
}

// bindGlobal backs the queen-ctl bind verb. The shared queen
// dispatcher carries no session context, so there is no session mount
// table to bind into: every bind written to /queen/ctl reaches this
// hook and is reported Invalid.
func (h *Hive) bindGlobal(from, to string) error {
	return errcode.New("bind", errcode.Invalid, "bind requires an active session; use the session-scoped dispatcher")
}

// mountService installs a named service at an absolute path, visible
// to every session.
func (h *Hive) mountService(service, at string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if node, ok := h.providers[service]; ok {
		h.providers[at] = node
		return nil
	}
	return errcode.New("mount", errcode.NotFound, "unknown service")
}

// nextQidLocked is nextQid's lock-already-held variant, used by
// callers that already hold h.mu (spawnWorker does, to keep ring
// creation and registration atomic).
func (h *Hive) nextQidLocked(t wire.QidType) wire.Qid {
	h.nextQidPath++
	return wire.Qid{Type: t, Version: 0, Path: h.nextQidPath}
}

// resolveDynamic looks up a path that isn't in the static provider
// map but follows a known pattern: CAS epoch files, action status,
// and model weights served straight out of a ready CAS epoch.
func (h *Hive) resolveDynamic(path string) (provider.Node, error) {
	switch {
	case strings.HasPrefix(path, "/updates/"):
		return h.resolveUpdatesPath(path)
	case strings.HasPrefix(path, "/actions/") && strings.HasSuffix(path, "/status"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/actions/"), "/status")
		return h.actionStatusNode(id), nil
	case strings.HasPrefix(path, "/models/"):
		return h.resolveModelsPath(path)
	case strings.HasPrefix(path, "/gpu/"):
		return h.resolveGPUPath(path)
	}
	return nil, errcode.NewPath("resolve", path, errcode.NotFound, "no provider bound at this path")
}

// resolveUpdatesPath handles /updates/<epoch>/manifest.cbor,
// /updates/<epoch>/status(.cbor), and /updates/<epoch>/chunks/<hash>.
func (h *Hive) resolveUpdatesPath(path string) (provider.Node, error) {
	rest := strings.TrimPrefix(path, "/updates/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) < 2 {
		return nil, errcode.NewPath("resolve", path, errcode.NotFound, "incomplete updates path")
	}
	epochID, leaf := parts[0], parts[1]
	epoch := h.CAS.Epoch(epochID)

	switch {
	case leaf == "manifest.cbor":
		h.mu.Lock()
		defer h.mu.Unlock()
		key := "manifest:" + epochID
		if sink, ok := h.manifestSinks[key]; ok {
			return sink, nil
		}
		sink := NewCASManifestSink(h.nextQidLocked(wire.QTFile), leaf, epoch)
		h.manifestSinks[key] = sink
		return sink, nil
	case leaf == "status" || leaf == "status.cbor":
		h.mu.Lock()
		defer h.mu.Unlock()
		key := "status:" + epochID
		if node, ok := h.statusNodes[key]; ok {
			return node, nil
		}
		node := provider.NewCBORSummary(h.nextQidLocked(wire.QTFile), leaf, func() (any, error) {
			summary := map[string]any{
				"epoch": epochID,
				"state": epoch.State().String(),
				"chunks_committed": epoch.ChunksCommitted(),
			}
			if epoch.State() == cas.StateReady {
				summary["payload_sha256"] = epoch.PayloadSHA256()
			}
			return summary, nil
		})
		h.statusNodes[key] = node
		return node, nil
	case strings.HasPrefix(leaf, "chunks/"):
		hash := strings.TrimPrefix(leaf, "chunks/")
		h.mu.Lock()
		defer h.mu.Unlock()
		key := "chunk:" + epochID + ":" + hash
		if node, ok := h.providers[key]; ok {
			return node, nil
		}
		node := provider.NewCASChunk(h.nextQidLocked(wire.QTFile), leaf, epoch, hash, int(h.Manifest.CAS.ChunkBytes))
		h.providers[key] = node
		return node, nil
	}
	return nil, errcode.NewPath("resolve", path, errcode.NotFound, "unknown updates leaf")
}

// actionStatusNode returns (creating if necessary) the CBOR summary
// node mirroring a PolicyFS approval's queued/consumed lifecycle.
func (h *Hive) actionStatusNode(id string) provider.Node {
	h.mu.Lock()
	defer h.mu.Unlock()
	if node, ok := h.actionNodes[id]; ok {
		return node
	}
	node := provider.NewCBORSummary(h.nextQidLocked(wire.QTFile), id+":status", func() (any, error) {
		status, err := h.Approvals.Status(id)
		if err != nil {
			return map[string]any{"state": "unknown"}, nil
		}
		return map[string]any{"state": string(status)}, nil
	})
	h.actionNodes[id] = node
	return node
}

// resolveModelsPath serves /models/<hash>/weights read-only from
// whichever ready CAS epoch committed that hash; schema/signature are
// not yet populated by any epoch writer, so they report NotFound
// rather than a fabricated value.
func (h *Hive) resolveModelsPath(path string) (provider.Node, error) {
	rest := strings.TrimPrefix(path, "/models/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) < 2 || parts[1] != "weights" {
		return nil, errcode.NewPath("resolve", path, errcode.NotFound, "only weights is served under /models")
	}
	hash := parts[0]
	for _, epochID := range h.CAS.Epochs() {
		epoch := h.CAS.Epoch(epochID)
		if epoch.State() != cas.StateReady {
			continue
		}
		if data, err := epoch.GetChunk(hash); err == nil {
			return provider.NewScalar(h.nextQid(wire.QTFile), "weights", data), nil
		}
	}
	return nil, errcode.NewPath("resolve", path, errcode.NotFound, "hash not present in any ready epoch")
}

// resolveGPUPath stands in for the out-of-core gpu-bridge-host
// collaborator: every surface reports Busy except a static info
// scalar, since no bridge is ever attached in-core.
func (h *Hive) resolveGPUPath(path string) (provider.Node, error) {
	rest := strings.TrimPrefix(path, "/gpu/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) < 2 {
		return nil, errcode.NewPath("resolve", path, errcode.NotFound, "incomplete gpu path")
	}
	id, leaf := parts[0], parts[1]
	if leaf == "info" {
		return provider.NewScalar(h.nextQid(wire.QTFile), "info", []byte("gpu "+id+": no bridge attached\n")), nil
	}
	return nil, errcode.NewPath("resolve", path, errcode.Busy, "gpu bridge not attached")
}
