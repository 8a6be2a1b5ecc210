// Package cas implements the content-addressed chunk store: a
// manifest-declared set of SHA-256-verified chunks, gated by an
// Ed25519 signature, progressing through a fixed epoch state
// machine. The canonical manifest encoding uses the same fixed
// field order, length-prefixed strings shape as the ticket
// package's MAC payload encoding, applied here to a signature
// payload instead.
package cas

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"sync"

	"github.com/cohesix/ninedoor/internal/errcode"
)

// State is one stage of an epoch's lifecycle.
type State uint8

const (
	StateEmpty State = iota
	StateManifestPending
	StateChunksPending
	StateReady
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateManifestPending:
		return "manifest_pending"
	case StateChunksPending:
		return "chunks_pending"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Manifest is the queen-declared description of one epoch's chunk
// set, signed by the host compiler's manifest key. PayloadSHA256,
// ChunkBytes, and PayloadBytes are declared commitments checked
// against the actually-committed chunk data before the epoch may
// reach StateReady; DeltaBaseSHA256 is the same check against a named
// BaseEpoch's own committed payload, for a delta manifest.
type Manifest struct {
	Epoch string
	BaseEpoch string // non-empty for a delta epoch
	DeltaBaseSHA256 string // must equal BaseEpoch's committed PayloadSHA256
	ChunkHashes []string
	Algorithm string // only "ed25519" is implemented
	Signature []byte
	PublicKey ed25519.PublicKey
	ChunkBytes uint64 // per-chunk size bound; 0 means unbounded
	PayloadBytes uint64 // declared total committed size; 0 means unchecked
	PayloadSHA256 string // declared sha256 over committed chunk data in ChunkHashes order; "" means unchecked
}

func canonicalEncode(m Manifest) []byte {
	buf := make([]byte, 0, 256)
	putStr := func(s string) {
		var l [2]byte
		binary.LittleEndian.PutUint16(l[:], uint16(len(s)))
		buf = append(buf, l[:]...)
		buf = append(buf, s...)
	}
	putStr(m.Epoch)
	putStr(m.BaseEpoch)
	putStr(m.DeltaBaseSHA256)
	putStr(m.PayloadSHA256)
	var sizes [16]byte
	binary.LittleEndian.PutUint64(sizes[0:8], m.ChunkBytes)
	binary.LittleEndian.PutUint64(sizes[8:16], m.PayloadBytes)
	buf = append(buf, sizes[:]...)
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(m.ChunkHashes)))
	buf = append(buf, n[:]...)
	for _, h := range m.ChunkHashes {
		putStr(h)
	}
	return buf
}

// verifySignature checks m.Signature over m's canonical encoding,
// rejecting any algorithm other than "ed25519" (the only one
// currently implemented).
func verifySignature(m Manifest) error {
	if m.Algorithm != "ed25519" {
		return errcode.New("cas_manifest", errcode.Invalid, "unsupported signature algorithm")
	}
	if len(m.PublicKey) != ed25519.PublicKeySize {
		return errcode.New("cas_manifest", errcode.Invalid, "malformed public key")
	}
	if !ed25519.Verify(m.PublicKey, canonicalEncode(m), m.Signature) {
		return errcode.New("cas_manifest", errcode.Invalid, "manifest signature verification failed")
	}
	return nil
}

type chunkSlot struct {
	data []byte
	present bool
}

// Epoch is one CAS epoch's live state: its manifest (once declared)
// and the chunk data accumulated toward it.
type Epoch struct {
	mu sync.Mutex
	state State
	manifest Manifest
	chunks map[string]*chunkSlot
	order []string
	store *Store // for resolving BaseEpoch on a delta manifest; nil in tests that build an Epoch standalone
}

// NewEpoch returns an epoch with no manifest declared, resolving any
// delta BaseEpoch through store (nil disables delta verification).
func NewEpoch(store *Store) *Epoch {
	return &Epoch{chunks: make(map[string]*chunkSlot), store: store}
}

// State returns the epoch's current lifecycle stage.
func (e *Epoch) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// DeclareManifest verifies and installs m, moving Empty -> ChunksPending
// (there is no data-independent ManifestPending stage to linger in
// once the signature checks out; a failed signature leaves the epoch
// in ManifestPending so the caller can observe the rejected attempt).
func (e *Epoch) DeclareManifest(m Manifest) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateEmpty {
		return errcode.New("cas_declare", errcode.Invalid, "manifest already declared for this epoch")
	}
	e.state = StateManifestPending
	if err := verifySignature(m); err != nil {
		return err
	}
	chunks := make(map[string]*chunkSlot, len(m.ChunkHashes))
	order := make([]string, 0, len(m.ChunkHashes))
	for _, h := range m.ChunkHashes {
		if _, dup := chunks[h]; dup {
			continue
		}
		chunks[h] = &chunkSlot{}
		order = append(order, h)
	}
	e.manifest = m
	e.chunks = chunks
	e.order = order
	e.state = StateChunksPending
	if len(order) == 0 {
		return e.tryReadyLocked()
	}
	return nil
}

// tryReadyLocked checks the payload and delta-base commitments
// declared in e.manifest against what has actually been committed,
// promoting to StateReady only when every declared check passes.
// Caller must hold e.mu; on error the epoch stays StateChunksPending.
func (e *Epoch) tryReadyLocked() error {
	if e.manifest.PayloadBytes != 0 {
		var total uint64
		for _, h := range e.order {
			total += uint64(len(e.chunks[h].data))
		}
		if total != e.manifest.PayloadBytes {
			return errcode.New("cas_ready", errcode.Invalid, "committed payload size does not match declared payload_bytes")
		}
	}
	if e.manifest.PayloadSHA256 != "" {
		if got := e.payloadSHA256Locked(); got != e.manifest.PayloadSHA256 {
			return errcode.New("cas_ready", errcode.Invalid, "committed payload hash does not match declared payload_sha256")
		}
	}
	if e.manifest.BaseEpoch != "" {
		if e.manifest.BaseEpoch == e.manifest.Epoch {
			return errcode.New("cas_ready", errcode.Invalid, "delta epoch cannot base on itself")
		}
		if e.store == nil {
			return errcode.New("cas_ready", errcode.Invalid, "delta epoch has no store bound to verify its base")
		}
		base := e.store.peek(e.manifest.BaseEpoch)
		if base == nil || base.State() != StateReady {
			return errcode.New("cas_ready", errcode.Invalid, "delta base epoch is not ready")
		}
		if base.PayloadSHA256() != e.manifest.DeltaBaseSHA256 {
			return errcode.New("cas_ready", errcode.Invalid, "delta base_sha256 does not match base epoch's committed payload")
		}
	}
	e.state = StateReady
	return nil
}

// payloadSHA256Locked hashes every committed chunk's data, concatenated
// in manifest order. Caller must hold e.mu.
func (e *Epoch) payloadSHA256Locked() string {
	h := sha256.New()
	for _, hash := range e.order {
		h.Write(e.chunks[hash].data)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// PayloadSHA256 returns the sha256 over every committed chunk's data,
// concatenated in manifest order. Meaningful once State() == StateReady;
// a not-yet-ready epoch returns the hash of whatever has landed so far.
func (e *Epoch) PayloadSHA256() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.payloadSHA256Locked()
}

// ChunksCommitted reports how many of the manifest's declared chunks
// have landed so far.
func (e *Epoch) ChunksCommitted() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, h := range e.order {
		if e.chunks[h].present {
			n++
		}
	}
	return n
}

// IsPendingHash reports whether hash is declared and not yet present,
// the lookup policy.CanCreate needs to gate chunk-write admission.
func (e *Epoch) IsPendingHash(hash string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	slot, ok := e.chunks[hash]
	return ok && !slot.present && e.state == StateChunksPending
}

// PutChunk verifies data against hash (a lowercase hex SHA-256 digest)
// and, if it matches a declared pending hash, stores it. The epoch
// becomes Ready once every declared chunk is present.
func (e *Epoch) PutChunk(hash string, data []byte) error {
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != hash {
		return errcode.New("cas_put_chunk", errcode.Invalid, "chunk hash mismatch")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateChunksPending {
		return errcode.New("cas_put_chunk", errcode.Invalid, "epoch is not accepting chunks")
	}
	if e.manifest.ChunkBytes != 0 && uint64(len(data)) > e.manifest.ChunkBytes {
		return errcode.New("cas_put_chunk", errcode.TooBig, "chunk exceeds declared chunk_bytes")
	}
	slot, ok := e.chunks[hash]
	if !ok {
		return errcode.New("cas_put_chunk", errcode.Permission, "hash not declared in manifest")
	}
	if slot.present {
		return nil
	}
	slot.data = append([]byte(nil), data...)
	slot.present = true
	for _, h := range e.order {
		if !e.chunks[h].present {
			return nil
		}
	}
	return e.tryReadyLocked()
}

// GetChunk returns a previously-committed chunk's bytes.
func (e *Epoch) GetChunk(hash string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	slot, ok := e.chunks[hash]
	if !ok || !slot.present {
		return nil, errcode.New("cas_get_chunk", errcode.NotFound, "chunk not present")
	}
	return slot.data, nil
}

// ManifestEqual does a constant-time comparison of two signatures,
// used by replay/audit code that must compare manifests without
// branching on byte position.
func ManifestEqual(a, b []byte) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare(a, b) == 1
}
