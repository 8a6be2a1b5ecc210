package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/cohesix/ninedoor/internal/cas"
	"github.com/cohesix/ninedoor/internal/errcode"
	"github.com/cohesix/ninedoor/wire"
)

func TestCASChunkCommitsOnReachingExpectedSize(t *testing.T) {
	epoch := cas.NewEpoch(nil)
	data := []byte("0123456789abcdef")
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	if err := epoch.DeclareManifest(cas.Manifest{Epoch: "e1", ChunkHashes: []string{hash}, Algorithm: "none-for-test"}); err == nil {
		t.Fatalf("expected unsigned manifest to fail verification")
	}

	node := NewCASChunk(wire.Qid{}, "chunks/"+hash, epoch, hash, len(data))
	n, err := node.Write(data[:8])
	if err != nil {
		t.Fatalf("partial write: %v", err)
	}
	if n != 8 {
		t.Fatalf("expected 8 bytes accepted, got %d", n)
	}
	if node.committed {
		t.Fatalf("should not commit before reaching expected size")
	}
	// The manifest declaration above deliberately failed verification,
	// so the epoch is not accepting chunks and PutChunk rejects the
	// commit as Invalid; confirm that failure surfaces as the
	// chunk-write error rather than a panic.
	if _, err := node.Write(data[8:]); errcode.CodeOf(err) != errcode.Invalid {
		t.Fatalf("expected Invalid for an epoch not accepting chunks, got %v", err)
	}
}

func TestCASChunkRejectsOversizeWrite(t *testing.T) {
	epoch := cas.NewEpoch(nil)
	node := NewCASChunk(wire.Qid{}, "chunks/x", epoch, "deadbeef", 4)
	if _, err := node.Write([]byte("toolong")); errcode.CodeOf(err) != errcode.TooBig {
		t.Fatalf("expected TooBig, got %v", err)
	}
}
