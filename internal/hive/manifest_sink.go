package hive

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/cohesix/ninedoor/internal/cas"
	"github.com/cohesix/ninedoor/internal/errcode"
	"github.com/cohesix/ninedoor/internal/provider"
	"github.com/cohesix/ninedoor/wire"
)

// cborManifest is the wire shape of /updates/<epoch>/manifest.cbor,
// decoded and handed to cas.Epoch.DeclareManifest. Ed25519 keys and
// signatures travel as raw byte strings inside the CBOR map.
type cborManifest struct {
	Epoch string `cbor:"epoch"`
	BaseEpoch string `cbor:"base_epoch,omitempty"`
	DeltaBaseSHA256 string `cbor:"delta_base_sha256,omitempty"`
	ChunkHashes []string `cbor:"chunks"`
	Algorithm string `cbor:"algorithm"`
	Signature []byte `cbor:"signature"`
	PublicKey []byte `cbor:"public_key"`
	ChunkBytes uint64 `cbor:"chunk_bytes,omitempty"`
	PayloadBytes uint64 `cbor:"payload_bytes,omitempty"`
	PayloadSHA256 string `cbor:"payload_sha256,omitempty"`
}

// CASManifestSink is the write-only node behind
// /updates/<epoch>/manifest.cbor: one CBOR-encoded manifest per
// write, handed whole to the epoch's state machine.
type CASManifestSink struct {
	qid wire.Qid
	name string
	epoch *cas.Epoch
}

// NewCASManifestSink returns a sink bound to epoch.
func NewCASManifestSink(qid wire.Qid, name string, epoch *cas.Epoch) *CASManifestSink {
	return &CASManifestSink{qid: qid, name: name, epoch: epoch}
}

func (s *CASManifestSink) Qid() wire.Qid { return s.qid }
func (s *CASManifestSink) Kind() provider.Kind { return provider.KindControlSink }

func (s *CASManifestSink) Open(mode wire.OpenMode) error {
	if mode.Readable() {
		return errcode.New("cas_manifest_open", errcode.Permission, "manifest sink is write-only")
	}
	return nil
}

func (s *CASManifestSink) Read(uint64, []byte) (provider.ReadResult, error) {
	return provider.ReadResult{}, errcode.New("cas_manifest_read", errcode.Permission, "manifest sink is write-only")
}

// Write decodes the complete CBOR manifest document in p (manifests
// are small and written in a single frame, unlike chunk data) and
// declares it against the bound epoch.
func (s *CASManifestSink) Write(p []byte) (int, error) {
	var m cborManifest
	if err := cbor.Unmarshal(p, &m); err != nil {
		return 0, errcode.New("cas_manifest_write", errcode.Invalid, "malformed manifest CBOR")
	}
	err := s.epoch.DeclareManifest(cas.Manifest{
		Epoch: m.Epoch,
		BaseEpoch: m.BaseEpoch,
		DeltaBaseSHA256: m.DeltaBaseSHA256,
		ChunkHashes: m.ChunkHashes,
		Algorithm: m.Algorithm,
		Signature: m.Signature,
		PublicKey: m.PublicKey,
		ChunkBytes: m.ChunkBytes,
		PayloadBytes: m.PayloadBytes,
		PayloadSHA256: m.PayloadSHA256,
	})
	if err != nil {
		return 0, errcode.Wrap("cas_manifest_write", err)
	}
	return len(p), nil
}

func (s *CASManifestSink) Stat() provider.Stat {
	return provider.Stat{Qid: s.qid, Name: s.name}
}
