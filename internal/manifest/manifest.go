// Package manifest implements the compiler-produced configuration
// consumer of bounds, shards, rings, quotas, and feature gates loaded
// at boot and bound to providers: turning public, possibly-zero-valued
// fields into a checked, fully-populated configuration.
package manifest

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/cohesix/ninedoor/internal/constants"
	"github.com/cohesix/ninedoor/internal/errcode"
)

// Bounds are the hard limits calls contractual.
type Bounds struct {
	Msize uint32 `json:"msize"`
	WalkDepth int `json:"walk_depth"`
	PathComponentMax int `json:"path_component_max"`
	TagsPerSession int `json:"tags_per_session"`
	MaxScopesPerTicket int `json:"max_scopes_per_ticket"`
	MaxScopePathLen int `json:"max_scope_path_len"`
}

// ShardConfig controls /shard/<hh>/worker/<id> routing.
type ShardConfig struct {
	Enabled bool `json:"enabled"`
	LegacyAlias bool `json:"legacy_alias"`
}

// RingConfig bounds telemetry ring sizing.
type RingConfig struct {
	BytesPerWorker uint64 `json:"bytes_per_worker"`
}

// CASConfig bounds the content-addressed store.
type CASConfig struct {
	ChunkBytes uint64 `json:"chunk_bytes"`
}

// ProcConfig bounds /proc observability emission.
type ProcConfig struct {
	WatchMinIntervalMs uint64 `json:"watch_min_interval_ms"`
}

// AuditConfig bounds the audit ledger.
type AuditConfig struct {
	CapBytes uint64 `json:"cap_bytes"`
}

// HostConfig bounds the host sidecar write backlog.
type HostConfig struct {
	BacklogLen int `json:"backlog_len"`
}

// FeatureGates toggles optional surfaces.
type FeatureGates struct {
	CBORTelemetry bool `json:"cbor_telemetry"`
	GPUMirror bool `json:"gpu_mirror"`
	PrometheusMirror bool `json:"prometheus_mirror"`
}

// PolicyConfig gates the PolicyFS single-use approval check on
// writes to queen-only control sinks.
type PolicyConfig struct {
	Enable bool `json:"enable"`
}

// Manifest is the fully-loaded boot-time configuration.
type Manifest struct {
	Bounds Bounds `json:"bounds"`
	Shard ShardConfig `json:"shard"`
	Ring RingConfig `json:"ring"`
	CAS CASConfig `json:"cas"`
	Proc ProcConfig `json:"proc"`
	Audit AuditConfig `json:"audit"`
	Host HostConfig `json:"host"`
	Features FeatureGates `json:"features"`
	Policy PolicyConfig `json:"policy"`
}

// DefaultManifest returns the contractual defaults for every bound.
func DefaultManifest() Manifest {
	return Manifest{
		Bounds: Bounds{
			Msize: constants.MaxMsize,
			WalkDepth: constants.MaxWalkDepth,
			PathComponentMax: constants.MaxPathComponent,
			TagsPerSession: constants.DefaultTagsPerSession,
			MaxScopesPerTicket: constants.MaxScopesPerTicket,
			MaxScopePathLen: constants.MaxScopePathLen,
		},
		Shard: ShardConfig{Enabled: false, LegacyAlias: true},
		Ring: RingConfig{BytesPerWorker: constants.DefaultRingBytesPerWorker},
		CAS: CASConfig{ChunkBytes: constants.DefaultCASChunkBytes},
		Proc: ProcConfig{WatchMinIntervalMs: constants.DefaultWatchMinIntervalMs},
		Audit: AuditConfig{CapBytes: constants.DefaultAuditCapBytes},
		Host: HostConfig{BacklogLen: constants.DefaultHostBacklogLen},
	}
}

// Parse decodes a JSON manifest document, filling unset fields from
// DefaultManifest before validating bounds.
func Parse(data []byte) (Manifest, error) {
	m := DefaultManifest()
	if len(data) > 0 {
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &m); err != nil {
			return Manifest{}, errcode.New("manifest_parse", errcode.Invalid, "malformed manifest JSON")
		}
	}
	if err := Validate(m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Validate checks a manifest's bounds against contractual limits,
// field by field, before it is bound to providers.
func Validate(m Manifest) error {
	if m.Bounds.Msize == 0 || m.Bounds.Msize > constants.MaxMsize {
		return errcode.New("manifest_validate", errcode.Invalid, "msize out of bounds")
	}
	if m.Bounds.WalkDepth <= 0 || m.Bounds.WalkDepth > constants.MaxWalkDepth {
		return errcode.New("manifest_validate", errcode.Invalid, "walk_depth out of bounds")
	}
	if m.Bounds.TagsPerSession < 1 {
		return errcode.New("manifest_validate", errcode.Invalid, "tags_per_session must be >= 1")
	}
	if m.Bounds.MaxScopesPerTicket <= 0 || m.Bounds.MaxScopesPerTicket > constants.MaxScopesPerTicket {
		return errcode.New("manifest_validate", errcode.Invalid, "max_scopes_per_ticket out of bounds")
	}
	if !isPowerOfTwo(m.Ring.BytesPerWorker) || m.Ring.BytesPerWorker < constants.MinRingBytesPerWorker || m.Ring.BytesPerWorker > constants.MaxRingBytesPerWorker {
		return errcode.New("manifest_validate", errcode.Invalid, "ring.bytes_per_worker must be a power of two in [4MiB, 16MiB]")
	}
	if m.CAS.ChunkBytes == 0 || m.CAS.ChunkBytes > uint64(m.Bounds.Msize) {
		return errcode.New("manifest_validate", errcode.Invalid, "cas.chunk_bytes must be non-zero and <= msize")
	}
	return nil
}

func isPowerOfTwo(n uint64) bool { return n != 0 && n&(n-1) == 0 }
