// Package constants holds the manifest-declared defaults and
// protocol-fixed bounds shared across NineDoor's layers.
package constants

import "time"

// Protocol-fixed bounds. These are contractual: the manifest
// may tighten them per hive but may never loosen them.
const (
	// MaxMsize is the hard ceiling on negotiated msize.
	MaxMsize = 8192

	// MaxWalkDepth is the maximum number of path components in a single walk.
	MaxWalkDepth = 8

	// MaxPathComponent is the maximum byte length of one path component.
	MaxPathComponent = 255

	// MaxScopesPerTicket bounds the scopes array in TicketClaims.
	MaxScopesPerTicket = 8

	// MaxScopePathLen bounds each scope's path string.
	MaxScopePathLen = 128

	// NoTag marks "no tag" (never a valid pipelined request tag).
	NoTag uint16 = 0xFFFF

	// NoFid marks "no fid".
	NoFid uint32 = 0xFFFFFFFF
)

// Defaults for manifest fields when a hive's manifest omits them.
const (
	// DefaultMsize is the default negotiated frame size, clamped to MaxMsize.
	DefaultMsize = MaxMsize

	// DefaultTagsPerSession is the default pipelined-tag window.
	DefaultTagsPerSession = 64

	// DefaultRingBytesPerWorker is the default per-worker telemetry ring size (4MiB).
	DefaultRingBytesPerWorker = 4 << 20

	// MinRingBytesPerWorker and MaxRingBytesPerWorker bound the manifest's
	// declared ring size; both must be powers of two.
	MinRingBytesPerWorker = 4 << 20
	MaxRingBytesPerWorker = 16 << 20

	// DefaultCASChunkBytes is the default CAS chunk size.
	DefaultCASChunkBytes = 64 << 10

	// DefaultWatchMinIntervalMs bounds how often /proc/ingest/watch may emit.
	DefaultWatchMinIntervalMs = 250

	// DefaultAuditCapBytes bounds the audit journal before eviction.
	DefaultAuditCapBytes = 8 << 20

	// DefaultHostBacklogLen bounds queued /host/* writes while the sidecar is offline.
	DefaultHostBacklogLen = 64
)

// Tick is the cadence of one event pump iteration. It is not a
// protocol timeout; it only bounds how often TTL/quota sweeps run.
const Tick = 5 * time.Millisecond
