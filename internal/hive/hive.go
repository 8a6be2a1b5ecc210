// Package hive wires every other internal package into one running
// server: an explicit, dependency-injected state container, no hidden
// singletons. Nothing here is a package-level var; every field is
// constructed by NewHive and passed down explicitly through its
// constructor rather than through init-time globals.
package hive

import (
	"sync"

	"github.com/cohesix/ninedoor/internal/approval"
	"github.com/cohesix/ninedoor/internal/audit"
	"github.com/cohesix/ninedoor/internal/cas"
	"github.com/cohesix/ninedoor/internal/logging"
	"github.com/cohesix/ninedoor/internal/manifest"
	"github.com/cohesix/ninedoor/internal/policy"
	"github.com/cohesix/ninedoor/internal/proc"
	"github.com/cohesix/ninedoor/internal/provider"
	"github.com/cohesix/ninedoor/internal/queenctl"
	"github.com/cohesix/ninedoor/internal/session"
	"github.com/cohesix/ninedoor/internal/ticket"
	"github.com/cohesix/ninedoor/wire"
)

// Hive owns every piece of mutable server state. Its provider/session
// registries are mutated only from the pump goroutine; the mutex
// guards the rare cross-thread path — a transport goroutine handing
// off a freshly accepted connection before the pump has claimed it.
type Hive struct {
	mu sync.Mutex

	Manifest manifest.Manifest
	TicketKey []byte
	Logger *logging.Logger

	Metrics *proc.Metrics
	Watcher *proc.Watcher
	Audit *audit.Ledger
	Replay *audit.ReplaySession
	Approvals *approval.Gate
	CAS *cas.Store
	Queen *queenctl.Dispatcher

	sessions map[string]*session.Session
	providers map[string]provider.Node
	workers map[string]*provider.Ring

	manifestSinks map[string]*CASManifestSink
	statusNodes map[string]*provider.CBORSummary
	actionNodes map[string]*provider.CBORSummary

	nextQidPath uint64
	nextWorkerSeq uint64
	startTick uint64
	tick uint64

	trustRoot []byte // ed25519 public key from Config; not read by CAS manifest verification, which uses each manifest's embedded key
}

// Config bundles NewHive's inputs.
type Config struct {
	Manifest manifest.Manifest
	TicketKey []byte
	TrustRoot []byte
	Logger *logging.Logger
}

// NewHive constructs a hive and binds its static, manifest-declared
// namespace. Dynamic nodes (worker rings, CAS epochs) are created
// lazily by spawn/attach-time hooks.
func NewHive(cfg Config) *Hive {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	h := &Hive{
		Manifest: cfg.Manifest,
		TicketKey: cfg.TicketKey,
		Logger: logger,
		Metrics: proc.NewMetrics(0),
		Watcher: proc.NewWatcher(cfg.Manifest.Proc.WatchMinIntervalMs * ticksPerSecond / 1000),
		Audit: audit.NewLedger(cfg.Manifest.Audit.CapBytes),
		Replay: audit.NewReplaySession(),
		Approvals: approval.NewGate(),
		CAS: cas.NewStore(),
		sessions: make(map[string]*session.Session),
		providers: make(map[string]provider.Node),
		workers: make(map[string]*provider.Ring),
		manifestSinks: make(map[string]*CASManifestSink),
		statusNodes: make(map[string]*provider.CBORSummary),
		actionNodes: make(map[string]*provider.CBORSummary),
		trustRoot: cfg.TrustRoot,
	}
	h.Queen = queenctl.NewDispatcher(queenctl.Hooks{
		Spawn: h.spawnWorker,
		Kill: h.killWorker,
		Bind: h.bindGlobal,
		Mount: h.mountService,
	}, logger)
	h.bootNamespace()
	return h
}

// nextQid allocates a process-lifetime-unique qid path. Providers
// never reuse a path once assigned: it is a content-independent
// identifier assigned by the provider.
func (h *Hive) nextQid(t wire.QidType) wire.Qid {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextQidPath++
	return wire.Qid{Type: t, Version: 0, Path: h.nextQidPath}
}

// Tick advances the hive's logical clock by one pump tick, sweeping
// session TTLs. It returns the ids of sessions whose budget expired
// this tick so the caller can clunk their fids and close the
// transport: TTL expiry closes the session at the next tick.
func (h *Hive) Tick() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tick++
	var expired []string
	for id, sess := range h.sessions {
		if sess.Budget.Tick() {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(h.sessions, id)
	}
	return expired
}

// CurrentTick exposes the logical clock for /proc snapshot rendering.
func (h *Hive) CurrentTick() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tick
}

// Attach verifies a raw ticket, applies policy's can_attach, and
// installs a new session keyed by sessionID (supplied by the
// transport layer — one per accepted connection).
func (h *Hive) Attach(sessionID string, rawTicket *ticket.Ticket, msize uint32) (*session.Session, error) {
	if err := ticket.Verify(h.TicketKey, rawTicket); err != nil {
		return nil, err
	}
	if err := policy.CanAttach(rawTicket.Claims); err != nil {
		return nil, err
	}
	if msize == 0 || msize > h.Manifest.Bounds.Msize {
		msize = h.Manifest.Bounds.Msize
	}
	budget := ticket.NewBudgetState(rawTicket.Claims.Budget, rawTicket.Claims.CursorLimits, ticksPerSecond)
	sess := session.New(sessionID, rawTicket.Claims, budget, h.Manifest.Bounds.TagsPerSession, msize)

	h.mu.Lock()
	h.sessions[sessionID] = sess
	h.mu.Unlock()

	h.Metrics.ActiveSessions.Add(1)
	return sess, nil
}

// Detach removes a session (transport close or ticket revocation),
// clunking is implicit since the session's own FidTable goes with it.
func (h *Hive) Detach(sessionID string) {
	h.mu.Lock()
	_, existed := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	h.mu.Unlock()
	if existed {
		h.Metrics.ActiveSessions.Add(^uint64(0)) // -1, matching atomic.Uint64's two's-complement decrement idiom
	}
}

// ticksPerSecond converts a ticket's TTLSeconds into pump ticks using
// the manifest-independent nominal tick cadence (internal/constants.Tick).
const ticksPerSecond = uint64(1000 / 5) // constants.Tick == 5ms
