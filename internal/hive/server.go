// Server bridges internal/transport and internal/pump to the hive's
// frame dispatch: one reader goroutine per accepted connection feeds
// a shared channel, and the four pump stages drain it, dispatch
// buffered frames through the session's tag window, sweep expired
// sessions, and emit a rate-limited ingest-watch record.
package hive

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cohesix/ninedoor/internal/errcode"
	"github.com/cohesix/ninedoor/internal/pump"
	"github.com/cohesix/ninedoor/internal/transport"
	"github.com/cohesix/ninedoor/wire"
)

// Server owns the live set of accepted connections for one Hive.
type Server struct {
	hive     *Hive
	listener transport.Listener

	mu    sync.Mutex
	conns map[string]*liveConn

	rx chan rxEvent
}

type liveConn struct {
	conn  *Conn
	trans transport.Conn
}

type rxEvent struct {
	id   string
	data []byte
	err  error
}

// NewServer returns a server that will accept connections from ln and
// dispatch them against h.
func NewServer(h *Hive, ln transport.Listener) *Server {
	return &Server{
		hive:     h,
		listener: ln,
		conns:    make(map[string]*liveConn),
		rx:       make(chan rxEvent, 256),
	}
}

// Run accepts connections until ctx is cancelled and drives the
// four-stage pump on the calling goroutine (Run pins it to an OS
// thread).
func (s *Server) Run(ctx context.Context) {
	go s.acceptLoop(ctx)
	pump.New(s.pumpConfig()).Run(ctx)
}

func (s *Server) pumpConfig() pump.Config {
	return pump.Config{
		Logger:       s.hive.Logger,
		Drain:        s.drain,
		Dispatch:     s.dispatch,
		ProviderWork: s.providerWork,
		Emit:         s.emit,
	}
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		tc, err := s.listener.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.hive.Logger.Warn("accept failed", "err", err)
			continue
		}
		id := uuid.New().String()
		s.mu.Lock()
		s.conns[id] = &liveConn{conn: NewConn(id), trans: tc}
		s.mu.Unlock()
		go s.readLoop(id, tc)
	}
}

// readLoop blocking-reads tc and forwards chunks to the shared
// channel; Drain (running on the pump goroutine) is the only place
// that ever touches a connection's FrameReader, so no lock is needed
// there.
func (s *Server) readLoop(id string, tc transport.Conn) {
	buf := make([]byte, 64*1024)
	for {
		n, err := tc.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			s.rx <- rxEvent{id: id, data: chunk}
		}
		if err != nil {
			s.rx <- rxEvent{id: id, err: err}
			return
		}
	}
}

// drain feeds every currently-queued chunk into its connection's
// FrameReader without blocking: the pump never blocks on transport
// I/O.
func (s *Server) drain() error {
	for {
		select {
		case ev := <-s.rx:
			s.mu.Lock()
			lc, ok := s.conns[ev.id]
			s.mu.Unlock()
			if !ok {
				continue
			}
			if ev.err != nil {
				s.closeConn(ev.id)
				continue
			}
			lc.conn.Reader.Feed(ev.data)
		default:
			return nil
		}
	}
}

// dispatch extracts up to tags_per_session complete frames buffered on
// each live connection and runs them through the hive, honoring each
// session's tag window (a tag reused while pending is Busy). Frames
// beyond that stay buffered for the next tick.
func (s *Server) dispatch() error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.conns))
	for id := range s.conns {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.mu.Lock()
		lc, ok := s.conns[id]
		s.mu.Unlock()
		if !ok {
			continue
		}
		for n := 0; n < s.hive.Manifest.Bounds.TagsPerSession; n++ {
			hdr, body, ok2, err := lc.conn.Reader.Next()
			if err != nil {
				s.closeConn(id)
				break
			}
			if !ok2 {
				break
			}
			s.handleOne(lc, hdr, body)
		}
	}
	return nil
}

func (s *Server) handleOne(lc *liveConn, hdr wire.FrameHeader, body []byte) {
	sess := lc.conn.Session
	if sess == nil {
		// Tversion/Tattach precede tag-window tracking: there is no
		// session yet to own a window.
		reply := s.hive.HandleFrame(lc.conn, hdr, body)
		_, _ = lc.trans.Write(reply)
		return
	}
	if err := sess.Tags.Begin(hdr.Tag); err != nil {
		reply := wire.EncodeFrame(wire.Rerror, hdr.Tag, wire.EncodeRerror(wire.RerrorMsg{Code: string(errcode.CodeOf(err))}))
		_, _ = lc.trans.Write(reply)
		return
	}
	reply := s.hive.HandleFrame(lc.conn, hdr, body)
	_ = sess.Tags.Complete(hdr.Tag, reply)
	if out, ok := sess.Tags.TakeReply(hdr.Tag); ok {
		_, _ = lc.trans.Write(out)
	}
}

// providerWork sweeps expired session budgets and tears down their
// connections: TTL expiry closes a session at the next tick.
func (s *Server) providerWork() error {
	for _, id := range s.hive.Tick() {
		s.closeConn(id)
	}
	return nil
}

// emit appends a rate-limited watch record to /proc/ingest/watch,
// gated by the hive's Watcher.
func (s *Server) emit() error {
	if !s.hive.Watcher.ShouldEmit(s.hive.CurrentTick()) {
		return nil
	}
	s.hive.mu.Lock()
	node, ok := s.hive.providers["/proc/ingest/watch"]
	s.hive.mu.Unlock()
	if !ok {
		return nil
	}
	_, err := node.Write([]byte(fmt.Sprintf("tick=%d conns=%d\n", s.hive.CurrentTick(), s.connCount())))
	return err
}

func (s *Server) connCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) closeConn(id string) {
	s.mu.Lock()
	lc, ok := s.conns[id]
	delete(s.conns, id)
	s.mu.Unlock()
	if !ok {
		return
	}
	_ = lc.trans.Close()
	s.hive.Detach(id)
}
