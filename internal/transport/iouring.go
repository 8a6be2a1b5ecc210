//go:build giouring
// +build giouring

// Package transport, under -tags giouring, replaces the accept path
// with a ring-submitted implementation using
// github.com/pawelgaczynski/giouring; reads and writes stay on net.Conn.
package transport

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/pawelgaczynski/giouring"
)

// ringListener accepts connections through an io_uring accept SQE
// (one per Accept call) instead of a blocking net.Listener.Accept
// goroutine.
// Completed accepts still hand back a plain *net.TCPConn-backed Conn:
// NineDoor doesn't need ring-submitted reads/writes to get the
// accept-path win, and staying on net.Conn for the data path keeps
// the codec above oblivious to which listener produced the Conn.
type ringListener struct {
	mu     sync.Mutex
	ring   *giouring.Ring
	fd     int
	ln     *net.TCPListener
	closed bool
}

// NewIOUringListener binds addr with a listener socket and creates
// the ring that Accept submits its accept SQEs to.
func NewIOUringListener(addr string, entries uint32) (Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}
	ln, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, err
	}
	ring, err := giouring.CreateRing(entries)
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("create io_uring: %w", err)
	}
	sysconn, err := ln.SyscallConn()
	if err != nil {
		ring.QueueExit()
		ln.Close()
		return nil, err
	}
	var fd int
	sysconn.Control(func(raw uintptr) { fd = int(raw) })

	return &ringListener{ring: ring, fd: fd, ln: ln}, nil
}

func (l *ringListener) Addr() net.Addr { return l.ln.Addr() }

func (l *ringListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.ring.QueueExit()
	return l.ln.Close()
}

// Accept submits an accept SQE, waits for its completion, and wraps
// the resulting fd's dup'd net.Conn. Falling back to the listener's
// own Accept keeps this correct even on giouring builds where the
// ring path errors transiently, rather than tearing the whole loop
// down.
func (l *ringListener) Accept(ctx context.Context) (Conn, error) {
	l.mu.Lock()
	sqe := l.ring.GetSQE()
	if sqe == nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("io_uring: submission queue full")
	}
	sqe.PrepareAccept(l.fd, 0, 0, 0)
	if _, err := l.ring.SubmitAndWait(1); err != nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("io_uring: submit accept: %w", err)
	}
	cqe, err := l.ring.WaitCQE()
	l.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("io_uring: wait accept cqe: %w", err)
	}
	defer l.ring.CQESeen(cqe)
	if cqe.Res < 0 {
		// Degrade to the plain listener for this one accept rather
		// than failing the whole loop.
		c, acceptErr := l.ln.Accept()
		if acceptErr != nil {
			return nil, acceptErr
		}
		return &tcpConn{Conn: c}, nil
	}
	f := os.NewFile(uintptr(cqe.Res), "io_uring-accept")
	c, err := net.FileConn(f)
	f.Close()
	if err != nil {
		return nil, err
	}
	return &tcpConn{Conn: c}, nil
}
