package transport

import (
	"context"
	"net"
)

// tcpConn adapts a net.Conn to Conn.
type tcpConn struct {
	net.Conn
}

func (c *tcpConn) RemoteLabel() string { return c.Conn.RemoteAddr().String() }

// tcpListener is the always-available fallback transport: a plain
// net.Listener, accepted in a goroutine so Accept can honor ctx
// cancellation.
type tcpListener struct {
	ln net.Listener
}

// NewTCPListener binds addr and returns a Listener backed by the
// standard library's net package.
func NewTCPListener(addr string) (Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &tcpListener{ln: ln}, nil
}

func (l *tcpListener) Addr() net.Addr { return l.ln.Addr() }

func (l *tcpListener) Close() error { return l.ln.Close() }

func (l *tcpListener) Accept(ctx context.Context) (Conn, error) {
	type result struct {
		c   net.Conn
		err error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := l.ln.Accept()
		ch <- result{c, err}
	}()
	select {
	case <-ctx.Done():
		l.ln.Close()
		return nil, ErrClosed
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		return &tcpConn{Conn: r.c}, nil
	}
}
