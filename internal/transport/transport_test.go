package transport

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestTCPListenerAcceptRoundTrip(t *testing.T) {
	ln, err := NewTCPListener("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewTCPListener: %v", err)
	}
	defer ln.Close()

	accepted := make(chan Conn, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		c, err := ln.Accept(ctx)
		if err != nil {
			t.Errorf("Accept: %v", err)
			return
		}
		accepted <- c
	}()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer dialCancel()
	var dialer net.Dialer
	client, err := dialer.DialContext(dialCtx, "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	select {
	case c := <-accepted:
		defer c.Close()
		if c.RemoteLabel() == "" {
			t.Fatalf("expected non-empty remote label")
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for accept")
	}
}

func TestIOUringListenerDisabledByDefault(t *testing.T) {
	if _, err := NewIOUringListener("127.0.0.1:0", 256); err == nil {
		t.Fatalf("expected io_uring listener to be unavailable without -tags giouring")
	}
}

func TestNewListenerFallsBackToTCPWhenIOUringUnset(t *testing.T) {
	ln, err := NewListener(Options{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}
	defer ln.Close()
}
