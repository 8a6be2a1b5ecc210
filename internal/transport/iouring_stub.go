//go:build !giouring
// +build !giouring

package transport

import "fmt"

// NewIOUringListener is available when built with -tags giouring. The
// default build has no io_uring dependency at all: callers that don't
// pass -tags giouring always get the plain TCP listener.
func NewIOUringListener(addr string, entries uint32) (Listener, error) {
	return nil, fmt.Errorf("io_uring transport not enabled; build with -tags giouring")
}
