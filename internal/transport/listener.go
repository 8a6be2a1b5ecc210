package transport

import (
	"github.com/cohesix/ninedoor/internal/logging"
)

// Options selects and configures the listener NewListener builds.
type Options struct {
	Addr        string
	UseIOUring  bool
	RingEntries uint32
	Logger      *logging.Logger
}

// NewListener builds the best available listener for opts, degrading
// from io_uring to plain TCP on any setup error: try the fast path,
// log and fall back rather than fail the daemon.
func NewListener(opts Options) (Listener, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	if opts.UseIOUring {
		entries := opts.RingEntries
		if entries == 0 {
			entries = 256
		}
		logger.Debug("attempting io_uring transport", "addr", opts.Addr, "entries", entries)
		ln, err := NewIOUringListener(opts.Addr, entries)
		if err == nil {
			logger.Info("listening with io_uring transport", "addr", opts.Addr)
			return ln, nil
		}
		logger.Warn("io_uring transport unavailable, falling back to TCP", "err", err)
	}
	ln, err := NewTCPListener(opts.Addr)
	if err != nil {
		return nil, err
	}
	logger.Info("listening with TCP transport", "addr", opts.Addr)
	return ln, nil
}
