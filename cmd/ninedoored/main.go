// Command ninedoored runs the NineDoor hive: a Secure9P/9P2000.L
// server exposing queen control, worker telemetry, /proc
// observability, and the content-addressed /updates namespace over a
// single listener.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/cohesix/ninedoor/internal/hive"
	"github.com/cohesix/ninedoor/internal/logging"
	"github.com/cohesix/ninedoor/internal/manifest"
	"github.com/cohesix/ninedoor/internal/transport"
)

func main() {
	var (
		addr         = flag.String("addr", ":5640", "listen address")
		manifestPath = flag.String("manifest", "", "path to a JSON manifest (defaults applied to anything unset)")
		ticketKeyHex = flag.String("ticket-key", "", "hex-encoded BLAKE3 MAC key for ticket verification (required)")
		trustRootHex = flag.String("trust-root", "", "hex-encoded ed25519 public key kept on the hive (CAS manifest signatures are checked against the key embedded in each manifest; this key is not compared)")
		useIOUring   = flag.Bool("io-uring", false, "use an io_uring-backed listener (requires building with -tags giouring)")
		verbose      = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	if *ticketKeyHex == "" {
		logger.Error("missing required -ticket-key")
		os.Exit(1)
	}
	ticketKey, err := hex.DecodeString(*ticketKeyHex)
	if err != nil {
		logger.Error("invalid -ticket-key", "err", err)
		os.Exit(1)
	}
	var trustRoot []byte
	if *trustRootHex != "" {
		trustRoot, err = hex.DecodeString(*trustRootHex)
		if err != nil {
			logger.Error("invalid -trust-root", "err", err)
			os.Exit(1)
		}
	}

	m := manifest.DefaultManifest()
	if *manifestPath != "" {
		data, err := os.ReadFile(*manifestPath)
		if err != nil {
			logger.Error("failed to read manifest", "path", *manifestPath, "err", err)
			os.Exit(1)
		}
		m, err = manifest.Parse(data)
		if err != nil {
			logger.Error("failed to parse manifest", "err", err)
			os.Exit(1)
		}
	}

	h := hive.NewHive(hive.Config{Manifest: m, TicketKey: ticketKey, TrustRoot: trustRoot, Logger: logger})

	ln, err := transport.NewListener(transport.Options{Addr: *addr, UseIOUring: *useIOUring, Logger: logger})
	if err != nil {
		logger.Error("failed to create listener", "err", err)
		os.Exit(1)
	}

	srv := hive.NewServer(h, ln)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	logger.Info("ninedoor hive listening", "addr", *addr, "msize", m.Bounds.Msize)
	srv.Run(ctx)
	_ = ln.Close()
	logger.Info("ninedoor hive stopped")
}
