// Command ninedoorctl is a minimal queen-control client: it attaches
// to a running ninedoored hive with a freshly minted queen ticket,
// opens /queen/ctl, and writes one spawn/kill/bind/mount command line,
// standing in for an external higher-level shell.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"net"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/cohesix/ninedoor/internal/ticket"
	"github.com/cohesix/ninedoor/wire"
)

func main() {
	var (
		addr         = flag.String("addr", "127.0.0.1:5640", "hive address")
		ticketKeyHex = flag.String("ticket-key", "", "hex-encoded BLAKE3 MAC key (required, must match the hive's)")
		verb         = flag.String("verb", "", "spawn|kill|bind|mount (required)")
		role         = flag.String("role", "", "worker role for spawn (its id is allocated by the hive)")
		workerID     = flag.String("worker-id", "", "worker id for kill")
		ticks        = flag.Int("ticks", 0, "telemetry frames to emit immediately on spawn")
		ttlSeconds   = flag.Uint("ttl-s", 0, "spawn budget: ttl seconds")
		ops          = flag.Uint64("ops", 0, "spawn budget: op count")
		service      = flag.String("service", "", "service path for mount")
		from         = flag.String("from", "", "source path for bind")
		to           = flag.String("to", "", "destination path for bind")
		at           = flag.String("at", "", "mount point for mount")
	)
	flag.Parse()

	if *ticketKeyHex == "" || *verb == "" {
		fmt.Fprintln(os.Stderr, "usage: ninedoorctl -ticket-key <hex> -verb <spawn|kill|bind|mount> [...]")
		os.Exit(2)
	}
	key, err := hex.DecodeString(*ticketKeyHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -ticket-key: %v\n", err)
		os.Exit(1)
	}

	cmd := map[string]any{}
	switch *verb {
	case "spawn":
		cmd["spawn"] = *role
		if *ticks > 0 {
			cmd["ticks"] = *ticks
		}
		if *ttlSeconds != 0 || *ops != 0 {
			cmd["budget"] = map[string]any{"ttl_s": *ttlSeconds, "ops": *ops}
		}
	case "kill":
		cmd["kill"] = *workerID
	case "bind":
		cmd["bind"] = map[string]string{"from": *from, "to": *to}
	case "mount":
		cmd["mount"] = map[string]string{"service": *service, "at": *at}
	default:
		fmt.Fprintf(os.Stderr, "unknown -verb %q\n", *verb)
		os.Exit(2)
	}
	line, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode command: %v\n", err)
		os.Exit(1)
	}
	line = append(line, '\n')

	if err := run(*addr, key, line); err != nil {
		fmt.Fprintf(os.Stderr, "ninedoorctl: %v\n", err)
		os.Exit(1)
	}
}

func run(addr string, key, line []byte) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if err := roundTrip(conn, wire.Tversion, 0, wire.EncodeTversion(wire.TversionMsg{Msize: 1 << 16, Version: "9P2000.L"}), wire.Rversion); err != nil {
		return fmt.Errorf("version: %w", err)
	}

	tk, err := ticket.Mint(key, ticket.Claims{
		Role:    ticket.RoleQueen,
		Subject: "ninedoorctl",
		Scopes:  []string{"/queen/ctl"},
		Budget:  ticket.Budget{TTLSeconds: 30, Ops: 16, Bytes: 4096},
	})
	if err != nil {
		return fmt.Errorf("mint ticket: %w", err)
	}
	rawTicket, err := ticket.Encode(tk)
	if err != nil {
		return fmt.Errorf("encode ticket: %w", err)
	}
	if err := roundTrip(conn, wire.Tattach, 1, wire.EncodeTattach(wire.TattachMsg{Fid: 0, Ticket: rawTicket}), wire.Rattach); err != nil {
		return fmt.Errorf("attach: %w", err)
	}

	if err := roundTrip(conn, wire.Twalk, 2, wire.EncodeTwalk(wire.TwalkMsg{Fid: 0, NewFid: 1, Names: []string{"queen", "ctl"}}), wire.Rwalk); err != nil {
		return fmt.Errorf("walk /queen/ctl: %w", err)
	}

	if err := roundTrip(conn, wire.Topen, 3, wire.EncodeTopen(wire.TopenMsg{Fid: 1, Mode: wire.OWRITE}), wire.Ropen); err != nil {
		return fmt.Errorf("open /queen/ctl: %w", err)
	}

	if err := roundTrip(conn, wire.Twrite, 4, wire.EncodeTwrite(wire.TwriteMsg{Fid: 1, Offset: 0, Data: line}), wire.Rwrite); err != nil {
		return fmt.Errorf("write command: %w", err)
	}

	if err := roundTrip(conn, wire.Tclunk, 5, wire.EncodeTclunk(wire.TclunkMsg{Fid: 1}), wire.Rclunk); err != nil {
		return fmt.Errorf("clunk: %w", err)
	}

	fmt.Println("ok")
	return nil
}

// roundTrip sends one frame and reads the reply, reporting an error
// describing the Rerror code on anything but the expected reply type.
func roundTrip(conn net.Conn, mtype wire.MType, tag wire.Tag, body []byte, wantType wire.MType) error {
	if _, err := conn.Write(wire.EncodeFrame(mtype, tag, body)); err != nil {
		return err
	}
	hdr, rbody, err := readFrame(conn)
	if err != nil {
		return err
	}
	if hdr.Type == wire.Rerror {
		rerr, err := wire.DecodeRerror(rbody)
		if err != nil {
			return fmt.Errorf("malformed Rerror: %w", err)
		}
		return fmt.Errorf("hive rejected request: %s", rerr.Code)
	}
	if hdr.Type != wantType {
		return fmt.Errorf("unexpected reply type %d, wanted %d", hdr.Type, wantType)
	}
	return nil
}

func readFrame(conn net.Conn) (wire.FrameHeader, []byte, error) {
	head := make([]byte, wire.HeaderLen)
	if _, err := io.ReadFull(conn, head); err != nil {
		return wire.FrameHeader{}, nil, err
	}
	hdr, err := wire.DecodeFrameHeader(head)
	if err != nil {
		return wire.FrameHeader{}, nil, err
	}
	body := make([]byte, int(hdr.Size)-wire.HeaderLen)
	if len(body) > 0 {
		if _, err := io.ReadFull(conn, body); err != nil {
			return wire.FrameHeader{}, nil, err
		}
	}
	return hdr, body, nil
}
