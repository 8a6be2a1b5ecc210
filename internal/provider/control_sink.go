package provider

import (
	"bytes"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/cohesix/ninedoor/internal/errcode"
	"github.com/cohesix/ninedoor/wire"
)

// ControlSink is a write-only, newline-delimited JSON command node
// (queen, policy and replay control). Each complete line is decoded
// and handed to Dispatch in write order; a malformed line stops the
// write with Invalid rather than being silently dropped (lines before
// it in the same write have already been dispatched).
type ControlSink struct {
	mu sync.Mutex
	qid wire.Qid
	name string
	queueLen int
	queued int
	partial []byte
	dispatch func(line []byte) error
}

// NewControlSink returns a sink that calls dispatch synchronously for
// each decoded JSON line. queueLen caps how many lines may be in
// flight at once.
func NewControlSink(qid wire.Qid, name string, queueLen int, dispatch func(line []byte) error) *ControlSink {
	return &ControlSink{qid: qid, name: name, queueLen: queueLen, dispatch: dispatch}
}

func (c *ControlSink) Qid() wire.Qid { return c.qid }
func (c *ControlSink) Kind() Kind { return KindControlSink }

func (c *ControlSink) Open(mode wire.OpenMode) error {
	if mode.Readable() {
		return errWriteOnly("control_sink_open")
	}
	return nil
}

func (c *ControlSink) Read(uint64, []byte) (ReadResult, error) {
	return ReadResult{}, errWriteOnly("control_sink_read")
}

// Write accepts a buffer possibly containing multiple or partial
// newline-delimited JSON lines, dispatching each complete line it can
// extract. Each line is dispatched before the next is examined, so no
// line is in flight when the queueLen check runs and the Busy
// rejection does not occur for any queueLen of 1 or more.
func (c *ControlSink) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.partial = append(c.partial, p...)
	consumed := len(p)
	for {
		idx := bytes.IndexByte(c.partial, '\n')
		if idx < 0 {
			break
		}
		line := c.partial[:idx]
		c.partial = c.partial[idx+1:]
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if c.queueLen > 0 && c.queued >= c.queueLen {
			return consumed, errcode.New("control_sink_write", errcode.Busy, "control backlog full")
		}
		var probe jsoniter.RawMessage
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(line, &probe); err != nil {
			return consumed, errcode.New("control_sink_write", errcode.Invalid, "malformed control line")
		}
		c.queued++
		if err := c.dispatch(append([]byte(nil), line...)); err != nil {
			c.queued--
			return consumed, errcode.Wrap("control_sink_write", err)
		}
		c.queued--
	}
	return consumed, nil
}

func (c *ControlSink) Stat() Stat {
	return Stat{Qid: c.qid, Name: c.name}
}
