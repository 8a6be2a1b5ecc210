// Package queenctl implements the queen control-line command
// dispatcher of a JSONL verb schema {spawn, kill, bind, mount}
// dispatched strictly in arrival order: one serialized command path,
// structured debug-before/info-after logging around every verb,
// structured errors on failure. The verb is the JSON key itself
// (spawn/kill hold a bare string value; bind/mount hold a nested
// object), with spawn's ticks/budget/lease riding as sibling keys on
// the same line rather than nested under "spawn".
package queenctl

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/cohesix/ninedoor/internal/errcode"
	"github.com/cohesix/ninedoor/internal/logging"
)

// Verb is one of the four queen control operations.
type Verb string

const (
	VerbSpawn Verb = "spawn"
	VerbKill Verb = "kill"
	VerbBind Verb = "bind"
	VerbMount Verb = "mount"
)

// Budget bounds a spawned worker's lifetime, mirroring a ticket's own
// Budget shape over the wire's JSON encoding instead of a CBOR ticket.
type Budget struct {
	TTLSeconds uint32 `json:"ttl_s,omitempty"`
	Ops uint64 `json:"ops,omitempty"`
	Bytes uint64 `json:"bytes,omitempty"`
}

// BindArgs is the value shape of a bind verb.
type BindArgs struct {
	From string `json:"from"`
	To string `json:"to"`
}

// MountArgs is the value shape of a mount verb.
type MountArgs struct {
	Service string `json:"service"`
	At string `json:"at"`
}

// Command is the decoded shape of one control line. Exactly one of
// Spawn/Kill/Bind/Mount is set by a well-formed line; Ticks/Budget/
// Lease are spawn-only siblings at the same JSON level.
type Command struct {
	Spawn string `json:"spawn,omitempty"`
	Kill string `json:"kill,omitempty"`
	Bind *BindArgs `json:"bind,omitempty"`
	Mount *MountArgs `json:"mount,omitempty"`
	Ticks int `json:"ticks,omitempty"`
	Budget *Budget `json:"budget,omitempty"`
	Lease string `json:"lease,omitempty"`
}

// verb reports which of the closed verb set this command carries, or
// "" if none is set.
func (c Command) verb() Verb {
	switch {
	case c.Spawn != "":
		return VerbSpawn
	case c.Kill != "":
		return VerbKill
	case c.Bind != nil:
		return VerbBind
	case c.Mount != nil:
		return VerbMount
	default:
		return ""
	}
}

// Hooks wires each verb to the hive state it mutates. A nil hook
// makes its verb respond Invalid rather than panic. Spawn allocates
// and returns the new worker id: the caller has no id to offer, only
// a role.
type Hooks struct {
	Spawn func(role string, ticks int, budget Budget) (string, error)
	Kill func(workerID string) error
	Bind func(from, to string) error
	Mount func(service, at string) error
}

// Dispatcher serializes queen commands so verbs never interleave.
type Dispatcher struct {
	hooks Hooks
	logger *logging.Logger
	seq uint64
}

// NewDispatcher returns a dispatcher bound to hooks. A nil logger
// falls back to the package default logger.
func NewDispatcher(hooks Hooks, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{hooks: hooks, logger: logger}
}

// Dispatch decodes one control line and runs its verb. The caller
// (provider.ControlSink) already serializes writes to a single sink,
// so Dispatch does not need its own lock beyond the sequence counter.
func (d *Dispatcher) Dispatch(line []byte) error {
	var cmd Command
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(line, &cmd); err != nil {
		return errcode.New("queenctl_dispatch", errcode.Invalid, "malformed command")
	}
	verb := cmd.verb()
	d.seq++
	seq := d.seq
	d.logger.Debug("dispatching queen command", "verb", verb, "seq", seq)

	var err error
	switch verb {
	case VerbSpawn:
		err = d.spawn(cmd)
	case VerbKill:
		err = d.kill(cmd)
	case VerbBind:
		err = d.bind(cmd)
	case VerbMount:
		err = d.mount(cmd)
	default:
		err = errcode.New("queenctl_dispatch", errcode.Invalid, "unknown verb")
	}

	if err != nil {
		d.logger.Warn("queen command failed", "verb", verb, "seq", seq, "err", err)
		return errcode.Wrap("queenctl_dispatch", err)
	}
	d.logger.Info("queen command completed", "verb", verb, "seq", seq)
	return nil
}

func (d *Dispatcher) spawn(cmd Command) error {
	if d.hooks.Spawn == nil {
		return errcode.New("queenctl_spawn", errcode.Invalid, "spawn not supported")
	}
	var budget Budget
	if cmd.Budget != nil {
		budget = *cmd.Budget
	}
	_, err := d.hooks.Spawn(cmd.Spawn, cmd.Ticks, budget)
	return err
}

func (d *Dispatcher) kill(cmd Command) error {
	if d.hooks.Kill == nil {
		return errcode.New("queenctl_kill", errcode.Invalid, "kill not supported")
	}
	return d.hooks.Kill(cmd.Kill)
}

func (d *Dispatcher) bind(cmd Command) error {
	if d.hooks.Bind == nil {
		return errcode.New("queenctl_bind", errcode.Invalid, "bind not supported")
	}
	if cmd.Bind.From == "" || cmd.Bind.To == "" {
		return errcode.New("queenctl_bind", errcode.Invalid, "from and to required")
	}
	return d.hooks.Bind(cmd.Bind.From, cmd.Bind.To)
}

func (d *Dispatcher) mount(cmd Command) error {
	if d.hooks.Mount == nil {
		return errcode.New("queenctl_mount", errcode.Invalid, "mount not supported")
	}
	if cmd.Mount.Service == "" || cmd.Mount.At == "" {
		return errcode.New("queenctl_mount", errcode.Invalid, "service and at required")
	}
	return d.hooks.Mount(cmd.Mount.Service, cmd.Mount.At)
}
