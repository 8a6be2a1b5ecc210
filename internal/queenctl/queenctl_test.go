package queenctl

import (
	"testing"

	"github.com/cohesix/ninedoor/internal/errcode"
)

func TestDispatchOrdersCommandsAndCallsHooks(t *testing.T) {
	var order []string
	d := NewDispatcher(Hooks{
		Spawn: func(role string, ticks int, budget Budget) (string, error) {
			order = append(order, "spawn:"+role)
			return "worker-1", nil
		},
		Bind: func(from, to string) error { order = append(order, "bind:"+from+"->"+to); return nil },
	}, nil)

	if err := d.Dispatch([]byte(`{"spawn":"heartbeat","ticks":3,"budget":{"ttl_s":60,"ops":100}}`)); err != nil {
		t.Fatalf("Dispatch spawn: %v", err)
	}
	if err := d.Dispatch([]byte(`{"bind":{"from":"/a","to":"/b"}}`)); err != nil {
		t.Fatalf("Dispatch bind: %v", err)
	}
	if len(order) != 2 || order[0] != "spawn:heartbeat" || order[1] != "bind:/a->/b" {
		t.Fatalf("unexpected dispatch order: %v", order)
	}
}

func TestDispatchSpawnPassesTicksAndBudget(t *testing.T) {
	var gotTicks int
	var gotBudget Budget
	d := NewDispatcher(Hooks{
		Spawn: func(role string, ticks int, budget Budget) (string, error) {
			gotTicks = ticks
			gotBudget = budget
			return "worker-1", nil
		},
	}, nil)
	if err := d.Dispatch([]byte(`{"spawn":"heartbeat","ticks":3,"budget":{"ttl_s":60,"ops":100}}`)); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if gotTicks != 3 {
		t.Fatalf("expected ticks=3, got %d", gotTicks)
	}
	if gotBudget.TTLSeconds != 60 || gotBudget.Ops != 100 {
		t.Fatalf("unexpected budget: %+v", gotBudget)
	}
}

func TestDispatchUnknownVerbInvalid(t *testing.T) {
	d := NewDispatcher(Hooks{}, nil)
	if err := d.Dispatch([]byte(`{}`)); errcode.CodeOf(err) != errcode.Invalid {
		t.Fatalf("expected Invalid, got %v", err)
	}
}

func TestDispatchMissingHookInvalid(t *testing.T) {
	d := NewDispatcher(Hooks{}, nil)
	if err := d.Dispatch([]byte(`{"spawn":"heartbeat"}`)); errcode.CodeOf(err) != errcode.Invalid {
		t.Fatalf("expected Invalid for unwired hook, got %v", err)
	}
}

func TestDispatchMalformedLineInvalid(t *testing.T) {
	d := NewDispatcher(Hooks{}, nil)
	if err := d.Dispatch([]byte(`not json`)); errcode.CodeOf(err) != errcode.Invalid {
		t.Fatalf("expected Invalid for malformed command, got %v", err)
	}
}

func TestDispatchKillAndMount(t *testing.T) {
	var killed, mounted string
	d := NewDispatcher(Hooks{
		Kill: func(workerID string) error { killed = workerID; return nil },
		Mount: func(service, at string) error { mounted = service + "@" + at; return nil },
	}, nil)
	if err := d.Dispatch([]byte(`{"kill":"worker-1"}`)); err != nil {
		t.Fatalf("Dispatch kill: %v", err)
	}
	if killed != "worker-1" {
		t.Fatalf("expected kill hook called with worker-1, got %q", killed)
	}
	if err := d.Dispatch([]byte(`{"mount":{"service":"/proc/boot","at":"/alias/boot"}}`)); err != nil {
		t.Fatalf("Dispatch mount: %v", err)
	}
	if mounted != "/proc/boot@/alias/boot" {
		t.Fatalf("unexpected mount result: %q", mounted)
	}
}
