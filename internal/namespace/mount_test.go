package namespace

import "testing"

func TestResolveRewritesPrefix(t *testing.T) {
	tb := New()
	if err := tb.Bind("/worker/self", "/worker/w7"); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	got, err := tb.Resolve("/worker/self/telemetry")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "/worker/w7/telemetry" {
		t.Fatalf("got %q", got)
	}
}

func TestBindCycleRejected(t *testing.T) {
	tb := New()
	if err := tb.Bind("/a", "/b"); err != nil {
		t.Fatalf("first bind: %v", err)
	}
	if err := tb.Bind("/b", "/a"); err == nil {
		t.Fatalf("expected cycle rejection")
	}
}

func TestWalkDepthBound(t *testing.T) {
	names := make([]string, 9)
	for i := range names {
		names[i] = "x"
	}
	if _, err := Walk("/", names); err == nil {
		t.Fatalf("expected walk depth rejection")
	}
}

func TestWalkRejectsDotDot(t *testing.T) {
	if _, err := Walk("/", []string{"..", "x"}); err == nil {
		t.Fatalf("expected dotdot rejection")
	}
}

func TestMountsPreserveOrder(t *testing.T) {
	tb := New()
	tb.Mount("worker-telemetry", "/worker")
	tb.Mount("proc", "/proc")
	ms := tb.Mounts()
	if len(ms) != 2 || ms[0].Service != "worker-telemetry" || ms[1].Service != "proc" {
		t.Fatalf("unexpected mount order: %+v", ms)
	}
}

func TestShardKeyIsStableTwoHexDigits(t *testing.T) {
	k1 := ShardKey("worker-7")
	k2 := ShardKey("worker-7")
	if k1 != k2 {
		t.Fatalf("ShardKey not deterministic: %q vs %q", k1, k2)
	}
	if len(k1) != 2 {
		t.Fatalf("expected 2 hex digits, got %q", k1)
	}
}
