package pump

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStepRunsStagesInOrder(t *testing.T) {
	var order []string
	p := New(Config{
		Drain:        func() error { order = append(order, "drain"); return nil },
		Dispatch:     func() error { order = append(order, "dispatch"); return nil },
		ProviderWork: func() error { order = append(order, "provider_work"); return nil },
		Emit:         func() error { order = append(order, "emit"); return nil },
	})
	p.Step()
	want := []string{"drain", "dispatch", "provider_work", "emit"}
	if len(order) != len(want) {
		t.Fatalf("unexpected order: %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("unexpected order: %v", order)
		}
	}
	if p.Tick() != 1 {
		t.Fatalf("expected tick count 1, got %d", p.Tick())
	}
}

func TestStepContinuesPastStageError(t *testing.T) {
	emitCalled := false
	p := New(Config{
		Dispatch: func() error { return errors.New("boom") },
		Emit:     func() error { emitCalled = true; return nil },
	})
	p.Step()
	if !emitCalled {
		t.Fatalf("expected emit to run despite dispatch error")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	p := New(Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop after context cancellation")
	}
	if p.Tick() == 0 {
		t.Fatalf("expected at least one tick to have run")
	}
}
