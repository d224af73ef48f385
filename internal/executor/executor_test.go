package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coverfuzz/kernel/internal/observer"
)

func TestInProcessExecutorOk(t *testing.T) {
	e := NewInProcessExecutor(func(input []byte) error { return nil }, time.Second)
	tuple := observer.NewTuple()

	kind, err := e.Run(context.Background(), tuple, []byte("x"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind.Tag != Ok {
		t.Errorf("expected Ok, got %v", kind)
	}
}

func TestInProcessExecutorPanicIsCrash(t *testing.T) {
	e := NewInProcessExecutor(func(input []byte) error {
		panic("boom")
	}, time.Second)
	tuple := observer.NewTuple()

	kind, err := e.Run(context.Background(), tuple, []byte("a"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !kind.IsCrash() {
		t.Errorf("expected Crash, got %v", kind)
	}
}

func TestInProcessExecutorErrorIsCrash(t *testing.T) {
	e := NewInProcessExecutor(func(input []byte) error {
		return errors.New("harness failed")
	}, time.Second)
	tuple := observer.NewTuple()

	kind, err := e.Run(context.Background(), tuple, []byte("a"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !kind.IsCrash() {
		t.Errorf("expected Crash, got %v", kind)
	}
}

func TestInProcessExecutorTimeout(t *testing.T) {
	e := NewInProcessExecutor(func(input []byte) error {
		time.Sleep(50 * time.Millisecond)
		return nil
	}, 5*time.Millisecond)
	tuple := observer.NewTuple()

	kind, err := e.Run(context.Background(), tuple, []byte("a"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !kind.IsTimeout() {
		t.Errorf("expected Timeout, got %v", kind)
	}
}

func TestInProcessExecutorStopsTimeObserverAfterHarnessReturns(t *testing.T) {
	to := observer.NewTimeObserver("time")
	tuple := observer.NewTuple(to)

	e := NewInProcessExecutor(func(input []byte) error {
		time.Sleep(2 * time.Millisecond)
		return nil
	}, time.Second)

	if err := tuple.ResetAll(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.Run(context.Background(), tuple, []byte("x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if to.LastExecTime() <= 0 {
		t.Error("expected Run to have stopped the TimeObserver's timer via PostExecAll")
	}
}

func TestInProcessExecutorDoesNotStopTimeObserverOnTimeout(t *testing.T) {
	to := observer.NewTimeObserver("time")
	tuple := observer.NewTuple(to)

	e := NewInProcessExecutor(func(input []byte) error {
		time.Sleep(50 * time.Millisecond)
		return nil
	}, 5*time.Millisecond)

	if err := tuple.ResetAll(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kind, err := e.Run(context.Background(), tuple, []byte("x"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !kind.IsTimeout() {
		t.Fatalf("expected Timeout, got %v", kind)
	}
	if to.LastExecTime() != 0 {
		t.Error("expected the timer to remain unstopped when the harness itself timed out")
	}
}

func TestThrottledExecutorDelegates(t *testing.T) {
	inner := NewInProcessExecutor(func(input []byte) error { return nil }, time.Second)
	throttled := NewThrottledExecutor[[]byte](inner, 1000)
	tuple := observer.NewTuple()

	kind, err := throttled.Run(context.Background(), tuple, []byte("x"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind.Tag != Ok {
		t.Errorf("expected Ok, got %v", kind)
	}
}

func TestDiffKind(t *testing.T) {
	d := DiffKind("a", "b")
	if !d.IsDiff() {
		t.Error("expected IsDiff true")
	}
	if d.First != "a" || d.Second != "b" {
		t.Error("expected First/Second to round-trip")
	}
}
