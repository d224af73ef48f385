package fuzzstate

import (
	"testing"

	"github.com/coverfuzz/kernel/internal/corpus"
)

func newTestState() *State[[]byte] {
	return New[[]byte](1, corpus.NewMemory[[]byte](), corpus.NewMemory[[]byte]())
}

func TestExecsMonotonic(t *testing.T) {
	s := newTestState()
	if s.Execs() != 0 {
		t.Fatalf("expected initial execs 0, got %d", s.Execs())
	}
	s.IncExecs()
	s.IncExecs()
	if s.Execs() != 2 {
		t.Fatalf("expected execs 2, got %d", s.Execs())
	}
}

func TestRestoreExecsNeverGoesBackwards(t *testing.T) {
	s := newTestState()
	s.IncExecs()
	s.IncExecs()
	s.IncExecs() // execs == 3

	s.RestoreExecs(1)
	if s.Execs() != 3 {
		t.Errorf("expected RestoreExecs to refuse moving backwards, got %d", s.Execs())
	}

	s.RestoreExecs(10)
	if s.Execs() != 10 {
		t.Errorf("expected RestoreExecs to advance forward, got %d", s.Execs())
	}
}

func TestCurrentTestcasePinning(t *testing.T) {
	s := newTestState()
	if _, ok := s.CurrentTestcase(); ok {
		t.Fatal("expected no current testcase initially")
	}

	id := corpus.NewId()
	s.SetCurrentTestcase(id)
	got, ok := s.CurrentTestcase()
	if !ok || got != id {
		t.Fatalf("expected current testcase %v, got %v (ok=%v)", id, got, ok)
	}

	s.ClearCurrentTestcase()
	if _, ok := s.CurrentTestcase(); ok {
		t.Fatal("expected current testcase cleared")
	}
}

func TestDeterministicSeed(t *testing.T) {
	s1 := New[[]byte](42, corpus.NewMemory[[]byte](), corpus.NewMemory[[]byte]())
	s2 := New[[]byte](42, corpus.NewMemory[[]byte](), corpus.NewMemory[[]byte]())

	for i := 0; i < 10; i++ {
		a := s1.Rand().Int63()
		b := s2.Rand().Int63()
		if a != b {
			t.Fatalf("expected identical seeds to produce identical sequences, diverged at %d", i)
		}
	}
}

func TestMetadataTypedIdempotentInit(t *testing.T) {
	m := NewMetadataMap()
	type counter struct{ n int }

	calls := 0
	init := func() *counter {
		calls++
		return &counter{n: 1}
	}

	first := TypedGetOrInit(m, init)
	second := TypedGetOrInit(m, init)

	if calls != 1 {
		t.Errorf("expected init to run once, ran %d times", calls)
	}
	if first != second {
		t.Error("expected TypedGetOrInit to return the same instance both times")
	}
}

func TestMetadataNamedIsolation(t *testing.T) {
	m := NewMetadataMap()
	NamedSet(m, "stage-a", 1)
	NamedSet(m, "stage-b", 2)

	a, ok := NamedGet[int](m, "stage-a")
	if !ok || a != 1 {
		t.Errorf("expected stage-a == 1, got %d (ok=%v)", a, ok)
	}
	b, ok := NamedGet[int](m, "stage-b")
	if !ok || b != 2 {
		t.Errorf("expected stage-b == 2, got %d (ok=%v)", b, ok)
	}

	m.NamedDelete("stage-a")
	if _, ok := NamedGet[int](m, "stage-a"); ok {
		t.Error("expected stage-a to be deleted")
	}
}
