package stage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coverfuzz/kernel/internal/corpus"
	"github.com/coverfuzz/kernel/internal/events"
	"github.com/coverfuzz/kernel/internal/executor"
	"github.com/coverfuzz/kernel/internal/feedback"
	"github.com/coverfuzz/kernel/internal/fuzzer"
	"github.com/coverfuzz/kernel/internal/fuzzstate"
	"github.com/coverfuzz/kernel/internal/observer"
	"github.com/coverfuzz/kernel/internal/scheduler"
)

// countingMutator calls a per-iteration hook and always mutates (unless
// alwaysSkip is set), optionally sleeping to simulate a slow mutation.
type countingMutator struct {
	calls      int
	sleep      time.Duration
	alwaysSkip bool
	onMutate   func(n int) ByteInput
}

func (m *countingMutator) Mutate(state *fuzzstate.State[[]byte], in ByteInput) (ByteInput, MutationResult, error) {
	m.calls++
	if m.sleep > 0 {
		time.Sleep(m.sleep)
	}
	if m.alwaysSkip {
		return in, Skipped, nil
	}
	if m.onMutate != nil {
		return m.onMutate(m.calls), Mutated, nil
	}
	return in, Mutated, nil
}

func (m *countingMutator) PostExec(state *fuzzstate.State[[]byte], id *corpus.Id) error { return nil }

func newStageTestFuzzer(t *testing.T, harness executor.Harness) (*fuzzer.Fuzzer[[]byte], *fuzzstate.State[[]byte], corpus.Id) {
	t.Helper()
	mapObs := observer.NewMapObserver("map", 256)
	tuple := observer.NewTuple(mapObs)
	handle := observer.NewHandle[*observer.MapObserver]("map")

	exec := executor.NewInProcessExecutor(harness, 0)
	sched := scheduler.NewRoundRobin[[]byte]()
	fb := feedback.NewMapFeedback[[]byte]("map-feedback", handle)
	objective := feedback.CrashFeedback[[]byte]()

	f := fuzzer.New[[]byte](fb, objective, exec, tuple, sched)
	main := corpus.NewMemory[[]byte]()
	state := fuzzstate.New[[]byte](1, main, corpus.NewMemory[[]byte]())

	id, err := main.Add(corpus.NewTestcase([]byte{0x00}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return f, state, id
}

func TestMutationalStageItersZeroExecutesNoMutations(t *testing.T) {
	f, state, id := newStageTestFuzzer(t, func(input []byte) error { return nil })
	mut := &countingMutator{}
	st := NewMutationalStage[[]byte, ByteInput](DefaultStageName, IdentityTransform{}, mut)
	SetIters(state, DefaultStageName, 0)

	if err := st.Perform(context.Background(), state, events.Noop{}, f, id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mut.calls != 0 {
		t.Errorf("expected 0 mutator calls, got %d", mut.calls)
	}
}

func TestMutationalStageFuzzTimeZeroExecutesNoMutations(t *testing.T) {
	f, state, id := newStageTestFuzzer(t, func(input []byte) error { return nil })
	mut := &countingMutator{}
	st := NewMutationalStage[[]byte, ByteInput](DefaultStageName, IdentityTransform{}, mut)
	SetFuzzTime(state, DefaultStageName, 0)

	if err := st.Perform(context.Background(), state, events.Noop{}, f, id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mut.calls != 0 {
		t.Errorf("expected 0 mutator calls, got %d", mut.calls)
	}
}

// TestMutationalStageRandomizedBudgetSurvivesInterruption simulates a
// restart mid-way through the randomized-default policy: a first Perform
// call that is interrupted (its mutator errors out after a few
// iterations, leaving ClearProgress unreached, the same state an
// interrupted process leaves on disk) must leave behind a drawn budget
// that a second Perform call reuses verbatim and runs down to
// completion, rather than drawing (and running) a fresh one.
func TestMutationalStageRandomizedBudgetSurvivesInterruption(t *testing.T) {
	f, state, id := newStageTestFuzzer(t, func(input []byte) error { return nil })

	const interruptAfter = 3
	const wantBudget = 7
	errInterrupted := errors.New("simulated interruption")

	// Fix the budget that would otherwise be drawn randomly, so the
	// test doesn't depend on knowing the RNG's exact output for a given
	// seed: this isolates "a budget survives an interruption" from the
	// budget bookkeeping itself, which the TestBudget* tests in
	// restart_test.go cover via Budget/SetBudget directly.
	ShouldRestart(state, DefaultStageName)
	SetBudget(state, DefaultStageName, wantBudget)

	st := NewMutationalStage[[]byte, ByteInput](DefaultStageName, IdentityTransform{}, nil)
	first := &interruptingMutator{limit: interruptAfter, err: errInterrupted}
	st.Mutator = first

	err := st.Perform(context.Background(), state, events.Noop{}, f, id)
	if !errors.Is(err, errInterrupted) {
		t.Fatalf("expected the simulated interruption error, got %v", err)
	}
	if first.calls != interruptAfter+1 {
		t.Fatalf("expected %d calls before the interruption (the failing one included), got %d", interruptAfter+1, first.calls)
	}

	budget, ok := Budget(state, DefaultStageName)
	if !ok || budget != wantBudget {
		t.Fatalf("expected the original budget %d to survive the interruption, got %d (ok=%v)", wantBudget, budget, ok)
	}

	// A second Perform call (as a resumed process would make, after
	// statefile.Apply restores this exact restart bookkeeping) must see
	// the same budget and run down only the remaining iterations.
	second := &countingMutator{}
	st.Mutator = second
	if err := st.Perform(context.Background(), state, events.Noop{}, f, id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotBudget, ok := Budget(state, DefaultStageName); ok {
		t.Errorf("expected ClearProgress to reset the budget after a completed run, got %d", gotBudget)
	}
	if want := wantBudget - interruptAfter; second.calls != want {
		t.Errorf("expected the second call to run the remaining %d iterations, ran %d", want, second.calls)
	}
}

// interruptingMutator always mutates but fails after limit calls,
// simulating a process crash partway through a mutational-stage loop.
type interruptingMutator struct {
	calls int
	limit int
	err   error
}

func (m *interruptingMutator) Mutate(state *fuzzstate.State[[]byte], in ByteInput) (ByteInput, MutationResult, error) {
	m.calls++
	if m.calls > m.limit {
		return in, Mutated, m.err
	}
	return in, Mutated, nil
}

func (m *interruptingMutator) PostExec(state *fuzzstate.State[[]byte], id *corpus.Id) error { return nil }

func TestMutationalStageAlwaysSkippedLeavesCorpusUnchanged(t *testing.T) {
	f, state, id := newStageTestFuzzer(t, func(input []byte) error { return nil })
	mut := &countingMutator{alwaysSkip: true}
	st := NewMutationalStage[[]byte, ByteInput](DefaultStageName, IdentityTransform{}, mut)
	SetIters(state, DefaultStageName, 10)

	if err := st.Perform(context.Background(), state, events.Noop{}, f, id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mut.calls != 10 {
		t.Errorf("expected the mutator to still be called 10 times, got %d", mut.calls)
	}
	if state.Corpus().Count() != 1 {
		t.Errorf("expected the corpus to contain only the original seed, got %d", state.Corpus().Count())
	}
	if state.Execs() != 0 {
		t.Errorf("expected zero evaluations for an always-skipped mutator, got %d", state.Execs())
	}
}

func TestMutationalStageTuneableItersRunsExactCount(t *testing.T) {
	f, state, id := newStageTestFuzzer(t, func(input []byte) error { return nil })
	mut := &countingMutator{}
	st := NewMutationalStage[[]byte, ByteInput](DefaultStageName, IdentityTransform{}, mut)
	SetIters(state, DefaultStageName, 5)

	if err := st.Perform(context.Background(), state, events.Noop{}, f, id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mut.calls != 5 {
		t.Errorf("expected exactly 5 mutator invocations, got %d", mut.calls)
	}
}

func TestMutationalStageTuneableFuzzTimeBoundsIterations(t *testing.T) {
	f, state, id := newStageTestFuzzer(t, func(input []byte) error { return nil })
	mut := &countingMutator{sleep: 20 * time.Millisecond}
	st := NewMutationalStage[[]byte, ByteInput](DefaultStageName, IdentityTransform{}, mut)
	SetFuzzTime(state, DefaultStageName, 50*time.Millisecond)

	if err := st.Perform(context.Background(), state, events.Noop{}, f, id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mut.calls < 2 || mut.calls > 3 {
		t.Errorf("expected between 2 and 3 iterations for a 50ms budget with a 20ms mutator, got %d", mut.calls)
	}
}

func TestMutationalStageBothSetExitsOnTimeBeforeItersExhausted(t *testing.T) {
	f, state, id := newStageTestFuzzer(t, func(input []byte) error { return nil })
	mut := &countingMutator{sleep: 2 * time.Millisecond}
	st := NewMutationalStage[[]byte, ByteInput](DefaultStageName, IdentityTransform{}, mut)
	SetIters(state, DefaultStageName, 1000)
	SetFuzzTime(state, DefaultStageName, 10*time.Millisecond)

	if err := st.Perform(context.Background(), state, events.Noop{}, f, id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mut.calls >= 1000 {
		t.Errorf("expected the 10ms budget to cut the run short of 1000 iterations, got %d", mut.calls)
	}
}

func TestMutationalStageCrashOnlyRoutesToSolutions(t *testing.T) {
	target := byte(0x61)
	f, state, id := newStageTestFuzzer(t, func(input []byte) error {
		if len(input) > 0 && input[0] == target {
			panic("boom")
		}
		return nil
	})

	counter := 0
	mut := &countingMutator{onMutate: func(n int) ByteInput {
		b := ByteInput{byte(counter)}
		counter++
		return b
	}}
	st := NewMutationalStage[[]byte, ByteInput](DefaultStageName, IdentityTransform{}, mut)
	SetIters(state, DefaultStageName, 200)

	if err := st.Perform(context.Background(), state, events.Noop{}, f, id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Solutions().Count() != 1 {
		t.Fatalf("expected exactly one solutions entry, got %d", state.Solutions().Count())
	}
	ids := state.Solutions().Ids()
	tc, err := state.Solutions().Get(ids[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tc.Input) == 0 || tc.Input[0] != target {
		t.Errorf("expected the persisted crash input to start with 0x61, got %v", tc.Input)
	}
}

func TestMutationalStageTransformRefusalSkipsExecution(t *testing.T) {
	f, state, id := newStageTestFuzzer(t, func(input []byte) error {
		t.Fatal("harness must not run when the transform refuses")
		return nil
	})
	refusing := refusingTransform{}
	mut := &countingMutator{}
	st := NewMutationalStage[[]byte, ByteInput](DefaultStageName, refusing, mut)
	SetIters(state, DefaultStageName, 10)

	if err := st.Perform(context.Background(), state, events.Noop{}, f, id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mut.calls != 0 {
		t.Errorf("expected the mutator never to run when the transform refuses, got %d calls", mut.calls)
	}
}

type refusingTransform struct{}

func (refusingTransform) TryTransformFrom(tc *corpus.Testcase[[]byte], state *fuzzstate.State[[]byte]) (ByteInput, bool, error) {
	return nil, false, nil
}

func (refusingTransform) TryTransformInto(m ByteInput, state *fuzzstate.State[[]byte]) ([]byte, Post[[]byte], error) {
	return []byte(m), NoopPost[[]byte]{}, nil
}
