package stage

import (
	"testing"

	"github.com/coverfuzz/kernel/internal/corpus"
	"github.com/coverfuzz/kernel/internal/fuzzstate"
)

func newRestartTestState(t *testing.T) *fuzzstate.State[[]byte] {
	t.Helper()
	return fuzzstate.New[[]byte](1, corpus.NewMemory[[]byte](), corpus.NewMemory[[]byte]())
}

func TestShouldRestartFalseOnFirstEntry(t *testing.T) {
	state := newRestartTestState(t)
	if ShouldRestart(state, "s") {
		t.Error("expected the first entry to report a fresh start, not a restart")
	}
}

func TestShouldRestartTrueWhenProgressNotCleared(t *testing.T) {
	state := newRestartTestState(t)
	ShouldRestart(state, "s")
	if !ShouldRestart(state, "s") {
		t.Error("expected a second entry without ClearProgress to report a restart")
	}
}

func TestExecsSinceProgressStartTracksAttributedExecs(t *testing.T) {
	state := newRestartTestState(t)
	ShouldRestart(state, "s")
	for i := 0; i < 7; i++ {
		state.IncExecs()
	}
	if got := ExecsSinceProgressStart(state, "s"); got != 7 {
		t.Errorf("expected 7 execs since progress start, got %d", got)
	}

	// A resumed entry (ShouldRestart again without clearing) must leave
	// the original baseline untouched.
	if !ShouldRestart(state, "s") {
		t.Fatal("expected a restart")
	}
	if got := ExecsSinceProgressStart(state, "s"); got != 7 {
		t.Errorf("expected the baseline to survive a restart, got %d", got)
	}
}

func TestClearProgressResetsBaselineToZero(t *testing.T) {
	state := newRestartTestState(t)
	ShouldRestart(state, "s")
	for i := 0; i < 7; i++ {
		state.IncExecs()
	}
	ClearProgress(state, "s")

	if ShouldRestart(state, "s") {
		t.Error("expected a fresh start immediately after ClearProgress")
	}
	if got := ExecsSinceProgressStart(state, "s"); got != 0 {
		t.Errorf("expected execs_since_progress_start = 0 right after ClearProgress, got %d", got)
	}
}

func TestBudgetUndrawnUntilSet(t *testing.T) {
	state := newRestartTestState(t)
	ShouldRestart(state, "s")
	if _, ok := Budget(state, "s"); ok {
		t.Error("expected no budget before SetBudget is called")
	}
}

func TestBudgetSurvivesRestartWithoutRedrawing(t *testing.T) {
	state := newRestartTestState(t)
	ShouldRestart(state, "s")
	SetBudget(state, "s", 42)

	if !ShouldRestart(state, "s") {
		t.Fatal("expected a restart")
	}
	got, ok := Budget(state, "s")
	if !ok || got != 42 {
		t.Errorf("expected the original budget 42 to survive a restart, got %d (ok=%v)", got, ok)
	}
}

func TestClearProgressResetsBudget(t *testing.T) {
	state := newRestartTestState(t)
	ShouldRestart(state, "s")
	SetBudget(state, "s", 42)
	ClearProgress(state, "s")

	if _, ok := Budget(state, "s"); ok {
		t.Error("expected ClearProgress to reset the budget to undrawn")
	}
}

func TestSnapshotAndRestoreRestartRoundTripBudget(t *testing.T) {
	state := newRestartTestState(t)
	ShouldRestart(state, "s")
	SetBudget(state, "s", 99)

	startExecs, active, budget := SnapshotRestart(state, "s")

	fresh := newRestartTestState(t)
	RestoreRestart(fresh, "s", startExecs, active, budget)

	if !ShouldRestart(fresh, "s") {
		t.Fatal("expected the restored snapshot to report an active restart")
	}
	got, ok := Budget(fresh, "s")
	if !ok || got != 99 {
		t.Errorf("expected the restored budget 99, got %d (ok=%v)", got, ok)
	}
}

func TestRestartBookkeepingIsPerStageName(t *testing.T) {
	state := newRestartTestState(t)
	ShouldRestart(state, "a")
	for i := 0; i < 3; i++ {
		state.IncExecs()
	}
	// "b" has never run: it must report a fresh start independent of "a".
	if ShouldRestart(state, "b") {
		t.Error("expected an unrelated stage name to start fresh")
	}
	if got := ExecsSinceProgressStart(state, "b"); got != 0 {
		t.Errorf("expected stage b's baseline to be independent of stage a, got %d", got)
	}
}
