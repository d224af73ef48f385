package stage

import "github.com/coverfuzz/kernel/internal/fuzzstate"

// progressSnapshot is the restart bookkeeping ShouldRestart, SetBudget and
// ClearProgress keep in named metadata: the execution-counter value observed when
// this stage's current unit of progress began, plus the randomized
// iteration budget drawn for that unit of progress (0 until the
// randomized-default policy draws one). Persisting budget alongside
// startExecs/active is what lets a restart resume against the same draw
// instead of drawing a fresh one from wherever the RNG stream happens to
// sit after the interruption.
type progressSnapshot struct {
	startExecs uint64
	active     bool
	budget     uint64
}

func restartKey(name string) string { return name + "/restart" }

// ShouldRestart decides whether a prior, incomplete run of the stage
// named name must be resumed. The first call since the last
// ClearProgress snapshots the current execution count and reports false
// (a fresh start); any subsequent call before ClearProgress reports true
// and leaves the original snapshot untouched, so ExecsSinceProgressStart
// keeps counting from when progress actually began, not from now.
func ShouldRestart[Input any](state *fuzzstate.State[Input], name string) bool {
	key := restartKey(name)
	if existing, ok := fuzzstate.NamedGet[progressSnapshot](state.Metadata(), key); ok && existing.active {
		return true
	}
	fuzzstate.NamedSet(state.Metadata(), key, progressSnapshot{startExecs: state.Execs(), active: true})
	return false
}

// ExecsSinceProgressStart returns the number of executions attributed to
// stage name since its progress snapshot began (0 if no snapshot is
// active). Used only by the randomized-budget policy, so a stage
// resumed mid-way does not re-run iterations already performed.
func ExecsSinceProgressStart[Input any](state *fuzzstate.State[Input], name string) uint64 {
	snap, ok := fuzzstate.NamedGet[progressSnapshot](state.Metadata(), restartKey(name))
	if !ok || !snap.active {
		return 0
	}
	current := state.Execs()
	if current < snap.startExecs {
		return 0
	}
	return current - snap.startExecs
}

// ClearProgress marks stage name's progress complete, so the next
// ShouldRestart call starts a fresh snapshot (and the next randomized
// budget draw starts from a clean budget of 0, i.e. undrawn).
func ClearProgress[Input any](state *fuzzstate.State[Input], name string) {
	fuzzstate.NamedSet(state.Metadata(), restartKey(name), progressSnapshot{})
}

// Budget returns the randomized iteration budget recorded for stage
// name's current progress snapshot, and whether one has been drawn yet.
// Used only by the randomized-default mutational policy: the first
// Perform call in a progress period draws a budget and records it via
// SetBudget; every subsequent call (including one after a process
// restart, via RestoreRestart) reuses the same value instead of drawing
// again.
func Budget[Input any](state *fuzzstate.State[Input], name string) (uint64, bool) {
	snap, ok := fuzzstate.NamedGet[progressSnapshot](state.Metadata(), restartKey(name))
	if !ok || !snap.active || snap.budget == 0 {
		return 0, false
	}
	return snap.budget, true
}

// SetBudget records budget as the randomized iteration budget drawn for
// stage name's current progress snapshot.
func SetBudget[Input any](state *fuzzstate.State[Input], name string, budget uint64) {
	snap, ok := fuzzstate.NamedGet[progressSnapshot](state.Metadata(), restartKey(name))
	if !ok {
		snap = progressSnapshot{startExecs: state.Execs(), active: true}
	}
	snap.budget = budget
	fuzzstate.NamedSet(state.Metadata(), restartKey(name), snap)
}

// SnapshotRestart exposes stage name's restart bookkeeping in a form a
// persistence layer (internal/statefile) can serialize without depending
// on this package's unexported progressSnapshot type.
func SnapshotRestart[Input any](state *fuzzstate.State[Input], name string) (startExecs uint64, active bool, budget uint64) {
	snap, ok := fuzzstate.NamedGet[progressSnapshot](state.Metadata(), restartKey(name))
	if !ok {
		return 0, false, 0
	}
	return snap.startExecs, snap.active, snap.budget
}

// RestoreRestart installs stage name's restart bookkeeping from a
// previously-serialized snapshot, the counterpart to SnapshotRestart used
// when resuming a campaign from disk.
func RestoreRestart[Input any](state *fuzzstate.State[Input], name string, startExecs uint64, active bool, budget uint64) {
	fuzzstate.NamedSet(state.Metadata(), restartKey(name), progressSnapshot{startExecs: startExecs, active: active, budget: budget})
}
