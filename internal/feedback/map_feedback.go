package feedback

import (
	"github.com/coverfuzz/kernel/internal/corpus"
	"github.com/coverfuzz/kernel/internal/events"
	"github.com/coverfuzz/kernel/internal/executor"
	"github.com/coverfuzz/kernel/internal/fuzzstate"
	"github.com/coverfuzz/kernel/internal/observer"
)

// mapNovelty is the committed novelty record a MapFeedback keeps in
// named metadata across runs: one bit per bitmap index that has ever been
// seen non-zero in an accepted testcase.
type mapNovelty struct {
	seen []bool
}

// MapFeedback reports interesting whenever a run exercises a bitmap index
// the feedback hasn't already committed to its corpus, grounded on the
// teacher's coverage.FeedbackLoop.IsInteresting (new-edge novelty check).
//
// Novelty bookkeeping is two-phase: IsInteresting only computes a
// *pending* set of newly-seen indices, scoped to this call, and does not
// touch the committed set. AppendMetadata merges pending into committed;
// DiscardMetadata simply drops pending. This means a run that was
// preempted by a higher-priority objective feedback (and so never
// reached AppendMetadata) doesn't silently "use up" novelty that could
// still be rediscovered by a later run — the spec requires the objective
// corpus to take precedence without disturbing the main corpus's
// novelty accounting.
type MapFeedback[Input any] struct {
	leafState
	name    string
	handle  observer.Handle[*observer.MapObserver]
	pending []int
}

// NewMapFeedback builds a MapFeedback resolving the named MapObserver
// from the run's observer tuple, storing its committed novelty bitmap
// under name in named metadata (so two MapFeedback instances over
// distinct observers don't collide).
func NewMapFeedback[Input any](name string, handle observer.Handle[*observer.MapObserver]) *MapFeedback[Input] {
	return &MapFeedback[Input]{name: name, handle: handle}
}

func (f *MapFeedback[Input]) Name() string { return f.name }

// InitState is a no-op: the committed novelty record is installed lazily
// by the first IsInteresting call, sized from the observer's bitmap
// length, since InitState doesn't receive the observer tuple.
func (f *MapFeedback[Input]) InitState(state *fuzzstate.State[Input]) error {
	return nil
}

// IsInteresting resolves the observer, snapshots its bitmap, and computes
// the pending set of indices not yet present in the committed novelty
// record. Reports interesting iff that pending set is non-empty. If no
// executor ever ran (and so no observer was populated this round), the
// snapshot is all zero and nothing is pending, so this correctly reports
// false.
func (f *MapFeedback[Input]) IsInteresting(state *fuzzstate.State[Input], mgr events.Manager, input Input, observers *observer.Tuple, exitKind executor.ExitKind) (bool, error) {
	obs, err := observer.Resolve(observers, f.handle)
	if err != nil {
		return false, err
	}
	snapshot := obs.Snapshot()
	committed := f.committedFor(state, len(snapshot))

	f.pending = f.pending[:0]
	for i, v := range snapshot {
		if v != 0 && !committed.seen[i] {
			f.pending = append(f.pending, i)
		}
	}

	result := len(f.pending) > 0
	f.record(result)
	return result, nil
}

func (f *MapFeedback[Input]) committedFor(state *fuzzstate.State[Input], size int) *mapNovelty {
	if existing, ok := fuzzstate.NamedGet[*mapNovelty](state.Metadata(), f.name); ok {
		if len(existing.seen) < size {
			grown := make([]bool, size)
			copy(grown, existing.seen)
			existing.seen = grown
		}
		return existing
	}
	fresh := &mapNovelty{seen: make([]bool, size)}
	fuzzstate.NamedSet(state.Metadata(), f.name, fresh)
	return fresh
}

// AppendMetadata merges the pending novelty indices computed by the most
// recent IsInteresting call into the committed record.
func (f *MapFeedback[Input]) AppendMetadata(state *fuzzstate.State[Input], mgr events.Manager, observers *observer.Tuple, tc *corpus.Testcase[Input]) error {
	obs, err := observer.Resolve(observers, f.handle)
	if err != nil {
		return err
	}
	committed := f.committedFor(state, obs.Len())
	for _, idx := range f.pending {
		committed.seen[idx] = true
	}
	f.pending = nil
	return nil
}

// DiscardMetadata drops the pending set without committing it, leaving
// previously-committed novelty untouched.
func (f *MapFeedback[Input]) DiscardMetadata(state *fuzzstate.State[Input], input Input) error {
	f.pending = nil
	return nil
}

// TrueLeaves implements HitAttributor.
func (f *MapFeedback[Input]) TrueLeaves() ([]string, error) {
	result, err := f.LastResult()
	if err != nil {
		return nil, err
	}
	if !result {
		return nil, nil
	}
	return []string{f.name}, nil
}
