package feedback

import (
	"github.com/coverfuzz/kernel/internal/corpus"
	"github.com/coverfuzz/kernel/internal/events"
	"github.com/coverfuzz/kernel/internal/executor"
	"github.com/coverfuzz/kernel/internal/fuzzstate"
	"github.com/coverfuzz/kernel/internal/observer"
)

// CrashFeedback reports interesting whenever the run crashed.
func CrashFeedback[Input any]() Feedback[Input] {
	return &exitKindLeafOf[Input]{name: "crash", test: executor.ExitKind.IsCrash}
}

// TimeoutFeedback reports interesting whenever the run timed out.
func TimeoutFeedback[Input any]() Feedback[Input] {
	return &exitKindLeafOf[Input]{name: "timeout", test: executor.ExitKind.IsTimeout}
}

// DiffExitKindFeedback reports interesting whenever the run's two
// differential observations disagree.
func DiffExitKindFeedback[Input any]() Feedback[Input] {
	return &exitKindLeafOf[Input]{name: "diff", test: executor.ExitKind.IsDiff}
}

// exitKindLeafOf is a leaf predicate over the run's ExitKind, with no
// metadata to track, grounded on the teacher's owasp detectors that
// classify a response by a single discriminant field.
type exitKindLeafOf[Input any] struct {
	leafState
	name string
	test func(executor.ExitKind) bool
}

func (f *exitKindLeafOf[Input]) Name() string { return f.name }

func (f *exitKindLeafOf[Input]) InitState(state *fuzzstate.State[Input]) error { return nil }

func (f *exitKindLeafOf[Input]) IsInteresting(state *fuzzstate.State[Input], mgr events.Manager, input Input, observers *observer.Tuple, exitKind executor.ExitKind) (bool, error) {
	result := f.test(exitKind)
	f.record(result)
	return result, nil
}

func (f *exitKindLeafOf[Input]) AppendMetadata(state *fuzzstate.State[Input], mgr events.Manager, observers *observer.Tuple, tc *corpus.Testcase[Input]) error {
	return nil
}

func (f *exitKindLeafOf[Input]) DiscardMetadata(state *fuzzstate.State[Input], input Input) error {
	return nil
}

// TrueLeaves implements HitAttributor.
func (f *exitKindLeafOf[Input]) TrueLeaves() ([]string, error) {
	result, err := f.LastResult()
	if err != nil {
		return nil, err
	}
	if !result {
		return nil, nil
	}
	return []string{f.name}, nil
}

// TimeFeedback never itself flags an input interesting; it exists purely
// to attach the TimeObserver's measured duration onto an accepted
// testcase. Combine with EagerOr so it still runs (and records) on every
// evaluation, whichever corpus the run ultimately lands in or doesn't.
// Grounded on the teacher's coverage.Tracker.RecordExecTime.
type TimeFeedback[Input any] struct {
	leafState
	name   string
	handle observer.Handle[*observer.TimeObserver]
}

// NewTimeFeedback builds a TimeFeedback resolving the named TimeObserver
// from the run's observer tuple.
func NewTimeFeedback[Input any](name string, handle observer.Handle[*observer.TimeObserver]) *TimeFeedback[Input] {
	return &TimeFeedback[Input]{name: name, handle: handle}
}

func (f *TimeFeedback[Input]) Name() string { return f.name }

func (f *TimeFeedback[Input]) InitState(state *fuzzstate.State[Input]) error { return nil }

func (f *TimeFeedback[Input]) IsInteresting(state *fuzzstate.State[Input], mgr events.Manager, input Input, observers *observer.Tuple, exitKind executor.ExitKind) (bool, error) {
	f.record(false)
	return false, nil
}

// AppendMetadata resolves the TimeObserver and stamps its measured
// duration onto tc.ExecTime.
func (f *TimeFeedback[Input]) AppendMetadata(state *fuzzstate.State[Input], mgr events.Manager, observers *observer.Tuple, tc *corpus.Testcase[Input]) error {
	obs, err := observer.Resolve(observers, f.handle)
	if err != nil {
		return err
	}
	nanos := obs.LastExecTime().Nanoseconds()
	tc.ExecTime = &nanos
	return nil
}

func (f *TimeFeedback[Input]) DiscardMetadata(state *fuzzstate.State[Input], input Input) error {
	return nil
}

// TrueLeaves implements HitAttributor: TimeFeedback never contributes to
// attribution since it never reports true.
func (f *TimeFeedback[Input]) TrueLeaves() ([]string, error) {
	if _, err := f.LastResult(); err != nil {
		return nil, err
	}
	return nil, nil
}
