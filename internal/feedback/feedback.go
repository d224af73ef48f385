// Package feedback implements the kernel's interestingness oracle: a short-
// circuiting boolean algebra over observer data, composable via EagerOr,
// FastOr, EagerAnd, FastAnd and Not, grounded on the teacher's
// coverage.FeedbackLoop novelty check but generalized into a composable
// tree instead of one hard-coded "new coverage" test.
package feedback

import (
	"github.com/coverfuzz/kernel/internal/corpus"
	"github.com/coverfuzz/kernel/internal/events"
	"github.com/coverfuzz/kernel/internal/executor"
	"github.com/coverfuzz/kernel/internal/fuzzstate"
	"github.com/coverfuzz/kernel/internal/kerr"
	"github.com/coverfuzz/kernel/internal/observer"
)

// Feedback is the interestingness oracle. Every method but IsInteresting
// is best-effort bookkeeping: InitState installs metadata idempotently,
// AppendMetadata/DiscardMetadata let a feedback clean up tentative state
// depending on whether its positive verdict led to a corpus insertion.
type Feedback[Input any] interface {
	Name() string
	InitState(state *fuzzstate.State[Input]) error
	IsInteresting(state *fuzzstate.State[Input], mgr events.Manager, input Input, observers *observer.Tuple, exitKind executor.ExitKind) (bool, error)
	AppendMetadata(state *fuzzstate.State[Input], mgr events.Manager, observers *observer.Tuple, tc *corpus.Testcase[Input]) error
	DiscardMetadata(state *fuzzstate.State[Input], input Input) error
}

// HitAttributor is the optional capability a Feedback exposes when hit
// attribution is enabled: LastResult caches the verdict of the most
// recent IsInteresting call, and TrueLeaves reports the ordered list of
// leaf feedback names "contributing to" that verdict, per the
// combinator-specific attribution rules documented on each TrueLeaves
// method.
type HitAttributor interface {
	LastResult() (bool, error)
	TrueLeaves() ([]string, error)
}

// leafState is the embeddable last-verdict cache every leaf and combinator
// uses to implement HitAttributor.
type leafState struct {
	set    bool
	result bool
}

func (l *leafState) record(v bool) { l.set = true; l.result = v }

func (l *leafState) LastResult() (bool, error) {
	if !l.set {
		return false, kerr.New(kerr.IllegalState, "feedback.LastResult", nil)
	}
	return l.result, nil
}
