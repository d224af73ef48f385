package feedback

import (
	"github.com/coverfuzz/kernel/internal/corpus"
	"github.com/coverfuzz/kernel/internal/events"
	"github.com/coverfuzz/kernel/internal/executor"
	"github.com/coverfuzz/kernel/internal/fuzzstate"
	"github.com/coverfuzz/kernel/internal/observer"
)

// or is the shared implementation for EagerOr/FastOr: a∨b, differing only
// in whether b is still evaluated once a is already known true.
type or[Input any] struct {
	leafState
	a, b  Feedback[Input]
	eager bool
	// bEvaluated records whether b actually ran this round, so
	// TrueLeaves can tell a fast short-circuit apart from an eager
	// evaluation that merely happened to agree with a.
	bEvaluated bool
	aResult    bool
	bResult    bool
}

// EagerOr composes a and b with a∨b, always evaluating both — required
// whenever either child's IsInteresting has a side effect that must run
// regardless of the final verdict (e.g. TimeFeedback's metadata-only hook,
// or a novelty feedback that must update its accumulated state every run).
func EagerOr[Input any](a, b Feedback[Input]) Feedback[Input] {
	return &or[Input]{a: a, b: b, eager: true}
}

// FastOr composes a and b with a∨b, skipping b once a is already true.
func FastOr[Input any](a, b Feedback[Input]) Feedback[Input] {
	return &or[Input]{a: a, b: b, eager: false}
}

func (o *or[Input]) Name() string { return "(" + o.a.Name() + " or " + o.b.Name() + ")" }

func (o *or[Input]) InitState(state *fuzzstate.State[Input]) error {
	if err := o.a.InitState(state); err != nil {
		return err
	}
	return o.b.InitState(state)
}

func (o *or[Input]) IsInteresting(state *fuzzstate.State[Input], mgr events.Manager, input Input, observers *observer.Tuple, exitKind executor.ExitKind) (bool, error) {
	aResult, err := o.a.IsInteresting(state, mgr, input, observers, exitKind)
	if err != nil {
		return false, err
	}
	o.aResult = aResult
	o.bEvaluated = o.eager || !aResult

	if !o.bEvaluated {
		o.record(aResult)
		return aResult, nil
	}

	bResult, err := o.b.IsInteresting(state, mgr, input, observers, exitKind)
	if err != nil {
		return false, err
	}
	o.bResult = bResult

	result := aResult || bResult
	o.record(result)
	return result, nil
}

func (o *or[Input]) AppendMetadata(state *fuzzstate.State[Input], mgr events.Manager, observers *observer.Tuple, tc *corpus.Testcase[Input]) error {
	if err := o.a.AppendMetadata(state, mgr, observers, tc); err != nil {
		return err
	}
	return o.b.AppendMetadata(state, mgr, observers, tc)
}

func (o *or[Input]) DiscardMetadata(state *fuzzstate.State[Input], input Input) error {
	if err := o.a.DiscardMetadata(state, input); err != nil {
		return err
	}
	return o.b.DiscardMetadata(state, input)
}

// TrueLeaves implements HitAttributor: OR reports the first true leaf.
// If b was short-circuited away by FastOr, it is treated as absent even
// though it may well also have been true. Mirrors the open question in
// the spec: even EagerOr's attribution delegates to this same
// first-true-leaf rule, so the "both evaluated" fact is not reflected in
// the attributed set — only in side effects already applied.
func (o *or[Input]) TrueLeaves() ([]string, error) {
	if _, err := o.LastResult(); err != nil {
		return nil, err
	}
	if o.aResult {
		return leafNamesOf(o.a)
	}
	if o.bEvaluated && o.bResult {
		return leafNamesOf(o.b)
	}
	return nil, nil
}

// and is the shared implementation for EagerAnd/FastAnd: a∧b, differing
// only in whether b is still evaluated once a is already known false.
type and[Input any] struct {
	leafState
	a, b       Feedback[Input]
	eager      bool
	bEvaluated bool
	aResult    bool
	bResult    bool
}

// EagerAnd composes a and b with a∧b, always evaluating both.
func EagerAnd[Input any](a, b Feedback[Input]) Feedback[Input] {
	return &and[Input]{a: a, b: b, eager: true}
}

// FastAnd composes a and b with a∧b, skipping b once a is already false.
func FastAnd[Input any](a, b Feedback[Input]) Feedback[Input] {
	return &and[Input]{a: a, b: b, eager: false}
}

func (n *and[Input]) Name() string { return "(" + n.a.Name() + " and " + n.b.Name() + ")" }

func (n *and[Input]) InitState(state *fuzzstate.State[Input]) error {
	if err := n.a.InitState(state); err != nil {
		return err
	}
	return n.b.InitState(state)
}

func (n *and[Input]) IsInteresting(state *fuzzstate.State[Input], mgr events.Manager, input Input, observers *observer.Tuple, exitKind executor.ExitKind) (bool, error) {
	aResult, err := n.a.IsInteresting(state, mgr, input, observers, exitKind)
	if err != nil {
		return false, err
	}
	n.aResult = aResult
	n.bEvaluated = n.eager || aResult

	if !n.bEvaluated {
		n.record(false)
		return false, nil
	}

	bResult, err := n.b.IsInteresting(state, mgr, input, observers, exitKind)
	if err != nil {
		return false, err
	}
	n.bResult = bResult

	result := aResult && bResult
	n.record(result)
	return result, nil
}

func (n *and[Input]) AppendMetadata(state *fuzzstate.State[Input], mgr events.Manager, observers *observer.Tuple, tc *corpus.Testcase[Input]) error {
	if err := n.a.AppendMetadata(state, mgr, observers, tc); err != nil {
		return err
	}
	return n.b.AppendMetadata(state, mgr, observers, tc)
}

func (n *and[Input]) DiscardMetadata(state *fuzzstate.State[Input], input Input) error {
	if err := n.a.DiscardMetadata(state, input); err != nil {
		return err
	}
	return n.b.DiscardMetadata(state, input)
}

// TrueLeaves implements HitAttributor: AND reports both leaves when both
// are true, none otherwise.
func (n *and[Input]) TrueLeaves() ([]string, error) {
	result, err := n.LastResult()
	if err != nil {
		return nil, err
	}
	if !result {
		return nil, nil
	}
	aNames, err := leafNamesOf(n.a)
	if err != nil {
		return nil, err
	}
	bNames, err := leafNamesOf(n.b)
	if err != nil {
		return nil, err
	}
	return append(aNames, bNames...), nil
}

// not inverts a single feedback's verdict.
type not[Input any] struct {
	leafState
	inner Feedback[Input]
}

// Not inverts inner's verdict.
func Not[Input any](inner Feedback[Input]) Feedback[Input] {
	return &not[Input]{inner: inner}
}

func (n *not[Input]) Name() string { return "not(" + n.inner.Name() + ")" }

func (n *not[Input]) InitState(state *fuzzstate.State[Input]) error {
	return n.inner.InitState(state)
}

func (n *not[Input]) IsInteresting(state *fuzzstate.State[Input], mgr events.Manager, input Input, observers *observer.Tuple, exitKind executor.ExitKind) (bool, error) {
	result, err := n.inner.IsInteresting(state, mgr, input, observers, exitKind)
	if err != nil {
		return false, err
	}
	inverted := !result
	n.record(inverted)
	return inverted, nil
}

func (n *not[Input]) AppendMetadata(state *fuzzstate.State[Input], mgr events.Manager, observers *observer.Tuple, tc *corpus.Testcase[Input]) error {
	return n.inner.AppendMetadata(state, mgr, observers, tc)
}

func (n *not[Input]) DiscardMetadata(state *fuzzstate.State[Input], input Input) error {
	return n.inner.DiscardMetadata(state, input)
}

// TrueLeaves implements HitAttributor: Not inverts its child's reported
// set — true iff the child was false, in which case Not itself is the
// attributed leaf.
func (n *not[Input]) TrueLeaves() ([]string, error) {
	result, err := n.LastResult()
	if err != nil {
		return nil, err
	}
	if !result {
		return nil, nil
	}
	return []string{n.Name()}, nil
}

// constant is a gating feedback whose verdict never depends on the run.
type constant[Input any] struct {
	leafState
	name  string
	value bool
}

// True returns a Feedback that always reports interesting.
func True[Input any]() Feedback[Input] { return &constant[Input]{name: "true", value: true} }

// False returns a Feedback that always reports not interesting.
func False[Input any]() Feedback[Input] { return &constant[Input]{name: "false", value: false} }

func (c *constant[Input]) Name() string { return c.name }

func (c *constant[Input]) InitState(state *fuzzstate.State[Input]) error { return nil }

func (c *constant[Input]) IsInteresting(state *fuzzstate.State[Input], mgr events.Manager, input Input, observers *observer.Tuple, exitKind executor.ExitKind) (bool, error) {
	c.record(c.value)
	return c.value, nil
}

func (c *constant[Input]) AppendMetadata(state *fuzzstate.State[Input], mgr events.Manager, observers *observer.Tuple, tc *corpus.Testcase[Input]) error {
	return nil
}

func (c *constant[Input]) DiscardMetadata(state *fuzzstate.State[Input], input Input) error {
	return nil
}

// TrueLeaves implements HitAttributor: a constant reports its own name
// when true.
func (c *constant[Input]) TrueLeaves() ([]string, error) {
	result, err := c.LastResult()
	if err != nil {
		return nil, err
	}
	if !result {
		return nil, nil
	}
	return []string{c.name}, nil
}

// leafNamesOf fetches f's attributed names if f implements HitAttributor,
// or falls back to [f.Name()] otherwise (a plain leaf that doesn't track
// last-result still contributes its own name when its parent already
// knows it was true).
func leafNamesOf[Input any](f Feedback[Input]) ([]string, error) {
	if a, ok := f.(interface{ TrueLeaves() ([]string, error) }); ok {
		return a.TrueLeaves()
	}
	return []string{f.Name()}, nil
}
