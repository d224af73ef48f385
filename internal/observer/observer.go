// Package observer defines the kernel's Observer collaborator: an opaque,
// named, per-run data source addressed through a typed Handle rather than
// owned directly by the feedbacks that read it.
package observer

import "github.com/coverfuzz/kernel/internal/kerr"

// Observer is a per-run data collector: a coverage bitmap, a timer, or any
// custom instrumentation the harness wires up. The kernel never interprets
// an Observer's contents itself — only a Handle-typed accessor does.
type Observer interface {
	// Name is the observer's stable, unique identity within a Tuple.
	Name() string
	// Reset clears per-run state; called before every execution.
	Reset() error
}

// PostExecObserver is an optional capability: an Observer that wants to
// finalize its state after the harness has returned, given the run's
// ExitKind. Observers that don't need this simply don't implement it.
type PostExecObserver interface {
	Observer
	PostExec(exitKind int) error
}

// Handle is a typed, named address into an observer Tuple. It is
// constructed once (typically alongside the Observer it targets) and
// resolved at use time, never holding a direct reference — this is what
// lets feedbacks and observers be declared independently of each other's
// concrete types.
type Handle[T any] struct {
	name string
}

// NewHandle creates a Handle identifying the observer named name.
func NewHandle[T any](name string) Handle[T] {
	return Handle[T]{name: name}
}

// Name returns the handle's target observer name.
func (h Handle[T]) Name() string { return h.name }

// Tuple is the ordered collection of observers registered on a fuzzer.
// Every observer a feedback resolves by handle must have been registered
// here before any run.
type Tuple struct {
	order []Observer
	index map[string]int
}

// NewTuple builds a Tuple from a fixed set of observers. Observer names
// must be unique.
func NewTuple(observers ...Observer) *Tuple {
	t := &Tuple{
		order: make([]Observer, 0, len(observers)),
		index: make(map[string]int, len(observers)),
	}
	for _, o := range observers {
		t.order = append(t.order, o)
		t.index[o.Name()] = len(t.order) - 1
	}
	return t
}

// ResetAll resets every registered observer; called once before each run.
func (t *Tuple) ResetAll() error {
	for _, o := range t.order {
		if err := o.Reset(); err != nil {
			return kerr.New(kerr.ExecutorFailure, "observer.ResetAll", err)
		}
	}
	return nil
}

// PostExecAll invokes PostExec on every observer that implements
// PostExecObserver, after the harness has returned.
func (t *Tuple) PostExecAll(exitKind int) error {
	for _, o := range t.order {
		if p, ok := o.(PostExecObserver); ok {
			if err := p.PostExec(exitKind); err != nil {
				return kerr.New(kerr.ExecutorFailure, "observer.PostExecAll", err)
			}
		}
	}
	return nil
}

// Len returns the number of registered observers.
func (t *Tuple) Len() int { return len(t.order) }

// byName looks up an observer by its registered name.
func (t *Tuple) byName(name string) (Observer, bool) {
	idx, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.order[idx], true
}

// Resolve looks up the observer addressed by h and asserts it to T. A
// missing name or a type mismatch is always an error — lookups by handle
// never silently ignore misses.
func Resolve[T any](t *Tuple, h Handle[T]) (T, error) {
	var zero T
	obs, ok := t.byName(h.name)
	if !ok {
		return zero, kerr.New(kerr.UnknownObserver, "observer.Resolve", nil)
	}
	typed, ok := obs.(T)
	if !ok {
		return zero, kerr.New(kerr.UnknownObserver, "observer.Resolve", nil)
	}
	return typed, nil
}
