// Package scheduler chooses which corpus entry the fuzzer works on next.
package scheduler

import (
	"github.com/coverfuzz/kernel/internal/corpus"
	"github.com/coverfuzz/kernel/internal/fuzzstate"
	"github.com/coverfuzz/kernel/internal/kerr"
)

// Scheduler selects the next corpus entry to fuzz and observes corpus
// membership changes so it can keep whatever bookkeeping it needs
// (priority weights, queue position) in sync.
type Scheduler[Input any] interface {
	Next(state *fuzzstate.State[Input]) (corpus.Id, error)
	OnAdd(state *fuzzstate.State[Input], id corpus.Id) error
	OnReplace(state *fuzzstate.State[Input], id corpus.Id, previous *corpus.Testcase[Input]) error
	OnRemove(state *fuzzstate.State[Input], id corpus.Id) error
}

// RoundRobin cycles through the main corpus in insertion order, wrapping
// around, the simplest scheduling policy and the one the teacher's
// coverage.InputScheduler.Next falls back to ("simple round-robin for
// now") once weighting is stripped out.
type RoundRobin[Input any] struct {
	cursor int
}

// NewRoundRobin creates a RoundRobin scheduler.
func NewRoundRobin[Input any]() *RoundRobin[Input] {
	return &RoundRobin[Input]{}
}

// Next implements Scheduler[Input].
func (r *RoundRobin[Input]) Next(state *fuzzstate.State[Input]) (corpus.Id, error) {
	ids := state.Corpus().Ids()
	if len(ids) == 0 {
		return "", kerr.New(kerr.CorpusFailure, "scheduler.Next", nil)
	}
	id := ids[r.cursor%len(ids)]
	r.cursor++
	return id, nil
}

// OnAdd implements Scheduler[Input]: round-robin needs no bookkeeping.
func (r *RoundRobin[Input]) OnAdd(state *fuzzstate.State[Input], id corpus.Id) error { return nil }

// OnReplace implements Scheduler[Input].
func (r *RoundRobin[Input]) OnReplace(state *fuzzstate.State[Input], id corpus.Id, previous *corpus.Testcase[Input]) error {
	return nil
}

// OnRemove implements Scheduler[Input].
func (r *RoundRobin[Input]) OnRemove(state *fuzzstate.State[Input], id corpus.Id) error { return nil }
