// Package fuzzer implements the top-level orchestrator wiring a scheduler,
// an interestingness feedback, an objective feedback, and an executor:
// evaluate one input (execute → observe → classify → persist), and drive
// a stage pipeline over scheduled corpus entries.
package fuzzer

import (
	"context"

	"github.com/coverfuzz/kernel/internal/corpus"
	"github.com/coverfuzz/kernel/internal/events"
	"github.com/coverfuzz/kernel/internal/executor"
	"github.com/coverfuzz/kernel/internal/feedback"
	"github.com/coverfuzz/kernel/internal/fuzzstate"
	"github.com/coverfuzz/kernel/internal/kerr"
	"github.com/coverfuzz/kernel/internal/observer"
	"github.com/coverfuzz/kernel/internal/scheduler"
)

// Verdict classifies the outcome of one EvaluateInput call.
type Verdict int

const (
	// Rejected means the input was neither interesting nor an objective
	// hit, and was not persisted anywhere.
	Rejected Verdict = iota
	// Interesting means the input was inserted into the main corpus.
	Interesting
	// Objective means the input was inserted into the solutions corpus.
	// Takes precedence over Interesting when both feedbacks agree.
	Objective
)

func (v Verdict) String() string {
	switch v {
	case Rejected:
		return "rejected"
	case Interesting:
		return "interesting"
	case Objective:
		return "objective"
	default:
		return "unknown"
	}
}

// Stage is one unit of per-scheduled-entry work a Fuzzer's Run loop
// drives; satisfied structurally by internal/stage.Tuple without an
// import, since internal/stage itself depends on this package for
// EvaluateInput.
type Stage[Input any] interface {
	Perform(ctx context.Context, state *fuzzstate.State[Input], mgr events.Manager, f *Fuzzer[Input], id corpus.Id) error
}

// Fuzzer wires a scheduler, an interestingness feedback, an objective
// feedback, an executor, and the observer tuple they share. The fuzzing
// context lives in the caller-owned State, but the feedback trees keep
// per-call fields (last verdicts, pending novelty) and the observers hold
// per-run data, so each concurrently running peer needs its own Fuzzer.
type Fuzzer[Input any] struct {
	Feedback  feedback.Feedback[Input]
	Objective feedback.Feedback[Input]
	Executor  executor.Executor[Input]
	Observers *observer.Tuple
	Scheduler scheduler.Scheduler[Input]
}

// New builds a Fuzzer from its collaborators.
func New[Input any](fb, objective feedback.Feedback[Input], exec executor.Executor[Input], observers *observer.Tuple, sched scheduler.Scheduler[Input]) *Fuzzer[Input] {
	return &Fuzzer[Input]{
		Feedback:  fb,
		Objective: objective,
		Executor:  exec,
		Observers: observers,
		Scheduler: sched,
	}
}

// InitState runs InitState on both the interestingness and objective
// feedback trees, idempotently.
func (f *Fuzzer[Input]) InitState(state *fuzzstate.State[Input]) error {
	if err := f.Feedback.InitState(state); err != nil {
		return err
	}
	return f.Objective.InitState(state)
}

// EvaluateInput realizes the ordering guarantees of the kernel's
// concurrency model for a single input:
//  1. observers are reset
//  2. the executor runs
//  3. the interestingness feedback evaluates
//  4. the objective feedback evaluates
//  5. if objective true: solutions-corpus insert, append_metadata on the
//     objective feedback only, discard_metadata on the interestingness
//     feedback
//  6. else if interesting true: main-corpus insert, append_metadata on
//     the interestingness feedback
//  7. else: discard_metadata on both feedbacks
func (f *Fuzzer[Input]) EvaluateInput(ctx context.Context, state *fuzzstate.State[Input], mgr events.Manager, input Input) (Verdict, *corpus.Id, error) {
	if err := f.Observers.ResetAll(); err != nil {
		return Rejected, nil, err
	}

	exitKind, err := f.Executor.Run(ctx, f.Observers, input)
	if err != nil {
		return Rejected, nil, kerr.New(kerr.ExecutorFailure, "fuzzer.EvaluateInput", err)
	}

	state.IncExecs()

	interesting, err := f.Feedback.IsInteresting(state, mgr, input, f.Observers, exitKind)
	if err != nil {
		return Rejected, nil, err
	}

	objective, err := f.Objective.IsInteresting(state, mgr, input, f.Observers, exitKind)
	if err != nil {
		return Rejected, nil, err
	}

	switch {
	case objective:
		tc := corpus.NewTestcase(input)
		id, err := state.Solutions().Add(tc)
		if err != nil {
			return Rejected, nil, kerr.NewSolutionsFailure("fuzzer.EvaluateInput", err)
		}
		if err := f.Objective.AppendMetadata(state, mgr, f.Observers, tc); err != nil {
			return Rejected, nil, err
		}
		if err := f.Feedback.DiscardMetadata(state, input); err != nil {
			return Rejected, nil, err
		}
		if err := mgr.Fire(events.Event{Kind: events.Objective, Message: "objective hit", Fields: map[string]any{"id": string(id)}}); err != nil {
			return Rejected, nil, err
		}
		return Objective, &id, nil

	case interesting:
		tc := corpus.NewTestcase(input)
		id, err := state.Corpus().Add(tc)
		if err != nil {
			return Rejected, nil, kerr.New(kerr.CorpusFailure, "fuzzer.EvaluateInput", err)
		}
		if err := f.Feedback.AppendMetadata(state, mgr, f.Observers, tc); err != nil {
			return Rejected, nil, err
		}
		if f.Scheduler != nil {
			if err := f.Scheduler.OnAdd(state, id); err != nil {
				return Rejected, nil, err
			}
		}
		if err := mgr.Fire(events.Event{Kind: events.NewTestcase, Message: "new coverage", Fields: map[string]any{"id": string(id)}}); err != nil {
			return Rejected, nil, err
		}
		return Interesting, &id, nil

	default:
		if err := f.Feedback.DiscardMetadata(state, input); err != nil {
			return Rejected, nil, err
		}
		if err := f.Objective.DiscardMetadata(state, input); err != nil {
			return Rejected, nil, err
		}
		return Rejected, nil, nil
	}
}

// Run drives pipeline over scheduler-selected corpus entries until ctx is
// cancelled. pipeline is typically an *internal/stage.Tuple[Input],
// satisfying Stage[Input] structurally. A pipeline error aborts only the
// current entry; the error is reported via mgr unless it is a fatal
// corpus-failure on the solutions store, in which case Run returns it.
func (f *Fuzzer[Input]) Run(ctx context.Context, state *fuzzstate.State[Input], mgr events.Manager, pipeline Stage[Input]) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		id, err := f.Scheduler.Next(state)
		if err != nil {
			return err
		}
		state.SetCurrentTestcase(id)

		if err := pipeline.Perform(ctx, state, mgr, f, id); err != nil {
			state.ClearCurrentTestcase()
			if kerr.Fatal(err) {
				return err
			}
			_ = mgr.Fire(events.Event{Kind: events.Log, Message: err.Error()})
			if err := mgr.Process(); err != nil {
				return err
			}
			continue
		}
		state.ClearCurrentTestcase()

		if err := mgr.Process(); err != nil {
			return err
		}
	}
}
