package stage

import (
	"context"
	"time"

	"github.com/coverfuzz/kernel/internal/corpus"
	"github.com/coverfuzz/kernel/internal/events"
	"github.com/coverfuzz/kernel/internal/fuzzer"
	"github.com/coverfuzz/kernel/internal/fuzzstate"
)

// MutationalStage realizes the mutational stage engine (spec §4.3–§4.5):
// obtain the scheduled testcase, transform it into a mutable working
// form, then iterate a mutate→execute→classify→persist cycle a fixed
// number of times, for a fixed duration, both, or until a randomized
// default budget (minus executions already attributed across a restart)
// is exhausted.
type MutationalStage[Input any, M Cloneable[M]] struct {
	// Name identifies this stage instance's tunables and restart
	// bookkeeping in State's named-metadata map. Use DefaultStageName
	// for a singleton mutational stage.
	Name      string
	Transform Transform[Input, M]
	Mutator   Mutator[Input, M]
}

// NewMutationalStage builds a MutationalStage named name.
func NewMutationalStage[Input any, M Cloneable[M]](name string, transform Transform[Input, M], mutator Mutator[Input, M]) *MutationalStage[Input, M] {
	return &MutationalStage[Input, M]{Name: name, Transform: transform, Mutator: mutator}
}

// Perform implements fuzzer.Stage[Input].
func (s *MutationalStage[Input, M]) Perform(ctx context.Context, state *fuzzstate.State[Input], mgr events.Manager, f *fuzzer.Fuzzer[Input], id corpus.Id) error {
	ShouldRestart(state, s.Name)

	tc, err := state.Corpus().Get(id)
	if err != nil {
		return err
	}

	// The current-testcase borrow is released before the mutation loop
	// begins: Get already returned a pointer the corpus itself still
	// owns, and nothing below re-reads tc after this point.
	mutable, ok, err := s.Transform.TryTransformFrom(tc, state)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	tunables := GetTunables(state, s.Name)
	loopStart := time.Now()

	switch {
	case tunables.Iters != nil && tunables.FuzzTime != nil:
		for i := uint64(0); i < *tunables.Iters; i++ {
			if time.Since(loopStart) >= *tunables.FuzzTime {
				break
			}
			if err := s.iterate(ctx, state, mgr, f, mutable); err != nil {
				return err
			}
		}

	case tunables.FuzzTime != nil:
		for {
			if time.Since(loopStart) >= *tunables.FuzzTime {
				break
			}
			if err := s.iterate(ctx, state, mgr, f, mutable); err != nil {
				return err
			}
		}

	case tunables.Iters != nil:
		for i := uint64(0); i < *tunables.Iters; i++ {
			if err := s.iterate(ctx, state, mgr, f, mutable); err != nil {
				return err
			}
		}

	default:
		budget, drawn := Budget(state, s.Name)
		if !drawn {
			budget = uint64(1 + state.Rand().Intn(DefaultMutationalMaxIterations))
			SetBudget(state, s.Name, budget)
		}
		already := ExecsSinceProgressStart(state, s.Name)
		var remaining uint64
		if budget > already {
			remaining = budget - already
		}
		for i := uint64(0); i < remaining; i++ {
			if err := s.iterate(ctx, state, mgr, f, mutable); err != nil {
				return err
			}
		}
	}

	ClearProgress(state, s.Name)
	return nil
}

// iterate runs one perform_mutation cycle (spec §4.4): clone the
// transformed input, mutate the clone, lower it back for evaluation,
// then invoke the mutator's and transform's post-exec hooks in order. A
// Skipped mutation does not execute and does not count toward restart
// accounting, since the execution counter only advances inside
// fuzzer.EvaluateInput.
func (s *MutationalStage[Input, M]) iterate(ctx context.Context, state *fuzzstate.State[Input], mgr events.Manager, f *fuzzer.Fuzzer[Input], mutable M) error {
	clone := mutable.Clone()

	mutated, result, err := s.Mutator.Mutate(state, clone)
	if err != nil {
		return err
	}
	if result == Skipped {
		return nil
	}

	rawInput, post, err := s.Transform.TryTransformInto(mutated, state)
	if err != nil {
		return err
	}

	_, corpusID, err := f.EvaluateInput(ctx, state, mgr, rawInput)
	if err != nil {
		return err
	}

	if err := s.Mutator.PostExec(state, corpusID); err != nil {
		return err
	}
	return post.PostExec(state, corpusID)
}
