// Package stage implements one unit of per-scheduled-entry work — the
// ordered stage pipeline and its centerpiece, the mutational stage
// engine: a restart-safe, time- and/or count-bounded mutate-execute-
// classify-persist loop over one corpus entry.
package stage

import (
	"context"

	"github.com/coverfuzz/kernel/internal/corpus"
	"github.com/coverfuzz/kernel/internal/events"
	"github.com/coverfuzz/kernel/internal/fuzzer"
	"github.com/coverfuzz/kernel/internal/fuzzstate"
)

// Tuple is a heterogeneous, ordered pipeline of stages. For a scheduled
// corpus entry, each stage runs in order; a stage returning an error
// aborts the current entry immediately without running the remaining
// stages, but does not itself stop the fuzzer — that policy lives in
// fuzzer.Fuzzer.Run, which Tuple is driven by.
type Tuple[Input any] struct {
	stages []fuzzer.Stage[Input]
}

// NewTuple builds an ordered stage pipeline.
func NewTuple[Input any](stages ...fuzzer.Stage[Input]) *Tuple[Input] {
	return &Tuple[Input]{stages: stages}
}

// Perform implements fuzzer.Stage[Input]: runs every stage in order,
// stopping at the first error.
func (t *Tuple[Input]) Perform(ctx context.Context, state *fuzzstate.State[Input], mgr events.Manager, f *fuzzer.Fuzzer[Input], id corpus.Id) error {
	for _, s := range t.stages {
		if err := s.Perform(ctx, state, mgr, f, id); err != nil {
			return err
		}
	}
	return nil
}
