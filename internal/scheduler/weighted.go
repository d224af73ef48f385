package scheduler

import (
	"math"

	"github.com/coverfuzz/kernel/internal/corpus"
	"github.com/coverfuzz/kernel/internal/fuzzstate"
	"github.com/coverfuzz/kernel/internal/kerr"
)

// Weighted favors corpus entries with more attributed novelty, grounded on
// the teacher's coverage.InputScheduler.weights/UpdatePriority
// (weight = log2(edges+1)), generalized from a hard-coded CoverageStats
// field to a caller-supplied weight per Id.
type Weighted[Input any] struct {
	weights map[corpus.Id]float64
}

// NewWeighted creates a Weighted scheduler drawing from state's RNG at
// selection time.
func NewWeighted[Input any]() *Weighted[Input] {
	return &Weighted[Input]{weights: make(map[corpus.Id]float64)}
}

// SetWeight records a selection weight for id, typically
// log2(edgesCovered+1) the way the teacher's UpdatePriority computes it.
func (w *Weighted[Input]) SetWeight(id corpus.Id, edgesCovered int) {
	weight := 1.0
	if edgesCovered > 0 {
		weight = math.Log2(float64(edgesCovered) + 1)
	}
	w.weights[id] = weight
}

// Next implements Scheduler[Input]: weighted random selection over the
// main corpus, falling back to weight 1.0 for any entry without a
// recorded weight.
func (w *Weighted[Input]) Next(state *fuzzstate.State[Input]) (corpus.Id, error) {
	ids := state.Corpus().Ids()
	if len(ids) == 0 {
		return "", kerr.New(kerr.CorpusFailure, "scheduler.Next", nil)
	}

	total := 0.0
	for _, id := range ids {
		total += w.weightOf(id)
	}

	target := state.Rand().Float64() * total
	cumulative := 0.0
	for _, id := range ids {
		cumulative += w.weightOf(id)
		if cumulative >= target {
			return id, nil
		}
	}
	return ids[len(ids)-1], nil
}

func (w *Weighted[Input]) weightOf(id corpus.Id) float64 {
	if v, ok := w.weights[id]; ok {
		return v
	}
	return 1.0
}

// OnAdd implements Scheduler[Input]: new entries start at the default
// weight until a feedback calls SetWeight.
func (w *Weighted[Input]) OnAdd(state *fuzzstate.State[Input], id corpus.Id) error { return nil }

// OnReplace implements Scheduler[Input].
func (w *Weighted[Input]) OnReplace(state *fuzzstate.State[Input], id corpus.Id, previous *corpus.Testcase[Input]) error {
	return nil
}

// OnRemove implements Scheduler[Input]: drops the stale weight entry.
func (w *Weighted[Input]) OnRemove(state *fuzzstate.State[Input], id corpus.Id) error {
	delete(w.weights, id)
	return nil
}
