package scheduler

import (
	"testing"

	"github.com/coverfuzz/kernel/internal/corpus"
	"github.com/coverfuzz/kernel/internal/fuzzstate"
)

func newStateWithEntries(t *testing.T, n int) (*fuzzstate.State[[]byte], []corpus.Id) {
	t.Helper()
	main := corpus.NewMemory[[]byte]()
	s := fuzzstate.New[[]byte](7, main, corpus.NewMemory[[]byte]())
	var ids []corpus.Id
	for i := 0; i < n; i++ {
		id, err := main.Add(corpus.NewTestcase([]byte{byte(i)}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ids = append(ids, id)
	}
	return s, ids
}

func TestRoundRobinEmptyCorpusErrors(t *testing.T) {
	s := fuzzstate.New[[]byte](1, corpus.NewMemory[[]byte](), corpus.NewMemory[[]byte]())
	rr := NewRoundRobin[[]byte]()
	if _, err := rr.Next(s); err == nil {
		t.Fatal("expected an error scheduling from an empty corpus")
	}
}

func TestRoundRobinCyclesAllEntries(t *testing.T) {
	s, ids := newStateWithEntries(t, 3)
	rr := NewRoundRobin[[]byte]()

	seen := make(map[corpus.Id]int)
	for i := 0; i < 6; i++ {
		id, err := rr.Next(s)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen[id]++
	}
	for _, id := range ids {
		if seen[id] != 2 {
			t.Errorf("expected entry %v to be scheduled exactly twice over 6 picks, got %d", id, seen[id])
		}
	}
}

func TestWeightedFavorsHigherWeight(t *testing.T) {
	s, ids := newStateWithEntries(t, 2)
	w := NewWeighted[[]byte]()
	w.SetWeight(ids[0], 0)    // weight 1.0
	w.SetWeight(ids[1], 1000) // large weight

	counts := make(map[corpus.Id]int)
	for i := 0; i < 200; i++ {
		id, err := w.Next(s)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		counts[id]++
	}
	if counts[ids[1]] <= counts[ids[0]] {
		t.Errorf("expected the heavily-weighted entry to be picked more often: %v", counts)
	}
}

func TestWeightedOnRemoveDropsWeight(t *testing.T) {
	s, ids := newStateWithEntries(t, 1)
	w := NewWeighted[[]byte]()
	w.SetWeight(ids[0], 5)

	if err := w.OnRemove(s, ids[0]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := w.weights[ids[0]]; ok {
		t.Error("expected OnRemove to drop the stale weight")
	}
}
