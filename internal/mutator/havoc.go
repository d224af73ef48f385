package mutator

import (
	"github.com/coverfuzz/kernel/internal/corpus"
	"github.com/coverfuzz/kernel/internal/fuzzstate"
	"github.com/coverfuzz/kernel/internal/stage"
)

// Havoc implements stage.Mutator[[]byte, stage.ByteInput] by stacking
// between 1 and maxStack mutations drawn uniformly at random from a
// Registry each iteration, the way AFL's havoc stage applies several
// small mutations per execution rather than one.
type Havoc struct {
	registry *Registry
	maxStack int
}

// NewHavoc builds a Havoc over registry, stacking up to maxStack
// mutations per call (clamped to at least 1).
func NewHavoc(registry *Registry, maxStack int) *Havoc {
	if maxStack < 1 {
		maxStack = 1
	}
	return &Havoc{registry: registry, maxStack: maxStack}
}

// Mutate implements stage.Mutator: it stacks randomly-chosen mutators
// from the registry onto m, using state's seeded RNG so the sequence of
// mutations applied is reproducible given the state's seed. An empty
// registry yields Skipped rather than returning m unchanged, so the
// stage's restart accounting never counts an iteration that did nothing.
func (h *Havoc) Mutate(state *fuzzstate.State[[]byte], m stage.ByteInput) (stage.ByteInput, stage.MutationResult, error) {
	all := h.registry.All()
	if len(all) == 0 {
		return m, stage.Skipped, nil
	}

	rng := state.Rand()
	stacks := 1 + rng.Intn(h.maxStack)
	current := []byte(m)
	for i := 0; i < stacks; i++ {
		mut := all[rng.Intn(len(all))]
		current = mut.Mutate(rng, current)
	}
	return stage.ByteInput(current), stage.Mutated, nil
}

// PostExec implements stage.Mutator. Havoc keeps no per-testcase state.
func (h *Havoc) PostExec(state *fuzzstate.State[[]byte], id *corpus.Id) error { return nil }
