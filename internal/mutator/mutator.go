// Package mutator provides byte-level mutation operators for the
// mutational stage engine: AFL-style bit/byte manipulation plus a Havoc
// composite that stacks several of them per iteration. Every mutator
// draws randomness from the fuzzstate.State's seeded RNG rather than
// crypto/rand, so a run (and its restarts) stay reproducible given the
// same seed — the same discipline internal/scheduler.Weighted and
// internal/stage.MutationalStage follow.
package mutator

import (
	"math/rand"
	"sync"
)

// Kind categorizes a Mutator's strategy, used only for diagnostics and
// for Registry.GetByKind — nothing in the kernel branches on it.
type Kind int

const (
	BitFlip Kind = iota
	ByteFlip
	Arithmetic
	InterestingValue
	ByteSwap
	RandomByte
	Delete
	Insert
	Clone
)

// String returns the human-readable name of the Kind.
func (k Kind) String() string {
	switch k {
	case BitFlip:
		return "bitflip"
	case ByteFlip:
		return "byteflip"
	case Arithmetic:
		return "arithmetic"
	case InterestingValue:
		return "interesting_value"
	case ByteSwap:
		return "byteswap"
	case RandomByte:
		return "random_byte"
	case Delete:
		return "delete"
	case Insert:
		return "insert"
	case Clone:
		return "clone"
	default:
		return "unknown"
	}
}

// Mutator is one mutation operator: given randomness and an input, it
// returns a (possibly unchanged) mutated copy. Implementations never
// mutate input in place.
type Mutator interface {
	Name() string
	Kind() Kind
	Mutate(rng *rand.Rand, input []byte) []byte
}

// Registry stores and manages available mutators, preserving insertion
// order so iteration (and therefore Havoc's uniform selection) is
// deterministic for a given registration sequence.
type Registry struct {
	mu       sync.RWMutex
	mutators map[string]Mutator
	order    []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{mutators: make(map[string]Mutator)}
}

// Register adds m to the registry, keyed by its Name. Registering the
// same name twice replaces the mutator without duplicating it in
// iteration order.
func (r *Registry) Register(m Mutator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.mutators[m.Name()]; !exists {
		r.order = append(r.order, m.Name())
	}
	r.mutators[m.Name()] = m
}

// Get retrieves a mutator by name.
func (r *Registry) Get(name string) (Mutator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mutators[name]
	return m, ok
}

// All returns every registered mutator in insertion order.
func (r *Registry) All() []Mutator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Mutator, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.mutators[name])
	}
	return result
}

// GetByKind returns every registered mutator of the given Kind, in
// insertion order.
func (r *Registry) GetByKind(k Kind) []Mutator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Mutator
	for _, name := range r.order {
		if m := r.mutators[name]; m.Kind() == k {
			result = append(result, m)
		}
	}
	return result
}

// Names returns the names of every registered mutator in insertion
// order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]string, len(r.order))
	copy(result, r.order)
	return result
}

// Count returns the number of registered mutators.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Remove removes the named mutator, reporting whether it was present.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.mutators[name]; !ok {
		return false
	}
	delete(r.mutators, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// NewDefaultRegistry builds a Registry carrying one instance of every
// mutator in this package at AFL's conventional defaults, the set
// Havoc draws from when the caller has no reason to curate its own.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewBitFlipMutator(1))
	r.Register(NewBitFlipMutator(2))
	r.Register(NewBitFlipMutator(4))
	r.Register(NewByteFlipMutator(1))
	r.Register(NewByteFlipMutator(2))
	r.Register(NewByteFlipMutator(4))
	r.Register(NewArithmeticMutator(1, 35))
	r.Register(NewArithmeticMutator(2, 35))
	r.Register(NewArithmeticMutator(4, 35))
	r.Register(NewInterestingValueMutator(1))
	r.Register(NewInterestingValueMutator(2))
	r.Register(NewInterestingValueMutator(4))
	r.Register(NewByteSwapMutator(2))
	r.Register(NewByteSwapMutator(4))
	r.Register(NewRandomByteMutator(1))
	r.Register(NewDeleteMutator(16))
	r.Register(NewInsertMutator(16))
	r.Register(NewCloneMutator(32))
	return r
}
