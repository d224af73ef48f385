package stage

import (
	"github.com/coverfuzz/kernel/internal/corpus"
	"github.com/coverfuzz/kernel/internal/fuzzstate"
)

// Cloneable is the constraint a mutational stage's working type M must
// satisfy: perform_mutation clones the transformed input fresh at the
// start of every iteration, so a mutation never compounds on top of a
// previous iteration's result.
type Cloneable[M any] interface {
	Clone() M
}

// Post is the handle a Transform's TryTransformInto yields alongside the
// lowered raw input, invoked after evaluation with the corpus id the run
// was assigned (if any), enabling post-processing such as token-learning
// stages.
type Post[Input any] interface {
	PostExec(state *fuzzstate.State[Input], id *corpus.Id) error
}

// NoopPost is a Post that does nothing, the default for transforms with
// no post-evaluation bookkeeping.
type NoopPost[Input any] struct{}

// PostExec implements Post.
func (NoopPost[Input]) PostExec(state *fuzzstate.State[Input], id *corpus.Id) error { return nil }

// Transform bridges the mutational stage's opaque working type M to the
// corpus's Input type:
//
//   - TryTransformFrom projects a stored testcase into a mutable working
//     form; it may refuse (ok=false) to skip this testcase entirely.
//   - TryTransformInto lowers a mutated working form back into Input for
//     evaluation, yielding a Post handle for after-the-fact bookkeeping.
type Transform[Input any, M any] interface {
	TryTransformFrom(tc *corpus.Testcase[Input], state *fuzzstate.State[Input]) (M, bool, error)
	TryTransformInto(m M, state *fuzzstate.State[Input]) (Input, Post[Input], error)
}

// ByteInput is the default mutational working type for byte-slice
// inputs: a cloneable wrapper around []byte.
type ByteInput []byte

// Clone implements Cloneable[ByteInput].
func (b ByteInput) Clone() ByteInput {
	cp := make(ByteInput, len(b))
	copy(cp, b)
	return cp
}

// IdentityTransform is the Transform[[]byte, ByteInput] used when the
// mutational working form is just a cloneable copy of the raw bytes,
// with no richer structure to bridge.
type IdentityTransform struct{}

// TryTransformFrom implements Transform: copies the testcase's input
// into a fresh ByteInput. Never refuses.
func (IdentityTransform) TryTransformFrom(tc *corpus.Testcase[[]byte], state *fuzzstate.State[[]byte]) (ByteInput, bool, error) {
	cp := make(ByteInput, len(tc.Input))
	copy(cp, tc.Input)
	return cp, true, nil
}

// TryTransformInto implements Transform: lowers the ByteInput back to
// []byte with a no-op Post.
func (IdentityTransform) TryTransformInto(m ByteInput, state *fuzzstate.State[[]byte]) ([]byte, Post[[]byte], error) {
	return []byte(m), NoopPost[[]byte]{}, nil
}

// MutationResult is the outcome of one Mutator.Mutate call.
type MutationResult int

const (
	// Mutated means the mutator produced a changed working input.
	Mutated MutationResult = iota
	// Skipped means the mutator declined to mutate this iteration; the
	// stage must not execute or count this iteration toward restart
	// accounting.
	Skipped
)

// Mutator applies one mutation to a cloned working input and observes
// the corpus id (if any) the resulting evaluation was assigned.
type Mutator[Input any, M any] interface {
	Mutate(state *fuzzstate.State[Input], m M) (M, MutationResult, error)
	PostExec(state *fuzzstate.State[Input], id *corpus.Id) error
}
