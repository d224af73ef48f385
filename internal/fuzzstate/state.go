// Package fuzzstate holds the process-wide fuzzing context: RNG, the two
// corpus handles, typed/named metadata maps, the execution counter and the
// currently-scheduled testcase pointer — everything every stage and
// feedback threads through rather than reaching for a global.
package fuzzstate

import (
	"math/rand"

	"github.com/coverfuzz/kernel/internal/corpus"
	"github.com/coverfuzz/kernel/internal/perf"
)

// State is the kernel's process-wide fuzzing context, generic over the
// corpus input type Input.
type State[Input any] struct {
	rng       *rand.Rand
	main      corpus.Corpus[Input]
	solutions corpus.Corpus[Input]
	metadata  *MetadataMap
	execs     perf.Counter
	current   *corpus.Id
}

// New creates a State seeded deterministically from seed, backed by main
// and solutions corpora.
func New[Input any](seed uint64, main, solutions corpus.Corpus[Input]) *State[Input] {
	return &State[Input]{
		rng:       rand.New(rand.NewSource(int64(seed))),
		main:      main,
		solutions: solutions,
		metadata:  NewMetadataMap(),
	}
}

// Rand returns the state's RNG. Stages and mutators draw from this rather
// than a package-level global so a State (and hence a fuzzing run) is
// reproducible given its seed.
func (s *State[Input]) Rand() *rand.Rand { return s.rng }

// Corpus returns the main corpus.
func (s *State[Input]) Corpus() corpus.Corpus[Input] { return s.main }

// Solutions returns the solutions corpus.
func (s *State[Input]) Solutions() corpus.Corpus[Input] { return s.solutions }

// Metadata returns the state's metadata maps.
func (s *State[Input]) Metadata() *MetadataMap { return s.metadata }

// Execs returns the current execution count.
func (s *State[Input]) Execs() uint64 { return s.execs.Load() }

// IncExecs increments and returns the new execution count. The kernel
// increments this exactly once per harness invocation, so it is
// monotonically increasing across the process lifetime and, via
// RestoreExecs, across restarts.
func (s *State[Input]) IncExecs() uint64 { return s.execs.Inc() }

// RestoreExecs resumes the execution counter from a persisted value,
// refusing to move it backwards.
func (s *State[Input]) RestoreExecs(v uint64) { s.execs.Restore(v) }

// CurrentTestcase returns the Id of the testcase currently pinned by the
// scheduler, if any.
func (s *State[Input]) CurrentTestcase() (corpus.Id, bool) {
	if s.current == nil {
		var zero corpus.Id
		return zero, false
	}
	return *s.current, true
}

// SetCurrentTestcase pins id as the current testcase. The scheduler's
// choice remains pinned until the whole stage pipeline for this entry
// completes.
func (s *State[Input]) SetCurrentTestcase(id corpus.Id) {
	s.current = &id
}

// ClearCurrentTestcase unpins the current testcase.
func (s *State[Input]) ClearCurrentTestcase() {
	s.current = nil
}
