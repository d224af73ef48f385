package feedback

import (
	"github.com/glaslos/tlsh"

	"github.com/coverfuzz/kernel/internal/corpus"
	"github.com/coverfuzz/kernel/internal/events"
	"github.com/coverfuzz/kernel/internal/executor"
	"github.com/coverfuzz/kernel/internal/fuzzstate"
	"github.com/coverfuzz/kernel/internal/observer"
)

// similaritySet is the committed fuzzy-hash record a SimilarityFeedback
// keeps in named metadata: every TLSH digest accepted so far.
type similaritySet struct {
	hashes []*tlsh.TLSH
}

// DefaultSimilarityThreshold is the minimum TLSH distance to the nearest
// committed hash for new content to count as sufficiently different,
// matching the teacher's TLSHConfig.SimilarityThreshold default.
const DefaultSimilarityThreshold = 100

// SimilarityFeedback reports interesting whenever raw input content is
// sufficiently dissimilar (by TLSH fuzzy-hash distance) from everything
// already committed, grounded on the teacher's analyzer.TLSHAnalyzer.
// Unlike MapFeedback it works directly off the input bytes rather than an
// observer, since TLSH needs raw content, so it is only usable where
// Input is []byte.
//
// Novelty bookkeeping mirrors MapFeedback's two-phase design: a pending
// hash computed during IsInteresting is only merged into the committed
// set by AppendMetadata, and dropped without committing by
// DiscardMetadata.
type SimilarityFeedback struct {
	leafState
	name      string
	threshold int
	pending   *tlsh.TLSH
}

// NewSimilarityFeedback builds a SimilarityFeedback storing its committed
// hash set under name in named metadata, using threshold as the minimum
// acceptable distance to the nearest committed hash.
func NewSimilarityFeedback(name string, threshold int) *SimilarityFeedback {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &SimilarityFeedback{name: name, threshold: threshold}
}

func (f *SimilarityFeedback) Name() string { return f.name }

func (f *SimilarityFeedback) InitState(state *fuzzstate.State[[]byte]) error { return nil }

// committedFor keys the committed hash set by f.name, the same way
// MapFeedback.committedFor keys its novelty record — two
// SimilarityFeedback instances (e.g. different thresholds) under
// distinct names each get their own set instead of silently sharing one.
func (f *SimilarityFeedback) committedFor(state *fuzzstate.State[[]byte]) *similaritySet {
	if existing, ok := fuzzstate.NamedGet[*similaritySet](state.Metadata(), f.name); ok {
		return existing
	}
	fresh := &similaritySet{}
	fuzzstate.NamedSet(state.Metadata(), f.name, fresh)
	return fresh
}

// IsInteresting computes the TLSH hash of input and compares it against
// every committed hash, reporting interesting iff the minimum distance
// exceeds the configured threshold (or no committed hash exists yet).
// Content too small for TLSH (below the library's minimum, typically
// 50 bytes) is never interesting by this feedback, since no hash can be
// computed for it.
func (f *SimilarityFeedback) IsInteresting(state *fuzzstate.State[[]byte], mgr events.Manager, input []byte, observers *observer.Tuple, exitKind executor.ExitKind) (bool, error) {
	hash, err := tlsh.HashBytes(input)
	if err != nil {
		f.pending = nil
		f.record(false)
		return false, nil
	}

	committed := f.committedFor(state)
	if len(committed.hashes) == 0 {
		f.pending = hash
		f.record(true)
		return true, nil
	}

	minDist := -1
	for _, h := range committed.hashes {
		d := hash.Diff(h)
		if minDist == -1 || d < minDist {
			minDist = d
		}
	}

	result := minDist > f.threshold
	if result {
		f.pending = hash
	} else {
		f.pending = nil
	}
	f.record(result)
	return result, nil
}

// AppendMetadata merges the pending hash computed by the most recent
// IsInteresting call into the committed set.
func (f *SimilarityFeedback) AppendMetadata(state *fuzzstate.State[[]byte], mgr events.Manager, observers *observer.Tuple, tc *corpus.Testcase[[]byte]) error {
	if f.pending == nil {
		return nil
	}
	committed := f.committedFor(state)
	committed.hashes = append(committed.hashes, f.pending)
	f.pending = nil
	return nil
}

// DiscardMetadata drops the pending hash without committing it.
func (f *SimilarityFeedback) DiscardMetadata(state *fuzzstate.State[[]byte], input []byte) error {
	f.pending = nil
	return nil
}

// TrueLeaves implements HitAttributor.
func (f *SimilarityFeedback) TrueLeaves() ([]string, error) {
	result, err := f.LastResult()
	if err != nil {
		return nil, err
	}
	if !result {
		return nil, nil
	}
	return []string{f.name}, nil
}
