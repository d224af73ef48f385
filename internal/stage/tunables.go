package stage

import (
	"time"

	"github.com/coverfuzz/kernel/internal/fuzzstate"
)

// DefaultStageName is the named-metadata key a MutationalStage uses when
// the caller doesn't assign its own, analogous to a singleton stage
// instance.
const DefaultStageName = "mutational-stage"

// DefaultMutationalMaxIterations bounds the randomized iteration count
// drawn when neither Iters nor FuzzTime is configured.
const DefaultMutationalMaxIterations = 128

// MutationalStageMetadata holds the tuneable knobs for one named
// mutational stage instance: an optional hard iteration cap and an
// optional wall-clock budget for the currently scheduled testcase. Both
// nil selects the randomized-default policy.
type MutationalStageMetadata struct {
	Iters    *uint64
	FuzzTime *time.Duration
}

// GetTunables returns the tunables stored under name, or the zero value
// (both fields nil) if none have been set.
func GetTunables[Input any](state *fuzzstate.State[Input], name string) MutationalStageMetadata {
	v, ok := fuzzstate.NamedGet[MutationalStageMetadata](state.Metadata(), name)
	if !ok {
		return MutationalStageMetadata{}
	}
	return v
}

// SetIters sets a hard iteration cap for stage name.
func SetIters[Input any](state *fuzzstate.State[Input], name string, n uint64) {
	m := GetTunables(state, name)
	m.Iters = &n
	fuzzstate.NamedSet(state.Metadata(), name, m)
}

// SetFuzzTime sets a wall-clock budget for stage name.
func SetFuzzTime[Input any](state *fuzzstate.State[Input], name string, d time.Duration) {
	m := GetTunables(state, name)
	m.FuzzTime = &d
	fuzzstate.NamedSet(state.Metadata(), name, m)
}

// ResetTunables clears both fields for stage name, returning to
// randomized default behavior.
func ResetTunables[Input any](state *fuzzstate.State[Input], name string) {
	fuzzstate.NamedSet(state.Metadata(), name, MutationalStageMetadata{})
}
