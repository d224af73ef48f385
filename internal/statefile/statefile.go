// Package statefile persists the bookkeeping a campaign needs to resume
// after a restart: the execution counter and, per named mutational stage,
// its tunables (internal/stage.MutationalStageMetadata) and restart
// checkpoint (the progress snapshot internal/stage.ShouldRestart keeps).
// Grounded on the teacher's coverage.Corpus.Load, which reads back only
// the sidecar fields it needs rather than unmarshaling a whole document
// into internal types — here done with tidwall/gjson instead of a plain
// json.Unmarshal, since the snapshot's "stages" object has caller-chosen
// keys a fixed Go struct can't address by field name.
package statefile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"

	"github.com/coverfuzz/kernel/internal/fuzzstate"
	"github.com/coverfuzz/kernel/internal/kerr"
	"github.com/coverfuzz/kernel/internal/stage"
)

func nsToDuration(ns int64) time.Duration { return time.Duration(ns) }

// StageState is one named mutational stage's persisted bookkeeping.
type StageState struct {
	Iters             *uint64 `json:"iters,omitempty"`
	FuzzTimeNs        *int64  `json:"fuzz_time_ns,omitempty"`
	RestartStartExecs uint64  `json:"restart_start_execs"`
	RestartActive     bool    `json:"restart_active"`
	// RestartBudget is the randomized-default policy's drawn iteration
	// budget for the current progress period (0 if none has been drawn,
	// e.g. the stage uses explicit Iters/FuzzTime tunables instead).
	// Persisting it is what makes spec §8's "resumption runs no more
	// than B - (E1 - E0) further iterations" hold across a process
	// restart: without it a resumed stage would redraw a budget from
	// wherever the RNG stream happens to sit post-restart, not reproduce
	// the original B.
	RestartBudget uint64 `json:"restart_budget,omitempty"`
}

// Snapshot is the top-level on-disk shape cmd/gofuzz writes on a periodic
// ticker and once more after the campaign stops.
type Snapshot struct {
	Execs  uint64                `json:"execs"`
	Stages map[string]StageState `json:"stages"`
}

// Capture builds a Snapshot of state's execution counter and the named
// stages' tunables/restart bookkeeping. Callers pass the stage names
// they want persisted — the kernel's named-metadata map has no registry
// of "which names are stages" to enumerate automatically.
func Capture[Input any](state *fuzzstate.State[Input], stageNames []string) Snapshot {
	snap := Snapshot{Execs: state.Execs(), Stages: make(map[string]StageState, len(stageNames))}
	for _, name := range stageNames {
		tunables := stage.GetTunables(state, name)
		startExecs, active, budget := stage.SnapshotRestart(state, name)

		ss := StageState{RestartStartExecs: startExecs, RestartActive: active, RestartBudget: budget}
		if tunables.Iters != nil {
			v := *tunables.Iters
			ss.Iters = &v
		}
		if tunables.FuzzTime != nil {
			ns := int64(*tunables.FuzzTime)
			ss.FuzzTimeNs = &ns
		}
		snap.Stages[name] = ss
	}
	return snap
}

// Apply restores execs and every named stage's tunables/restart
// bookkeeping from snap onto state, the counterpart to Capture used when
// resuming a campaign. RestoreExecs refuses to move the counter
// backwards, so applying a stale snapshot after more recent progress is
// harmless.
func Apply[Input any](state *fuzzstate.State[Input], snap *Snapshot) {
	state.RestoreExecs(snap.Execs)
	for name, ss := range snap.Stages {
		stage.ResetTunables(state, name)
		if ss.Iters != nil {
			stage.SetIters(state, name, *ss.Iters)
		}
		if ss.FuzzTimeNs != nil {
			stage.SetFuzzTime(state, name, nsToDuration(*ss.FuzzTimeNs))
		}
		stage.RestoreRestart(state, name, ss.RestartStartExecs, ss.RestartActive, ss.RestartBudget)
	}
}

// Write serializes snap as JSON to path, creating parent directories as
// needed.
func Write(path string, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return kerr.New(kerr.Serialize, "statefile.Write", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return kerr.New(kerr.Serialize, "statefile.Write", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return kerr.New(kerr.Serialize, "statefile.Write", err)
	}
	return nil
}

// Load reads back the snapshot at path, addressing only the "execs" and
// "stages" top-level keys via gjson rather than unmarshaling the whole
// document into Snapshot directly — a file written by a newer version of
// this package with extra top-level keys still loads cleanly.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, kerr.New(kerr.Serialize, "statefile.Load", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, kerr.New(kerr.Serialize, "statefile.Load", nil)
	}

	snap := &Snapshot{Stages: make(map[string]StageState)}
	snap.Execs = gjson.GetBytes(data, "execs").Uint()

	gjson.GetBytes(data, "stages").ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		ss := StageState{
			RestartStartExecs: value.Get("restart_start_execs").Uint(),
			RestartActive:     value.Get("restart_active").Bool(),
			RestartBudget:     value.Get("restart_budget").Uint(),
		}
		if v := value.Get("iters"); v.Exists() {
			n := v.Uint()
			ss.Iters = &n
		}
		if v := value.Get("fuzz_time_ns"); v.Exists() {
			n := v.Int()
			ss.FuzzTimeNs = &n
		}
		snap.Stages[name] = ss
		return true
	})

	return snap, nil
}

// Exists reports whether a snapshot file is present at path, the signal
// a campaign runner uses to decide "run" vs "resume" behavior.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
