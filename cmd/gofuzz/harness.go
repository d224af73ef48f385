package main

import (
	"path/filepath"

	"github.com/coverfuzz/kernel/internal/campaign"
	"github.com/coverfuzz/kernel/internal/corpus"
	"github.com/coverfuzz/kernel/internal/executor"
	"github.com/coverfuzz/kernel/internal/feedback"
	"github.com/coverfuzz/kernel/internal/fuzzconfig"
	"github.com/coverfuzz/kernel/internal/fuzzer"
	"github.com/coverfuzz/kernel/internal/fuzzstate"
	"github.com/coverfuzz/kernel/internal/kerr"
	"github.com/coverfuzz/kernel/internal/mutator"
	"github.com/coverfuzz/kernel/internal/observer"
	"github.com/coverfuzz/kernel/internal/scheduler"
	"github.com/coverfuzz/kernel/internal/stage"
)

// demoMagic is the hidden byte sequence buildHarness's state machine walks
// toward. Recording one RecordEdge per transition gives the coverage map
// a trail to follow well before the full sequence is found, rather than an
// all-or-nothing needle in a haystack.
var demoMagic = []byte("FUZZ!")

// buildHarness wraps the built-in demonstration target as an
// executor.Harness, driving mapHandle's MapObserver one edge per byte of
// state-machine transition and panicking once the hidden sequence is
// matched in full. It stands in for a real target under test; swap this
// out (and the observer/feedback wiring around it) for your own harness.
func buildHarness(observers *observer.Tuple, mapHandle observer.Handle[*observer.MapObserver]) executor.Harness {
	return func(input []byte) error {
		obs, err := observer.Resolve(observers, mapHandle)
		if err != nil {
			return err
		}

		state := uint32(0)
		for _, b := range input {
			next := uint32(0)
			if state < uint32(len(demoMagic)) && b == demoMagic[state] {
				next = state + 1
			}
			obs.RecordEdge(state, next)
			state = next
		}
		if int(state) == len(demoMagic) {
			panic("demo harness: reached the hidden crash state")
		}
		return nil
	}
}

// buildPeer assembles one independent campaign.Peer[[]byte]: its own
// on-disk corpora, seeded state, observers, feedback tree, executor, and
// mutational stage pipeline. name must be unique within the campaign; it
// roots the peer's corpus directories (and, via statefilePath, its
// statefile). The stage itself is always named stage.DefaultStageName.
func buildPeer(cfg *fuzzconfig.Config, name string, seed uint64) (*campaign.Peer[[]byte], error) {
	mainDir := filepath.Join(cfg.Campaign.CorpusDir, name, "queue")
	solutionsDir := filepath.Join(cfg.Campaign.CorpusDir, name, "crashes")

	main, err := corpus.NewOnDisk(mainDir)
	if err != nil {
		return nil, err
	}
	solutions, err := corpus.NewOnDisk(solutionsDir)
	if err != nil {
		return nil, err
	}

	state := fuzzstate.New[[]byte](seed, main, solutions)

	mapObs := observer.NewMapObserver("map", 65536)
	timeObs := observer.NewTimeObserver("time")
	tuple := observer.NewTuple(mapObs, timeObs)
	mapHandle := observer.NewHandle[*observer.MapObserver]("map")
	timeHandle := observer.NewHandle[*observer.TimeObserver]("time")

	harness := buildHarness(tuple, mapHandle)

	var exec executor.Executor[[]byte] = executor.NewInProcessExecutor(harness, cfg.Engine.Timeout)
	if cfg.Engine.MaxExecsPerSecond > 0 {
		exec = executor.NewThrottledExecutor[[]byte](exec, cfg.Engine.MaxExecsPerSecond)
	}

	interestingness := feedback.EagerOr[[]byte](
		feedback.NewMapFeedback[[]byte]("map-feedback", mapHandle),
		feedback.NewTimeFeedback[[]byte]("time-feedback", timeHandle),
	)
	objective := feedback.CrashFeedback[[]byte]()

	sched := scheduler.NewWeighted[[]byte]()
	f := fuzzer.New[[]byte](interestingness, objective, exec, tuple, sched)

	if main.Count() == 0 {
		seedInput := corpus.NewTestcase([]byte("seed"))
		if _, err := main.Add(seedInput); err != nil {
			return nil, kerr.New(kerr.CorpusFailure, "buildPeer", err)
		}
	}

	mutStage := stage.NewMutationalStage[[]byte, stage.ByteInput](
		stage.DefaultStageName,
		stage.IdentityTransform{},
		mutator.NewHavoc(mutator.NewDefaultRegistry(), cfg.Engine.HavocStackMax),
	)
	pipeline := stage.NewTuple[[]byte](mutStage)

	return &campaign.Peer[[]byte]{
		Name:     name,
		Fuzzer:   f,
		State:    state,
		Pipeline: pipeline,
	}, nil
}
