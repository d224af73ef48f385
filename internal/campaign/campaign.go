// Package campaign drives N independent Fuzzer instances concurrently as
// goroutines pooled via panjf2000/ants, realizing spec.md §5's
// parallelism model: "multiple fuzzer instances as independent peers...
// within one instance no two stages, feedbacks, or observers execute
// concurrently." Peers share nothing but the EventManager; each owns its
// own fuzzstate.State (and therefore its own corpora, RNG, and metadata).
package campaign

import (
	"context"
	"errors"
	"sync"

	"github.com/coverfuzz/kernel/internal/events"
	"github.com/coverfuzz/kernel/internal/fuzzer"
	"github.com/coverfuzz/kernel/internal/fuzzstate"
	"github.com/coverfuzz/kernel/internal/kerr"
)

// isContextDone reports whether err is exactly the sentinel fuzzer.Run
// returns when its own run loop observes ctx cancellation (deadline or
// explicit Cancel), as opposed to a real collaborator failure.
func isContextDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Peer is one independent fuzzing unit within a Campaign: a Fuzzer
// definition, the State it owns, and the stage pipeline it drives per
// scheduled corpus entry.
type Peer[Input any] struct {
	Name     string
	Fuzzer   *fuzzer.Fuzzer[Input]
	State    *fuzzstate.State[Input]
	Pipeline fuzzer.Stage[Input]
}

// Campaign runs a fixed set of Peers concurrently until ctx is cancelled
// or any one of them stops with an error.
type Campaign[Input any] struct {
	peers   []*Peer[Input]
	manager events.Manager
	pool    *pool
}

// New builds a Campaign over peers, sharing mgr as every peer's
// EventManager. The underlying pool is sized to len(peers) so every peer
// runs concurrently rather than queuing behind one another.
func New[Input any](peers []*Peer[Input], mgr events.Manager) (*Campaign[Input], error) {
	p, err := newPool(len(peers))
	if err != nil {
		return nil, kerr.New(kerr.ExecutorFailure, "campaign.New", err)
	}
	return &Campaign[Input]{peers: peers, manager: mgr, pool: p}, nil
}

// Run initializes every peer's feedback state, then drives all peers
// concurrently until ctx is cancelled or one peer's Fuzzer.Run returns an
// error other than context cancellation, in which case Run cancels the
// remaining peers and returns the first such error once they've all
// unwound. Such an error is either fatal (per kerr.Fatal) or one that
// Fuzzer.Run returns without absorbing, such as a scheduler or
// event-manager failure. An ordinary pipeline error (the "abandon this
// entry, continue" case) never reaches here: fuzzer.Fuzzer.Run reports
// those through the event manager and carries on.
func (c *Campaign[Input]) Run(ctx context.Context) error {
	defer c.pool.release()

	for _, p := range c.peers {
		if err := p.Fuzzer.InitState(p.State); err != nil {
			return err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		firstErr error
	)

	for _, p := range c.peers {
		peer := p
		if err := c.pool.submit(func() error {
			err := peer.Fuzzer.Run(runCtx, peer.State, c.manager, peer.Pipeline)
			if err == nil || isContextDone(err) {
				return nil
			}
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			cancel()
			return err
		}); err != nil {
			cancel()
			return kerr.New(kerr.ExecutorFailure, "campaign.Run", err)
		}
	}

	c.pool.wait()
	return firstErr
}

// Stats returns the pool's dispatch bookkeeping (submitted/completed/
// errors/running/capacity), primarily for campaign-level monitoring.
func (c *Campaign[Input]) Stats() (submitted, completed, errs int64, running, capacity int) {
	s := c.pool.stats()
	return s.Submitted, s.Completed, s.Errors, s.Running, s.Capacity
}
