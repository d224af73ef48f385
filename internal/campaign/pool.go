package campaign

import (
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
)

// pool dispatches one goroutine per campaign peer through an ants.Pool,
// adapted from the teacher's internal/requester.WorkerPool: the same
// ants wrapper and submitted/completed/errors bookkeeping, but sized to
// one task per peer (a peer runs until the campaign's context is
// cancelled) rather than one task per short-lived request.
type pool struct {
	inner *ants.Pool
	wg    sync.WaitGroup

	submitted atomic.Int64
	completed atomic.Int64
	errors    atomic.Int64
}

// newPool creates a pool sized to run size tasks concurrently without
// queuing, the way a campaign runs every peer at once.
func newPool(size int) (*pool, error) {
	if size < 1 {
		size = 1
	}
	inner, err := ants.NewPool(size, ants.WithPreAlloc(true))
	if err != nil {
		return nil, err
	}
	return &pool{inner: inner}, nil
}

// submit runs task in the pool, counting it in the errors counter if it
// returns non-nil.
func (p *pool) submit(task func() error) error {
	p.submitted.Add(1)
	p.wg.Add(1)
	return p.inner.Submit(func() {
		defer p.wg.Done()
		if err := task(); err != nil {
			p.errors.Add(1)
		}
		p.completed.Add(1)
	})
}

// wait blocks until every submitted task has returned.
func (p *pool) wait() { p.wg.Wait() }

// release tears down the underlying ants.Pool.
func (p *pool) release() { p.inner.Release() }

// poolStats mirrors requester.PoolStats, narrowed to what a campaign
// reports.
type poolStats struct {
	Submitted int64
	Completed int64
	Errors    int64
	Running   int
	Capacity  int
}

func (p *pool) stats() poolStats {
	return poolStats{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Errors:    p.errors.Load(),
		Running:   p.inner.Running(),
		Capacity:  p.inner.Cap(),
	}
}
