package executor

import (
	"context"

	"github.com/coverfuzz/kernel/internal/observer"
	"golang.org/x/time/rate"
)

// ThrottledExecutor wraps an Executor with a rate limit, bounding harness
// invocations per second — ambient backpressure for harnesses that shell
// out or hit rate-limited resources, grounded on the teacher's
// EngineConfig.RPS + golang.org/x/time/rate use in internal/web/server.go.
type ThrottledExecutor[Input any] struct {
	inner   Executor[Input]
	limiter *rate.Limiter
}

// NewThrottledExecutor wraps inner with a limiter allowing execsPerSecond
// runs/sec, with a burst of the same size.
func NewThrottledExecutor[Input any](inner Executor[Input], execsPerSecond float64) *ThrottledExecutor[Input] {
	burst := int(execsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &ThrottledExecutor[Input]{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(execsPerSecond), burst),
	}
}

// Run implements Executor[Input]: it waits for a rate-limiter token before
// delegating to the wrapped executor.
func (t *ThrottledExecutor[Input]) Run(ctx context.Context, observers *observer.Tuple, input Input) (ExitKind, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return ExitKind{}, err
	}
	return t.inner.Run(ctx, observers, input)
}
