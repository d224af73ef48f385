package executor

import (
	"context"
	"time"

	"github.com/coverfuzz/kernel/internal/kerr"
	"github.com/coverfuzz/kernel/internal/observer"
)

// Harness is the user-supplied function under test: it receives the raw
// input bytes and observes coverage through whatever instrumentation hooks
// into the observer Tuple (e.g. MapObserver.RecordEdge calls).
type Harness func(input []byte) error

// InProcessExecutor runs a Harness in the current process, classifying a
// panic as ExitKind.Crash and a run that outlives Timeout as
// ExitKind.Timeout. It is the in-process analogue of the teacher's
// coverage.Executor interface, adapted to the kernel's ExitKind
// classification instead of a full ExecutionResult.
type InProcessExecutor struct {
	Harness Harness
	Timeout time.Duration
}

// NewInProcessExecutor creates an InProcessExecutor with the given harness
// and per-run watchdog timeout.
func NewInProcessExecutor(harness Harness, timeout time.Duration) *InProcessExecutor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &InProcessExecutor{Harness: harness, Timeout: timeout}
}

// Run implements Executor[[]byte].
func (e *InProcessExecutor) Run(ctx context.Context, observers *observer.Tuple, input []byte) (ExitKind, error) {
	runCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	type outcome struct {
		kind ExitKind
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{kind: CrashKind()}
			}
		}()
		if err := e.Harness(input); err != nil {
			done <- outcome{kind: CrashKind()}
			return
		}
		done <- outcome{kind: OkKind()}
	}()

	// A timed-out harness goroutine is abandoned, not killed; Go has no
	// mechanism to force-preempt it, so a hung harness leaks one goroutine
	// per timeout until it eventually returns.
	select {
	case o := <-done:
		// PostExecAll fires once the harness has actually returned (not
		// on the timeout branch below, where the goroutine is still
		// running and any observer state it touches is still in flux),
		// stamping things like TimeObserver's recorded duration before
		// feedback reads them.
		if err := observers.PostExecAll(int(o.kind.Tag)); err != nil {
			return ExitKind{}, err
		}
		if o.err != nil {
			return ExitKind{}, kerr.New(kerr.ExecutorFailure, "executor.Run", o.err)
		}
		return o.kind, nil
	case <-runCtx.Done():
		return TimeoutKind(), nil
	}
}
