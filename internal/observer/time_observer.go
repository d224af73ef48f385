package observer

import (
	"sync"
	"time"
)

// TimeObserver records one run's wall-clock duration, grounded on the
// teacher's FeedbackStats.AvgExecTimeNs bookkeeping in coverage.FeedbackLoop
// — here scoped to a single execution rather than a running average, since
// the kernel's TimeFeedback copies it onto the testcase at insertion time.
type TimeObserver struct {
	name     string
	mu       sync.Mutex
	start    time.Time
	duration time.Duration
}

// NewTimeObserver creates a TimeObserver named name.
func NewTimeObserver(name string) *TimeObserver {
	return &TimeObserver{name: name}
}

// Name implements Observer.
func (t *TimeObserver) Name() string { return t.name }

// Reset implements Observer: marks the start of a new run.
func (t *TimeObserver) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.start = time.Now()
	t.duration = 0
	return nil
}

// StopTiming records the elapsed time since Reset. The executor calls this
// immediately after the harness returns, before any feedback runs.
func (t *TimeObserver) StopTiming() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.duration = time.Since(t.start)
}

// LastExecTime returns the duration recorded by the most recent
// StopTiming call.
func (t *TimeObserver) LastExecTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.duration
}

// PostExec implements PostExecObserver, so a registered TimeObserver
// gets its StopTiming call for free from Tuple.PostExecAll instead of
// requiring the executor to know about it by name.
func (t *TimeObserver) PostExec(exitKind int) error {
	t.StopTiming()
	return nil
}
