// Package monitor implements concrete events.Manager transports: an
// aggregating stats collector, a bubbletea/lipgloss terminal dashboard,
// and a fasthttp-based relay to peer campaign processes.
package monitor

import (
	"sync"
	"time"

	"github.com/coverfuzz/kernel/internal/events"
)

// Stats aggregates the running totals a Fire call on a Stats event
// carries, grounded on the teacher's internal/ui.Stats but narrowed to
// the fields a fuzzing campaign actually reports.
type Stats struct {
	mu sync.RWMutex

	startTime      time.Time
	execs          uint64
	corpusSize     int
	solutionsCount int
	coveragePct    float64

	lastExecs  uint64
	lastSample time.Time
	execsPerSec float64
}

// NewStats creates an empty Stats collector.
func NewStats() *Stats {
	now := time.Now()
	return &Stats{startTime: now, lastSample: now}
}

// Snapshot is a point-in-time, immutable copy of Stats, safe to render
// from another goroutine.
type Snapshot struct {
	Uptime         time.Duration
	Execs          uint64
	ExecsPerSec    float64
	CorpusSize     int
	SolutionsCount int
	CoveragePct    float64
}

// Record updates the aggregate from a fired event's fields. Unknown
// fields are ignored; this lets Record double as the catch-all updater
// for every event.Kind, not just events.Stats.
func (s *Stats) Record(e events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := e.Fields["execs"].(uint64); ok {
		s.execs = v
	}
	if v, ok := e.Fields["corpus_size"].(int); ok {
		s.corpusSize = v
	}
	if v, ok := e.Fields["solutions_count"].(int); ok {
		s.solutionsCount = v
	}
	if v, ok := e.Fields["coverage_pct"].(float64); ok {
		s.coveragePct = v
	}

	switch e.Kind {
	case events.NewTestcase:
		s.corpusSize++
	case events.Objective:
		s.solutionsCount++
	}

	s.maybeSampleRate()
}

// maybeSampleRate recomputes execs/sec at most once a second; callers
// always hold s.mu.
func (s *Stats) maybeSampleRate() {
	elapsed := time.Since(s.lastSample)
	if elapsed < time.Second {
		return
	}
	s.execsPerSec = float64(s.execs-s.lastExecs) / elapsed.Seconds()
	s.lastExecs = s.execs
	s.lastSample = time.Now()
}

// Snapshot returns the current aggregate.
func (s *Stats) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Uptime:         time.Since(s.startTime),
		Execs:          s.execs,
		ExecsPerSec:    s.execsPerSec,
		CorpusSize:     s.corpusSize,
		SolutionsCount: s.solutionsCount,
		CoveragePct:    s.coveragePct,
	}
}
