package observer

import "sync"

// MapObserver is an AFL-style hit-count bucketed coverage bitmap, grounded
// on the teacher repo's coverage.CoverageMap: each edge increments its
// bucket, with saturating overflow at 255. It is a demonstration/test
// collaborator — the kernel only ever sees a coverage map through this
// Observer interface, never owns instrumentation itself.
type MapObserver struct {
	name   string
	bitmap []byte
	mu     sync.Mutex
}

// NewMapObserver creates a MapObserver named name with the given bitmap
// size.
func NewMapObserver(name string, size int) *MapObserver {
	if size <= 0 {
		size = 65536
	}
	return &MapObserver{name: name, bitmap: make([]byte, size)}
}

// Name implements Observer.
func (m *MapObserver) Name() string { return m.name }

// Reset implements Observer: clears the bitmap before each run.
func (m *MapObserver) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.bitmap {
		m.bitmap[i] = 0
	}
	return nil
}

// RecordEdge records a control-flow edge hit, AFL style: edge id is
// (from>>1)^to, bucketed into the map by modulo size.
func (m *MapObserver) RecordEdge(from, to uint32) {
	edge := (from >> 1) ^ to
	idx := int(edge) % len(m.bitmap)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bitmap[idx] < 255 {
		m.bitmap[idx]++
	}
}

// Snapshot returns a copy of the current bitmap, safe to retain across
// resets.
func (m *MapObserver) Snapshot() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(m.bitmap))
	copy(cp, m.bitmap)
	return cp
}

// Len returns the bitmap size.
func (m *MapObserver) Len() int { return len(m.bitmap) }
