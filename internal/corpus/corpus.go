// Package corpus defines the kernel's ordered test-case collection and its
// default implementations, grounded on the teacher's coverage.Corpus
// (queue/crashes directory split, content hashing) but generalized to the
// kernel's type-parametric Testcase[Input] and uuid-minted CorpusId.
package corpus

import (
	"sync"

	"github.com/coverfuzz/kernel/internal/kerr"
	"github.com/google/uuid"
)

// Id is an opaque, stable identifier for a testcase within one corpus.
// Re-adding an input yields a new Id even if its content is unchanged.
type Id string

// NewId mints a fresh, random CorpusId.
func NewId() Id {
	return Id(uuid.NewString())
}

// Testcase is an input plus its attached metadata: optional exec time and
// an arbitrary, caller-defined metadata map (novelty masks, execution
// time, dedup hashes, ...).
type Testcase[Input any] struct {
	ID       Id
	Input    Input
	ExecTime *int64 // nanoseconds; nil until a TimeObserver-backed feedback sets it
	Metadata map[string]any
}

// NewTestcase wraps input in a fresh Testcase with an empty metadata map
// and no assigned Id; the Id is assigned by Corpus.Add.
func NewTestcase[Input any](input Input) *Testcase[Input] {
	return &Testcase[Input]{Input: input, Metadata: make(map[string]any)}
}

// Corpus is the kernel's ordered test-case collection interface. A fuzzer
// holds two instances: the main corpus (interesting inputs) and the
// solutions corpus (objective hits, typically crashes).
type Corpus[Input any] interface {
	// Add inserts tc, assigning and returning a fresh Id.
	Add(tc *Testcase[Input]) (Id, error)
	// Get returns the testcase for id, mutable in place.
	Get(id Id) (*Testcase[Input], error)
	// Replace overwrites the testcase stored at id.
	Replace(id Id, tc *Testcase[Input]) error
	// Remove evicts the testcase stored at id.
	Remove(id Id) error
	// Count returns the number of testcases currently stored.
	Count() int
	// Ids returns every Id currently stored, in insertion order.
	Ids() []Id
}

// Memory is an in-memory Corpus[Input], the default collaborator used by
// the kernel's own tests and by short-lived campaigns that don't need
// on-disk persistence.
type Memory[Input any] struct {
	mu      sync.RWMutex
	entries map[Id]*Testcase[Input]
	order   []Id
}

// NewMemory creates an empty in-memory corpus.
func NewMemory[Input any]() *Memory[Input] {
	return &Memory[Input]{entries: make(map[Id]*Testcase[Input])}
}

// Add implements Corpus[Input].
func (m *Memory[Input]) Add(tc *Testcase[Input]) (Id, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := NewId()
	tc.ID = id
	m.entries[id] = tc
	m.order = append(m.order, id)
	return id, nil
}

// Get implements Corpus[Input].
func (m *Memory[Input]) Get(id Id) (*Testcase[Input], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tc, ok := m.entries[id]
	if !ok {
		return nil, kerr.New(kerr.CorpusFailure, "corpus.Get", nil)
	}
	return tc, nil
}

// Replace implements Corpus[Input].
func (m *Memory[Input]) Replace(id Id, tc *Testcase[Input]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return kerr.New(kerr.CorpusFailure, "corpus.Replace", nil)
	}
	tc.ID = id
	m.entries[id] = tc
	return nil
}

// Remove implements Corpus[Input].
func (m *Memory[Input]) Remove(id Id) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return kerr.New(kerr.CorpusFailure, "corpus.Remove", nil)
	}
	delete(m.entries, id)
	for i, cur := range m.order {
		if cur == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count implements Corpus[Input].
func (m *Memory[Input]) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// Ids implements Corpus[Input].
func (m *Memory[Input]) Ids() []Id {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]Id, len(m.order))
	copy(ids, m.order)
	return ids
}
