package fuzzstate

import (
	"reflect"
	"sync"
)

// MetadataMap is the process-wide metadata bag every State owns: a typed
// map keyed by the stored type's identity (one instance per Go type,
// for singleton feedback/stage state) and a named map keyed by a
// caller-chosen string (for multi-instance stages where keying by type
// alone would collide, e.g. two MutationalStages with different tunables).
type MetadataMap struct {
	mu     sync.Mutex
	byType map[string]any
	byName map[string]any
}

// NewMetadataMap creates an empty MetadataMap.
func NewMetadataMap() *MetadataMap {
	return &MetadataMap{byType: make(map[string]any), byName: make(map[string]any)}
}

func typeKey[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

// TypedGet returns the T-keyed entry, if present.
func TypedGet[T any](m *MetadataMap) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.byType[typeKey[T]()]
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// TypedSet installs v under its own type's identity, overwriting any
// existing entry of the same type.
func TypedSet[T any](m *MetadataMap, v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byType[typeKey[T]()] = v
}

// TypedGetOrInit returns the existing T-keyed entry, or installs and
// returns init()'s result if none exists yet. This is what makes a
// Feedback's InitState idempotent: calling it twice is equivalent to once.
func TypedGetOrInit[T any](m *MetadataMap, init func() T) T {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := typeKey[T]()
	if v, ok := m.byType[key]; ok {
		return v.(T)
	}
	v := init()
	m.byType[key] = v
	return v
}

// NamedGet returns the entry stored under name, if present and of type T.
func NamedGet[T any](m *MetadataMap, name string) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.byName[name]
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// NamedSet installs v under name, overwriting any existing entry.
func NamedSet[T any](m *MetadataMap, name string, v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byName[name] = v
}

// NamedDelete removes the entry stored under name, if any.
func (m *MetadataMap) NamedDelete(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byName, name)
}

// NamedKeys returns every currently-used named-map key, for snapshotting.
func (m *MetadataMap) NamedKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.byName))
	for k := range m.byName {
		keys = append(keys, k)
	}
	return keys
}
