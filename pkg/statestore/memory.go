package statestore

import (
	"sync"
	"time"
)

// Memory is an in-process Store with the same TTL semantics as BoltStore,
// used in tests and wherever durability across restarts is not required.
type Memory struct {
	mu   sync.Mutex
	data map[string]map[string]record
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]record)}
}

func (m *Memory) Get(component, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.data[component]
	if !ok {
		return "", false, nil
	}
	rec, ok := bucket[key]
	if !ok || rec.expired(time.Now()) {
		return "", false, nil
	}
	return rec.Value, true, nil
}

func (m *Memory) Set(component, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.data[component]
	if !ok {
		bucket = make(map[string]record)
		m.data[component] = bucket
	}
	rec := record{Value: value}
	if ttl > 0 {
		exp := time.Now().Add(ttl)
		rec.ExpiresAt = &exp
	}
	bucket[key] = rec
	return nil
}

func (m *Memory) Delete(component, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if bucket, ok := m.data[component]; ok {
		delete(bucket, key)
	}
	return nil
}

func (m *Memory) Close() error { return nil }
