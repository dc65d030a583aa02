package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps the document in memory. Used by tests and ephemeral runs.
type MemoryStore struct {
	mu   sync.RWMutex
	data []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data == nil {
		return nil, ErrNoDocument
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryStore) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
