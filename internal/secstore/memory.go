package secstore

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu      sync.RWMutex
	storage map[string][]byte
}

// NewMemory constructs an in-memory store for tests and dev mode.
func NewMemory() Store {
	return &memoryStore{storage: make(map[string][]byte)}
}

func (s *memoryStore) Save(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.storage[key] = cp
	return nil
}

func (s *memoryStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.storage[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.storage, key)
	return nil
}
