package weights

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store used when redis is not configured and
// in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]map[string]float64
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]map[string]float64)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (map[string]float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out, true, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, weights map[string]float64) error {
	cp := make(map[string]float64, len(weights))
	for k, v := range weights {
		cp[k] = v
	}
	s.mu.Lock()
	s.entries[key] = cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Invalidate(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key == "" {
		n := len(s.entries)
		s.entries = make(map[string]map[string]float64)
		return n, nil
	}
	if _, ok := s.entries[key]; !ok {
		return 0, nil
	}
	delete(s.entries, key)
	return 1, nil
}

func (s *MemoryStore) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys, nil
}
