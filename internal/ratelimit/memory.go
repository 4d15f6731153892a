package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps reservations in process. Expired keys are dropped lazily on Reserve.
type MemoryStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{expires: make(map[string]time.Time)}
}

func (s *MemoryStore) Reserve(_ context.Context, key string, ttl time.Duration, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if exp, ok := s.expires[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.expires[key] = now.Add(ttl)
	if len(s.expires) > 1024 {
		for k, exp := range s.expires {
			if !now.Before(exp) {
				delete(s.expires, k)
			}
		}
	}
	return true, nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.expires, key)
	s.mu.Unlock()
	return nil
}
