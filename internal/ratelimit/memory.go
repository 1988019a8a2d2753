package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps counters in process memory. Suitable for a single replica.
type MemoryStore struct {
	mu            sync.Mutex
	counters      map[string]*Counter
	cleanupCancel context.CancelFunc
}

// NewMemoryStore returns a store that sweeps expired counters every cleanupInterval.
// A zero interval disables the sweep.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	store := &MemoryStore{counters: make(map[string]*Counter)}

	if cleanupInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		store.cleanupCancel = cancel
		go store.cleanupLoop(ctx, cleanupInterval)
	}
	return store
}

func (s *MemoryStore) Increment(ctx context.Context, key string, window time.Duration, now time.Time) (Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || !now.Before(c.ResetAt) {
		c = &Counter{ResetAt: now.Add(window)}
		s.counters[key] = c
	}
	c.Count++

	return *c, nil
}

// Len returns the number of tracked identities.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}

func (s *MemoryStore) Close() error {
	if s.cleanupCancel != nil {
		s.cleanupCancel()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters = make(map[string]*Counter)
	return nil
}

func (s *MemoryStore) cleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup(time.Now())
		}
	}
}

func (s *MemoryStore) cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, c := range s.counters {
		if !now.Before(c.ResetAt) {
			delete(s.counters, key)
		}
	}
}
