package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage is an in-process [Storage] for tests and single-instance
// deployments. Production gateways share a Redis backend instead.
type MemoryStorage struct {
	mu      sync.Mutex
	records map[string][]int64
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: make(map[string][]int64)}
}

// Records returns all retained hit timestamps for key.
func (s *MemoryStorage) Records(_ context.Context, key string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamps := s.records[key]
	out := make([]int64, len(stamps))
	copy(out, stamps)
	return out, nil
}

// Add records one hit and prunes entries older than the retention window.
func (s *MemoryStorage) Add(_ context.Context, key string, ts int64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := ts - ttl.Milliseconds()
	kept := s.records[key][:0]
	for _, old := range s.records[key] {
		if old > cutoff {
			kept = append(kept, old)
		}
	}
	s.records[key] = append(kept, ts)
	return nil
}
