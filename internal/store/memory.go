package store

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	records   []Record // newest first
	maxEvents int64
}

// NewMemoryStore creates a MemoryStore that keeps at most maxEvents records
// (unbounded when maxEvents is not positive).
func NewMemoryStore(maxEvents int64) *MemoryStore {
	return &MemoryStore{maxEvents: maxEvents}
}

// Append stores r, dropping the oldest record once the cap is reached.
func (s *MemoryStore) Append(_ context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append([]Record{r}, s.records...)
	if s.maxEvents > 0 && int64(len(s.records)) > s.maxEvents {
		s.records = s.records[:s.maxEvents]
	}
	return nil
}

// Recent returns up to n records, newest first.
func (s *MemoryStore) Recent(_ context.Context, n int64) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 {
		return []Record{}, nil
	}
	if n > int64(len(s.records)) {
		n = int64(len(s.records))
	}
	out := make([]Record, n)
	copy(out, s.records[:n])
	return out, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
