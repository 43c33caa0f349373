package risk

import (
	"context"
	"sync"
)

// DefaultHistorySize bounds the in-memory analysis history.
const DefaultHistorySize = 500

// MemoryStore keeps the most recent analyses in a fixed-size ring.
type MemoryStore struct {
	mu   sync.RWMutex
	ring []*Analysis
	next int
	full bool
}

// NewMemoryStore creates a history holding at most size analyses.
func NewMemoryStore(size int) *MemoryStore {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &MemoryStore{ring: make([]*Analysis, size)}
}

func (s *MemoryStore) Record(ctx context.Context, analysis *Analysis) error {
	a := copyAnalysis(analysis)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ring[s.next] = a
	s.next = (s.next + 1) % len(s.ring)
	if s.next == 0 {
		s.full = true
	}
	return nil
}

// ListRecent returns up to limit analyses, most recent first.
func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]*Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.next
	if s.full {
		n = len(s.ring)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	result := make([]*Analysis, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (s.next - 1 - i + len(s.ring)) % len(s.ring)
		result = append(result, copyAnalysis(s.ring[idx]))
	}
	return result, nil
}

func copyAnalysis(a *Analysis) *Analysis {
	cp := *a
	if a.Prediction.Anomalies != nil {
		cp.Prediction.Anomalies = append([]string(nil), a.Prediction.Anomalies...)
	}
	return &cp
}
