package memory

import (
	"context"
	"sort"
	"sync"

	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/journal"
)

// EquityStore is an in-memory implementation of journal.EquityStore.
type EquityStore struct {
	mu   sync.RWMutex
	data []*domain.EquityPoint
}

// NewEquityStore creates a new in-memory equity store.
func NewEquityStore() *EquityStore {
	return &EquityStore{}
}

// Compile-time interface check.
var _ journal.EquityStore = (*EquityStore)(nil)

// Insert appends an equity point.
func (s *EquityStore) Insert(_ context.Context, p *domain.EquityPoint) error {
	if p == nil {
		return journal.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *p
	s.data = append(s.data, &copy)
	return nil
}

// GetByTimeRange retrieves points within [start, end] inclusive, ordered by timestamp ASC.
func (s *EquityStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.EquityPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EquityPoint
	for _, p := range s.data {
		if p.Timestamp >= start && p.Timestamp <= end {
			copy := *p
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})
	return result, nil
}
