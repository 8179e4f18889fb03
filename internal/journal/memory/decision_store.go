package memory

import (
	"context"
	"sort"
	"sync"

	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/journal"
)

// DecisionStore is an in-memory implementation of journal.DecisionStore.
type DecisionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DecisionRecord // keyed by decision_id
}

// NewDecisionStore creates a new in-memory decision store.
func NewDecisionStore() *DecisionStore {
	return &DecisionStore{
		data: make(map[string]*domain.DecisionRecord),
	}
}

// Compile-time interface check.
var _ journal.DecisionStore = (*DecisionStore)(nil)

// Insert appends a decision. Returns ErrDuplicateKey if decision_id exists.
func (s *DecisionStore) Insert(_ context.Context, r *domain.DecisionRecord) error {
	if r == nil || r.DecisionID == "" {
		return journal.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.DecisionID]; exists {
		return journal.ErrDuplicateKey
	}

	copy := *r
	copy.GateReasons = append([]string(nil), r.GateReasons...)
	s.data[r.DecisionID] = &copy
	return nil
}

// GetByID retrieves a decision by its ID. Returns ErrNotFound if not exists.
func (s *DecisionStore) GetByID(_ context.Context, decisionID string) (*domain.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[decisionID]
	if !exists {
		return nil, journal.ErrNotFound
	}

	copy := *r
	copy.GateReasons = append([]string(nil), r.GateReasons...)
	return &copy, nil
}

// GetByAddress retrieves all decisions for a token address, ordered by created_at ASC.
func (s *DecisionStore) GetByAddress(_ context.Context, address string) ([]*domain.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DecisionRecord
	for _, r := range s.data {
		if r.Address == address {
			copy := *r
			copy.GateReasons = append([]string(nil), r.GateReasons...)
			result = append(result, &copy)
		}
	}

	sortDecisions(result)
	return result, nil
}

// GetByTimeRange retrieves decisions created within [start, end] inclusive.
func (s *DecisionStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DecisionRecord
	for _, r := range s.data {
		if r.CreatedAt >= start && r.CreatedAt <= end {
			copy := *r
			copy.GateReasons = append([]string(nil), r.GateReasons...)
			result = append(result, &copy)
		}
	}

	sortDecisions(result)
	return result, nil
}

func sortDecisions(records []*domain.DecisionRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt < records[j].CreatedAt
		}
		return records[i].DecisionID < records[j].DecisionID
	})
}
