package memory

import (
	"context"
	"sort"
	"sync"

	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/journal"
)

// ExecutionStore is an in-memory implementation of journal.ExecutionStore.
type ExecutionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ExecutionRecord // keyed by execution_id
}

// NewExecutionStore creates a new in-memory execution store.
func NewExecutionStore() *ExecutionStore {
	return &ExecutionStore{
		data: make(map[string]*domain.ExecutionRecord),
	}
}

// Compile-time interface check.
var _ journal.ExecutionStore = (*ExecutionStore)(nil)

// Insert appends an execution record. Returns ErrDuplicateKey if execution_id exists.
func (s *ExecutionStore) Insert(_ context.Context, r *domain.ExecutionRecord) error {
	if r == nil || r.ExecutionID == "" {
		return journal.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ExecutionID]; exists {
		return journal.ErrDuplicateKey
	}

	copy := *r
	s.data[r.ExecutionID] = &copy
	return nil
}

// GetByDecisionID retrieves all executions for a decision, ordered by created_at ASC.
func (s *ExecutionStore) GetByDecisionID(_ context.Context, decisionID string) ([]*domain.ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ExecutionRecord
	for _, r := range s.data {
		if r.DecisionID == decisionID {
			copy := *r
			result = append(result, &copy)
		}
	}

	sortExecutions(result)
	return result, nil
}

// GetByTimeRange retrieves executions created within [start, end] inclusive.
func (s *ExecutionStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ExecutionRecord
	for _, r := range s.data {
		if r.CreatedAt >= start && r.CreatedAt <= end {
			copy := *r
			result = append(result, &copy)
		}
	}

	sortExecutions(result)
	return result, nil
}

func sortExecutions(records []*domain.ExecutionRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt < records[j].CreatedAt
		}
		return records[i].ExecutionID < records[j].ExecutionID
	})
}
