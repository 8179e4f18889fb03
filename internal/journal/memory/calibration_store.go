package memory

import (
	"context"
	"sync"

	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/journal"
)

// CalibrationStore is an in-memory implementation of journal.CalibrationStore.
type CalibrationStore struct {
	mu    sync.RWMutex
	state *domain.CalibrationState
}

// NewCalibrationStore creates a new in-memory calibration store.
func NewCalibrationStore() *CalibrationStore {
	return &CalibrationStore{}
}

// Compile-time interface check.
var _ journal.CalibrationStore = (*CalibrationStore)(nil)

// Save stores the calibration state, replacing any previous value.
func (s *CalibrationStore) Save(_ context.Context, state domain.CalibrationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy := state
	s.state = &copy
	return nil
}

// Load retrieves the calibration state. Returns ErrNotFound when never saved.
func (s *CalibrationStore) Load(_ context.Context) (domain.CalibrationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return domain.CalibrationState{}, journal.ErrNotFound
	}
	return *s.state, nil
}
