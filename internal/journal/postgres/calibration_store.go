package postgres

import (
	"context"
	"fmt"

	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/journal"
)

// CalibrationStore implements journal.CalibrationStore using PostgreSQL.
// The table holds a single row; Save upserts it.
type CalibrationStore struct {
	pool *Pool
}

// NewCalibrationStore creates a new CalibrationStore.
func NewCalibrationStore(pool *Pool) *CalibrationStore {
	return &CalibrationStore{pool: pool}
}

// Compile-time interface check.
var _ journal.CalibrationStore = (*CalibrationStore)(nil)

// Save stores the calibration state, replacing any previous value.
func (s *CalibrationStore) Save(ctx context.Context, state domain.CalibrationState) error {
	query := `
		INSERT INTO calibration_state (id, temperature, prior_shift, samples, updated_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			temperature = EXCLUDED.temperature,
			prior_shift = EXCLUDED.prior_shift,
			samples = EXCLUDED.samples,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		state.Temperature, state.PriorShift, state.Samples, state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save calibration state: %w", err)
	}
	return nil
}

// Load retrieves the calibration state. Returns ErrNotFound when never saved.
func (s *CalibrationStore) Load(ctx context.Context) (domain.CalibrationState, error) {
	query := `
		SELECT temperature, prior_shift, samples, updated_at
		FROM calibration_state
		WHERE id = 1
	`

	var state domain.CalibrationState
	err := s.pool.QueryRow(ctx, query).Scan(
		&state.Temperature, &state.PriorShift, &state.Samples, &state.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return domain.CalibrationState{}, journal.ErrNotFound
		}
		return domain.CalibrationState{}, fmt.Errorf("load calibration state: %w", err)
	}
	return state, nil
}
