// Package journal defines durable storage for every pipeline decision,
// execution and equity snapshot. All stores are append-only; schema
// evolution is additive (new nullable columns), never destructive.
package journal

import (
	"context"

	"solana-grad-pipeline/internal/domain"
)

// DecisionStore provides access to decision_log storage.
type DecisionStore interface {
	// Insert appends a decision. Returns ErrDuplicateKey if decision_id exists.
	Insert(ctx context.Context, r *domain.DecisionRecord) error

	// GetByID retrieves a decision by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, decisionID string) (*domain.DecisionRecord, error)

	// GetByAddress retrieves all decisions for a token address, ordered by created_at ASC.
	GetByAddress(ctx context.Context, address string) ([]*domain.DecisionRecord, error)

	// GetByTimeRange retrieves decisions created within [start, end] (inclusive, ms).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.DecisionRecord, error)
}

// ExecutionStore provides access to execution_log storage.
type ExecutionStore interface {
	// Insert appends an execution record. Returns ErrDuplicateKey if execution_id exists.
	Insert(ctx context.Context, r *domain.ExecutionRecord) error

	// GetByDecisionID retrieves all executions for a decision, ordered by created_at ASC.
	GetByDecisionID(ctx context.Context, decisionID string) ([]*domain.ExecutionRecord, error)

	// GetByTimeRange retrieves executions created within [start, end] (inclusive, ms).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.ExecutionRecord, error)
}

// EquityStore provides access to equity_curve storage.
type EquityStore interface {
	// Insert appends an equity point.
	Insert(ctx context.Context, p *domain.EquityPoint) error

	// GetByTimeRange retrieves points within [start, end] (inclusive, ms),
	// ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.EquityPoint, error)
}

// CalibrationStore persists the probability-model calibration so it
// survives restarts.
type CalibrationStore interface {
	// Save stores the calibration state, replacing any previous value.
	Save(ctx context.Context, s domain.CalibrationState) error

	// Load retrieves the calibration state. Returns ErrNotFound when never saved.
	Load(ctx context.Context) (domain.CalibrationState, error)
}
