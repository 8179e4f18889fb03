package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/journal"
)

// ExecutionStore implements journal.ExecutionStore using PostgreSQL.
type ExecutionStore struct {
	pool *Pool
}

// NewExecutionStore creates a new ExecutionStore.
func NewExecutionStore(pool *Pool) *ExecutionStore {
	return &ExecutionStore{pool: pool}
}

// Compile-time interface check.
var _ journal.ExecutionStore = (*ExecutionStore)(nil)

// Insert appends an execution record. Returns ErrDuplicateKey if execution_id exists.
func (s *ExecutionStore) Insert(ctx context.Context, r *domain.ExecutionRecord) error {
	query := `
		INSERT INTO execution_log (
			execution_id, decision_id, address, mode,
			size_fraction, entry_price, slippage_bps, tip_lamports,
			route, tx_signature, success, error, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12, $13
		)
	`

	_, err := s.pool.Exec(ctx, query,
		r.ExecutionID, r.DecisionID, r.Address, string(r.Mode),
		r.SizeFraction, r.EntryPrice, r.SlippageBps, r.TipLamports,
		r.Route, r.TxSignature, r.Success, r.Error, r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return journal.ErrDuplicateKey
		}
		return fmt.Errorf("insert execution record: %w", err)
	}
	return nil
}

// GetByDecisionID retrieves all executions for a decision, ordered by created_at ASC.
func (s *ExecutionStore) GetByDecisionID(ctx context.Context, decisionID string) ([]*domain.ExecutionRecord, error) {
	query := executionSelect + `
		WHERE decision_id = $1
		ORDER BY created_at ASC, execution_id ASC
	`

	rows, err := s.pool.Query(ctx, query, decisionID)
	if err != nil {
		return nil, fmt.Errorf("get executions by decision id: %w", err)
	}
	defer rows.Close()

	return scanExecutions(rows)
}

// GetByTimeRange retrieves executions created within [start, end] inclusive.
func (s *ExecutionStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.ExecutionRecord, error) {
	query := executionSelect + `
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at ASC, execution_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get executions by time range: %w", err)
	}
	defer rows.Close()

	return scanExecutions(rows)
}

const executionSelect = `
	SELECT
		execution_id, decision_id, address, mode,
		size_fraction, entry_price, slippage_bps, tip_lamports,
		route, tx_signature, success, error, created_at
	FROM execution_log
`

// scanExecution scans a single row into an ExecutionRecord.
func scanExecution(row pgx.Row) (*domain.ExecutionRecord, error) {
	var r domain.ExecutionRecord
	var mode string

	err := row.Scan(
		&r.ExecutionID, &r.DecisionID, &r.Address, &mode,
		&r.SizeFraction, &r.EntryPrice, &r.SlippageBps, &r.TipLamports,
		&r.Route, &r.TxSignature, &r.Success, &r.Error, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Mode = domain.Mode(mode)
	return &r, nil
}

// scanExecutions scans multiple rows into a slice of ExecutionRecord.
func scanExecutions(rows pgx.Rows) ([]*domain.ExecutionRecord, error) {
	var records []*domain.ExecutionRecord

	for rows.Next() {
		r, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan execution row: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate execution rows: %w", err)
	}

	return records, nil
}
