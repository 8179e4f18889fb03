package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/journal"
)

// DecisionStore implements journal.DecisionStore using PostgreSQL.
type DecisionStore struct {
	pool *Pool
}

// NewDecisionStore creates a new DecisionStore.
func NewDecisionStore(pool *Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

// Compile-time interface check.
var _ journal.DecisionStore = (*DecisionStore)(nil)

// Insert appends a decision. Returns ErrDuplicateKey if decision_id exists.
func (s *DecisionStore) Insert(ctx context.Context, r *domain.DecisionRecord) error {
	query := `
		INSERT INTO decision_log (
			decision_id, address, symbol, source, stage,
			gate_passed, gate_reasons,
			graduation_score, prob_loser, prob_winner, prob_mega,
			size_fraction, expected_value, variance, kelly_fraction,
			mode, reason, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7,
			$8, $9, $10, $11,
			$12, $13, $14, $15,
			$16, $17, $18
		)
	`

	_, err := s.pool.Exec(ctx, query,
		r.DecisionID, r.Address, r.Symbol, r.Source, string(r.Stage),
		r.GatePassed, r.GateReasons,
		r.GraduationScore, r.ProbLoser, r.ProbWinner, r.ProbMega,
		r.SizeFraction, r.ExpectedValue, r.Variance, r.KellyFraction,
		string(r.Mode), r.Reason, r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return journal.ErrDuplicateKey
		}
		return fmt.Errorf("insert decision record: %w", err)
	}
	return nil
}

// GetByID retrieves a decision by its ID. Returns ErrNotFound if not exists.
func (s *DecisionStore) GetByID(ctx context.Context, decisionID string) (*domain.DecisionRecord, error) {
	query := decisionSelect + ` WHERE decision_id = $1`

	row := s.pool.QueryRow(ctx, query, decisionID)
	r, err := scanDecision(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, journal.ErrNotFound
		}
		return nil, fmt.Errorf("get decision by id: %w", err)
	}
	return r, nil
}

// GetByAddress retrieves all decisions for a token address, ordered by created_at ASC.
func (s *DecisionStore) GetByAddress(ctx context.Context, address string) ([]*domain.DecisionRecord, error) {
	query := decisionSelect + `
		WHERE address = $1
		ORDER BY created_at ASC, decision_id ASC
	`

	rows, err := s.pool.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("get decisions by address: %w", err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

// GetByTimeRange retrieves decisions created within [start, end] inclusive.
func (s *DecisionStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.DecisionRecord, error) {
	query := decisionSelect + `
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at ASC, decision_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get decisions by time range: %w", err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

const decisionSelect = `
	SELECT
		decision_id, address, symbol, source, stage,
		gate_passed, gate_reasons,
		graduation_score, prob_loser, prob_winner, prob_mega,
		size_fraction, expected_value, variance, kelly_fraction,
		mode, reason, created_at
	FROM decision_log
`

// scanDecision scans a single row into a DecisionRecord.
func scanDecision(row pgx.Row) (*domain.DecisionRecord, error) {
	var r domain.DecisionRecord
	var stage, mode string

	err := row.Scan(
		&r.DecisionID, &r.Address, &r.Symbol, &r.Source, &stage,
		&r.GatePassed, &r.GateReasons,
		&r.GraduationScore, &r.ProbLoser, &r.ProbWinner, &r.ProbMega,
		&r.SizeFraction, &r.ExpectedValue, &r.Variance, &r.KellyFraction,
		&mode, &r.Reason, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Stage = domain.Stage(stage)
	r.Mode = domain.Mode(mode)
	return &r, nil
}

// scanDecisions scans multiple rows into a slice of DecisionRecord.
func scanDecisions(rows pgx.Rows) ([]*domain.DecisionRecord, error) {
	var records []*domain.DecisionRecord

	for rows.Next() {
		r, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision row: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decision rows: %w", err)
	}

	return records, nil
}
