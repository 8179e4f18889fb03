package clickhouse

import (
	"context"
	"fmt"

	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/journal"
)

// EquityStore implements journal.EquityStore using ClickHouse.
// Equity points are pure time series, so ClickHouse MergeTree is a
// better fit than PostgreSQL here.
type EquityStore struct {
	conn *Conn
}

// NewEquityStore creates a new EquityStore.
func NewEquityStore(conn *Conn) *EquityStore {
	return &EquityStore{conn: conn}
}

// Compile-time interface check.
var _ journal.EquityStore = (*EquityStore)(nil)

// Insert appends an equity point.
func (s *EquityStore) Insert(ctx context.Context, p *domain.EquityPoint) error {
	if p == nil {
		return journal.ErrInvalidInput
	}

	query := `
		INSERT INTO equity_curve (
			timestamp_ms, equity, open_exposure, open_positions, daily_pnl_pct, mode
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		uint64(p.Timestamp), p.Equity, p.OpenExposure,
		uint32(p.OpenPositions), p.DailyPnlPct, string(p.Mode),
	)
	if err != nil {
		return fmt.Errorf("insert equity point: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves points within [start, end] inclusive, ordered by timestamp ASC.
func (s *EquityStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.EquityPoint, error) {
	query := `
		SELECT timestamp_ms, equity, open_exposure, open_positions, daily_pnl_pct, mode
		FROM equity_curve
		WHERE timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query equity by time range: %w", err)
	}
	defer rows.Close()

	var points []*domain.EquityPoint
	for rows.Next() {
		var (
			p         domain.EquityPoint
			ts        uint64
			positions uint32
			mode      string
		)
		if err := rows.Scan(&ts, &p.Equity, &p.OpenExposure, &positions, &p.DailyPnlPct, &mode); err != nil {
			return nil, fmt.Errorf("scan equity row: %w", err)
		}
		p.Timestamp = int64(ts)
		p.OpenPositions = int(positions)
		p.Mode = domain.Mode(mode)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equity rows: %w", err)
	}

	return points, nil
}
