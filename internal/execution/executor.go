// Package execution provides the two interchangeable trade execution
// strategies: paper (simulated fill) and live (real order placement).
// Executors never mutate risk state; the pipeline records positions only
// after a successful report.
package execution

import (
	"context"

	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/sizing"
)

// ExitPlan is the take-profit / trailing-stop template attached to a fill.
type ExitPlan struct {
	TakeProfitMultiples []float64 // multiples of entry price
	TrailingStopPct     float64   // percent, e.g. 20 = stop 20% below peak
}

// Report is the outcome of one execution attempt.
type Report struct {
	Success     bool
	TxSignature *string // nil on failure or paper fill without chain tx
	Route       string
	EntryPrice  float64
	SlippageBps float64
	TipLamports int64
	ExitPlan    *ExitPlan
	Error       *string // nil on success
}

// Executor places (or simulates) one trade for an admitted decision.
type Executor interface {
	Execute(ctx context.Context, c *domain.EnrichedCandidate, d sizing.Decision) Report
	Mode() domain.Mode
}

func failure(err error) Report {
	msg := err.Error()
	return Report{Error: &msg}
}
