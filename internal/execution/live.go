package execution

import (
	"context"
	"errors"
	"math"

	"solana-grad-pipeline/internal/config"
	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/sizing"
)

// SwapRequest is handed to the external execution venue.
type SwapRequest struct {
	Mint           string
	TokenAccount   string // associated token account for the mint
	SizeFraction   float64
	MaxSlippageBps float64
	TipLamports    int64
}

// SwapResult is the venue's successful fill.
type SwapResult struct {
	TxSignature string
	Route       string
	EntryPrice  float64
}

// VenueClient is the external swap executor capability.
type VenueClient interface {
	Swap(ctx context.Context, req SwapRequest) (SwapResult, error)
}

// LiveExecutor routes admitted trades to a real venue with a dynamic
// slippage estimate and a take-profit/trailing-stop template.
type LiveExecutor struct {
	cfg    config.Live
	venue  VenueClient
	wallet string // owner wallet used for token account derivation
}

// NewLiveExecutor creates a live executor.
func NewLiveExecutor(cfg config.Live, venue VenueClient, wallet string) *LiveExecutor {
	return &LiveExecutor{cfg: cfg, venue: venue, wallet: wallet}
}

// Mode implements Executor.
func (e *LiveExecutor) Mode() domain.Mode {
	return domain.ModeLive
}

// Execute implements Executor. Venue failure returns success=false; the
// caller must not update position state on failure.
func (e *LiveExecutor) Execute(ctx context.Context, c *domain.EnrichedCandidate, d sizing.Decision) Report {
	if e.venue == nil {
		return failure(errors.New("live execution: no venue configured"))
	}

	slippageBps := e.dynamicSlippageBps(c)
	var tip int64
	if e.cfg.TipEnabled {
		tip = e.cfg.TipLamports
	}

	tokenAccount, err := DeriveAssociatedTokenAccount(e.wallet, c.Seed.Address)
	if err != nil {
		return failure(err)
	}

	res, err := e.venue.Swap(ctx, SwapRequest{
		Mint:           c.Seed.Address,
		TokenAccount:   tokenAccount,
		SizeFraction:   d.SizeFraction,
		MaxSlippageBps: slippageBps,
		TipLamports:    tip,
	})
	if err != nil {
		return failure(err)
	}

	sig := res.TxSignature
	return Report{
		Success:     true,
		TxSignature: &sig,
		Route:       res.Route,
		EntryPrice:  res.EntryPrice,
		SlippageBps: slippageBps,
		TipLamports: tip,
		ExitPlan:    e.exitPlan(c),
	}
}

// dynamicSlippageBps estimates slippage from the ratio of recent volume
// to pool liquidity, clamped to the configured band.
func (e *LiveExecutor) dynamicSlippageBps(c *domain.EnrichedCandidate) float64 {
	est := e.cfg.SlippageBpsMin
	if c.Market.Volume5mUSD != nil && c.Market.LiquidityUSD != nil && *c.Market.LiquidityUSD > 0 {
		est = *c.Market.Volume5mUSD / *c.Market.LiquidityUSD * 1000
	}
	return math.Min(e.cfg.SlippageBpsMax, math.Max(e.cfg.SlippageBpsMin, est))
}

// exitPlan builds the take-profit ladder at 2x/3.5x/5x and a trailing
// stop sized from recent volatility.
func (e *LiveExecutor) exitPlan(c *domain.EnrichedCandidate) *ExitPlan {
	trailing := 20.0
	if c.Analytics.Volatility5m != nil {
		trailing = math.Min(35, math.Max(10, *c.Analytics.Volatility5m*200))
	}
	return &ExitPlan{
		TakeProfitMultiples: []float64{2.0, 3.5, 5.0},
		TrailingStopPct:     trailing,
	}
}
