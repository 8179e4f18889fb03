package execution

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"solana-grad-pipeline/internal/config"
	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/sizing"
)

// PaperExecutor simulates a fill: a configurable latency, a randomized
// slippage band applied to the entry price, and a synthetic report.
type PaperExecutor struct {
	cfg config.Paper

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPaperExecutor creates a paper executor with the given slippage band
// and latency. A nil rng seeds from the clock; tests inject a fixed seed.
func NewPaperExecutor(cfg config.Paper, rng *rand.Rand) *PaperExecutor {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &PaperExecutor{cfg: cfg, rng: rng}
}

// Mode implements Executor.
func (e *PaperExecutor) Mode() domain.Mode {
	return domain.ModePaper
}

// Execute implements Executor. Cancellation during the simulated latency
// degrades to a failed report, never to a phantom fill.
func (e *PaperExecutor) Execute(ctx context.Context, c *domain.EnrichedCandidate, _ sizing.Decision) Report {
	if c.Market.PriceUSD == nil || *c.Market.PriceUSD <= 0 {
		return failure(errors.New("paper fill: no entry price"))
	}

	latency := time.Duration(e.cfg.LatencyMs) * time.Millisecond
	if latency > 0 {
		select {
		case <-ctx.Done():
			return failure(ctx.Err())
		case <-time.After(latency):
		}
	}

	slippageBps := e.randSlippageBps()
	entry := *c.Market.PriceUSD * (1 + slippageBps/10_000)

	return Report{
		Success:     true,
		Route:       "paper",
		EntryPrice:  entry,
		SlippageBps: slippageBps,
	}
}

func (e *PaperExecutor) randSlippageBps() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	span := e.cfg.SlippageBpsMax - e.cfg.SlippageBpsMin
	if span <= 0 {
		return float64(e.cfg.SlippageBpsMin)
	}
	return float64(e.cfg.SlippageBpsMin) + e.rng.Float64()*float64(span)
}
