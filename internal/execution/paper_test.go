package execution

import (
	"context"
	"math/rand"
	"testing"

	"solana-grad-pipeline/internal/config"
	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/sizing"
)

func paperCandidate(price float64) *domain.EnrichedCandidate {
	return &domain.EnrichedCandidate{
		Seed:   domain.CandidateSeed{Address: "addr", Symbol: "SYM"},
		Market: domain.MarketSnapshot{PriceUSD: &price},
	}
}

func TestPaperExecute_FillWithinSlippageBand(t *testing.T) {
	cfg := config.Paper{SlippageBpsMin: 10, SlippageBpsMax: 150, LatencyMs: 0}
	e := NewPaperExecutor(cfg, rand.New(rand.NewSource(42)))

	for i := 0; i < 50; i++ {
		r := e.Execute(context.Background(), paperCandidate(0.0002), sizing.Decision{SizeFraction: 0.005})
		if !r.Success {
			t.Fatalf("fill %d failed: %v", i, r.Error)
		}
		if r.Route != "paper" {
			t.Fatalf("route: got %q", r.Route)
		}
		if r.SlippageBps < 10 || r.SlippageBps > 150 {
			t.Fatalf("slippage %f outside [10,150]", r.SlippageBps)
		}
		wantEntry := 0.0002 * (1 + r.SlippageBps/10_000)
		if r.EntryPrice != wantEntry {
			t.Fatalf("entry: got %g, want %g", r.EntryPrice, wantEntry)
		}
		if r.TxSignature != nil {
			t.Fatal("paper fill must not carry a chain signature")
		}
	}
}

func TestPaperExecute_DeterministicWithSeed(t *testing.T) {
	cfg := config.Paper{SlippageBpsMin: 0, SlippageBpsMax: 100}
	a := NewPaperExecutor(cfg, rand.New(rand.NewSource(7)))
	b := NewPaperExecutor(cfg, rand.New(rand.NewSource(7)))

	for i := 0; i < 10; i++ {
		ra := a.Execute(context.Background(), paperCandidate(1), sizing.Decision{})
		rb := b.Execute(context.Background(), paperCandidate(1), sizing.Decision{})
		if ra.SlippageBps != rb.SlippageBps {
			t.Fatalf("fill %d diverged: %f vs %f", i, ra.SlippageBps, rb.SlippageBps)
		}
	}
}

func TestPaperExecute_DegenerateBand(t *testing.T) {
	e := NewPaperExecutor(config.Paper{SlippageBpsMin: 25, SlippageBpsMax: 25}, rand.New(rand.NewSource(1)))

	r := e.Execute(context.Background(), paperCandidate(1), sizing.Decision{})
	if !r.Success || r.SlippageBps != 25 {
		t.Errorf("got success=%v slippage=%f, want fixed 25bps", r.Success, r.SlippageBps)
	}
}

func TestPaperExecute_NoEntryPrice(t *testing.T) {
	e := NewPaperExecutor(config.Paper{}, rand.New(rand.NewSource(1)))

	r := e.Execute(context.Background(), &domain.EnrichedCandidate{}, sizing.Decision{})
	if r.Success {
		t.Fatal("expected failure without an entry price")
	}
	if r.Error == nil {
		t.Fatal("failed report missing error")
	}

	zero := 0.0
	r = e.Execute(context.Background(), paperCandidate(zero), sizing.Decision{})
	if r.Success {
		t.Fatal("expected failure for zero entry price")
	}
}

func TestPaperExecute_CancelledDuringLatency(t *testing.T) {
	e := NewPaperExecutor(config.Paper{LatencyMs: 10_000, SlippageBpsMax: 50}, rand.New(rand.NewSource(1)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := e.Execute(ctx, paperCandidate(1), sizing.Decision{})
	if r.Success {
		t.Fatal("cancelled execution must not report a fill")
	}
	if r.Error == nil {
		t.Fatal("cancelled execution missing error")
	}
	if e.Mode() != domain.ModePaper {
		t.Errorf("mode: got %s", e.Mode())
	}
}
