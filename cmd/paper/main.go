// Package main runs the decision pipeline once over fixture candidates
// with in-memory journals and paper execution, then prints every journaled
// decision. Useful for demos and for eyeballing scoring changes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"solana-grad-pipeline/internal/config"
	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/enrich"
	"solana-grad-pipeline/internal/execution"
	"solana-grad-pipeline/internal/gates"
	"solana-grad-pipeline/internal/journal/memory"
	"solana-grad-pipeline/internal/model"
	"solana-grad-pipeline/internal/notify"
	"solana-grad-pipeline/internal/pipeline"
	"solana-grad-pipeline/internal/riskstate"
	"solana-grad-pipeline/internal/sizing"
)

func main() {
	seed := flag.Int64("seed", 42, "RNG seed for deterministic paper fills")
	latency := flag.Int("latency-ms", 50, "Simulated execution latency")
	flag.Parse()

	logger := log.New(os.Stdout, "[paper] ", log.LstdFlags)

	cfg := config.Default()
	cfg.Paper.LatencyMs = *latency

	decisions := memory.NewDecisionStore()
	executions := memory.NewExecutionStore()

	risk := riskstate.New(cfg.Risk, domain.ModePaper)
	mdl := model.New(domain.DefaultCalibration())

	pipe := pipeline.New(pipeline.Options{
		Enricher:   enrich.NewAggregator(pipeline.FixtureProviders()),
		Gates:      gates.NewEvaluator(cfg.Gates),
		Model:      mdl,
		Sizer:      sizing.NewEngine(cfg.Risk),
		Risk:       risk,
		Paper:      execution.NewPaperExecutor(cfg.Paper, rand.New(rand.NewSource(*seed))),
		Decisions:  decisions,
		Executions: executions,
		Notifier:   notify.NewLogNotifier(logger),
		Logger:     logger,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now().UnixMilli()
	for _, s := range pipeline.FixtureSeeds() {
		pipe.Process(ctx, s)
	}
	end := time.Now().UnixMilli()

	records, err := decisions.GetByTimeRange(ctx, start-1, end+1)
	if err != nil {
		logger.Fatalf("Read decisions: %v", err)
	}

	fmt.Println()
	fmt.Println("DECISIONS")
	fmt.Println("=========")
	for _, r := range records {
		fmt.Printf("%-6s %-10s gs=%5.1f pW=%.3f size=%.4f reason=%s\n",
			r.Symbol, r.Stage, r.GraduationScore, r.ProbWinner, r.SizeFraction, r.Reason)
		if len(r.GateReasons) > 0 {
			fmt.Printf("       gate failures: %v\n", r.GateReasons)
		}

		execs, err := executions.GetByDecisionID(ctx, r.DecisionID)
		if err != nil {
			logger.Fatalf("Read executions: %v", err)
		}
		for _, x := range execs {
			fmt.Printf("       fill: price=%.8f slippage=%.0fbps route=%s success=%t\n",
				x.EntryPrice, x.SlippageBps, x.Route, x.Success)
		}
	}

	s := risk.Snapshot()
	fmt.Println()
	fmt.Printf("RISK: positions=%d exposure=%.4f equity=%.2f mode=%s\n",
		s.ConcurrentCount, s.Exposure, s.Equity, s.Mode)
}
