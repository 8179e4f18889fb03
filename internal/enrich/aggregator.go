// Package enrich builds the unified candidate snapshot by querying all
// external data providers concurrently. Enrichment fails soft: a provider
// error or timeout degrades to an empty sub-snapshot, never aborts the
// candidate. Downstream gates treat missing fields as fail-closed.
package enrich

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/observability"
)

// Aggregator fans out one call per provider and joins the results.
type Aggregator struct {
	market     MarketProvider
	onchain    OnchainProvider
	security   SecurityProvider
	smartMoney SmartMoneyProvider

	timeout time.Duration
	limiter *rate.Limiter
	logger  *log.Logger
	now     func() time.Time
}

// Options configures the Aggregator. Nil providers short-circuit to empty
// snapshots (the no-credential case).
type Options struct {
	Market     MarketProvider
	Onchain    OnchainProvider
	Security   SecurityProvider
	SmartMoney SmartMoneyProvider

	// Timeout bounds each provider call. Zero means 5s.
	Timeout time.Duration
	// RatePerSec throttles outbound calls across all providers.
	// Zero disables throttling.
	RatePerSec float64
	Logger     *log.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(opts Options) *Aggregator {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	var limiter *rate.Limiter
	if opts.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), int(opts.RatePerSec)+1)
	}
	return &Aggregator{
		market:     opts.Market,
		onchain:    opts.Onchain,
		security:   opts.Security,
		smartMoney: opts.SmartMoney,
		timeout:    timeout,
		limiter:    limiter,
		logger:     logger,
		now:        time.Now,
	}
}

// Enrich queries all providers for the seed's address concurrently and
// merges the results. Always returns a candidate; individual failures
// leave the corresponding snapshot empty.
func (a *Aggregator) Enrich(ctx context.Context, seed domain.CandidateSeed) *domain.EnrichedCandidate {
	out := &domain.EnrichedCandidate{Seed: seed}
	start := a.now()

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		out.Market = a.fetchMarket(ctx, seed.Address)
	}()
	go func() {
		defer wg.Done()
		out.Onchain = a.fetchOnchain(ctx, seed.Address)
	}()
	go func() {
		defer wg.Done()
		out.Risk = a.fetchRisk(ctx, seed.Address)
	}()
	go func() {
		defer wg.Done()
		out.Analytics = a.fetchAnalytics(ctx, seed.Address)
	}()

	wg.Wait()
	out.EnrichedAt = a.now().UnixMilli()
	observability.RecordEnrichmentLatency(a.now().Sub(start).Seconds())
	return out
}

func (a *Aggregator) fetchMarket(ctx context.Context, address string) domain.MarketSnapshot {
	if a.market == nil {
		return domain.MarketSnapshot{}
	}
	ctx, cancel := a.callContext(ctx)
	defer cancel()
	if !a.waitRate(ctx) {
		return domain.MarketSnapshot{}
	}
	start := a.now()
	s, err := a.market.FetchMarket(ctx, address)
	observability.RecordProviderLatency("market", a.now().Sub(start).Seconds())
	if err != nil {
		observability.RecordProviderError("market")
		a.logger.Printf("[enrich] market provider failed for %s: %v", address, err)
		return domain.MarketSnapshot{}
	}
	return s
}

func (a *Aggregator) fetchOnchain(ctx context.Context, address string) domain.OnchainSnapshot {
	if a.onchain == nil {
		return domain.OnchainSnapshot{}
	}
	ctx, cancel := a.callContext(ctx)
	defer cancel()
	if !a.waitRate(ctx) {
		return domain.OnchainSnapshot{}
	}
	start := a.now()
	s, err := a.onchain.FetchOnchain(ctx, address)
	observability.RecordProviderLatency("onchain", a.now().Sub(start).Seconds())
	if err != nil {
		observability.RecordProviderError("onchain")
		a.logger.Printf("[enrich] onchain provider failed for %s: %v", address, err)
		return domain.OnchainSnapshot{}
	}
	return s
}

func (a *Aggregator) fetchRisk(ctx context.Context, address string) domain.RiskSnapshot {
	if a.security == nil {
		return domain.RiskSnapshot{}
	}
	ctx, cancel := a.callContext(ctx)
	defer cancel()
	if !a.waitRate(ctx) {
		return domain.RiskSnapshot{}
	}
	start := a.now()
	s, err := a.security.FetchRisk(ctx, address)
	observability.RecordProviderLatency("security", a.now().Sub(start).Seconds())
	if err != nil {
		observability.RecordProviderError("security")
		a.logger.Printf("[enrich] security provider failed for %s: %v", address, err)
		return domain.RiskSnapshot{}
	}
	return s
}

func (a *Aggregator) fetchAnalytics(ctx context.Context, address string) domain.AnalyticsSnapshot {
	if a.smartMoney == nil {
		return domain.AnalyticsSnapshot{}
	}
	ctx, cancel := a.callContext(ctx)
	defer cancel()
	if !a.waitRate(ctx) {
		return domain.AnalyticsSnapshot{}
	}
	start := a.now()
	s, err := a.smartMoney.FetchAnalytics(ctx, address)
	observability.RecordProviderLatency("smart_money", a.now().Sub(start).Seconds())
	if err != nil {
		observability.RecordProviderError("smart_money")
		a.logger.Printf("[enrich] smart-money provider failed for %s: %v", address, err)
		return domain.AnalyticsSnapshot{}
	}
	return s
}

func (a *Aggregator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.timeout)
}

func (a *Aggregator) waitRate(ctx context.Context) bool {
	if a.limiter == nil {
		return true
	}
	return a.limiter.Wait(ctx) == nil
}
