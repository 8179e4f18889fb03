package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/enrich"
)

// Fixture candidates for paper runs: a strong candidate, one that fails
// the safety gates, and one whose curve progress keeps the migration and
// momentum scores low.
const (
	fixtureStrong   = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	fixtureUnsafe   = "7EYnhQoR9YM3N7UoaKRoA44Uy8JeaZV3qyouov87awMs"
	fixtureMediocre = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
)

// FixtureSeeds returns the demonstration candidates.
func FixtureSeeds() []domain.CandidateSeed {
	now := time.Now().UnixMilli()
	highCurve := 93.0
	lowCurve := 72.0
	return []domain.CandidateSeed{
		{
			Address:      fixtureStrong,
			Symbol:       "GRAD",
			Source:       "pumpfun_graduation",
			CurvePercent: &highCurve,
			DetectedAt:   now,
			Raw:          json.RawMessage(`{"fixture":true}`),
		},
		{
			Address:      fixtureUnsafe,
			Symbol:       "RISKY",
			Source:       "pumpfun_graduation",
			CurvePercent: &highCurve,
			DetectedAt:   now,
			Raw:          json.RawMessage(`{"fixture":true}`),
		},
		{
			Address:      fixtureMediocre,
			Symbol:       "MEH",
			Source:       "pumpfun_graduation",
			CurvePercent: &lowCurve,
			DetectedAt:   now,
			Raw:          json.RawMessage(`{"fixture":true}`),
		},
	}
}

// fixtureProvider serves per-address canned snapshots through all four
// provider interfaces.
type fixtureProvider struct{}

// FixtureProviders returns enrichment options backed by canned snapshots.
func FixtureProviders() enrich.Options {
	p := &fixtureProvider{}
	return enrich.Options{
		Market:     p,
		Onchain:    p,
		Security:   p,
		SmartMoney: p,
	}
}

func (fixtureProvider) FetchMarket(_ context.Context, address string) (domain.MarketSnapshot, error) {
	price := 0.00021
	mcap := 210_000.0
	liquidity := 85_000.0
	volume := 95_000.0
	bsr := 1.1
	if address == fixtureMediocre {
		volume = 4_000.0
		bsr = 0.7
	}
	return domain.MarketSnapshot{
		PriceUSD:     &price,
		MarketCapUSD: &mcap,
		LiquidityUSD: &liquidity,
		Volume5mUSD:  &volume,
		BuySellRatio: &bsr,
	}, nil
}

func (fixtureProvider) FetchOnchain(_ context.Context, address string) (domain.OnchainSnapshot, error) {
	yes := true
	lockDays := 120.0
	s := domain.OnchainSnapshot{
		MintAuthorityRevoked:   &yes,
		FreezeAuthorityRevoked: &yes,
		LockDays:               &lockDays,
	}
	if address == fixtureUnsafe {
		no := false
		shortLock := 3.0
		s.MintAuthorityRevoked = &no
		s.LockDays = &shortLock
	}
	return s, nil
}

func (fixtureProvider) FetchRisk(_ context.Context, address string) (domain.RiskSnapshot, error) {
	yes := true
	no := false
	lockDays := 120.0
	rep := 0.9
	sniper := 0.06
	top10 := 0.18
	rugs := 0
	grads := 3
	tax := 0.0

	s := domain.RiskSnapshot{
		SellSimulationOK:   &yes,
		MintRevoked:        &yes,
		FreezeRevoked:      &yes,
		LockDays:           &lockDays,
		LockerReputation:   &rep,
		SniperPct:          &sniper,
		Top10Pct:           &top10,
		CreatorBlocklisted: &no,
		CreatorRecentRugs:  &rugs,
		CreatorGraduations: &grads,
		BuyTaxPct:          &tax,
		SellTaxPct:         &tax,
		HasBlacklist:       &no,
		HasWhitelist:       &no,
	}

	if address == fixtureUnsafe {
		notRevoked := false
		shortLock := 3.0
		heavySnipers := 0.45
		recentRugs := 3
		s.MintRevoked = &notRevoked
		s.LockDays = &shortLock
		s.SniperPct = &heavySnipers
		s.CreatorRecentRugs = &recentRugs
	}
	return s, nil
}

func (fixtureProvider) FetchAnalytics(_ context.Context, address string) (domain.AnalyticsSnapshot, error) {
	whale := 14_000.0
	smart := 6_000.0
	z := 3.2
	vol5m := 0.04
	if address == fixtureMediocre {
		whale = 300.0
		smart = -1_200.0
		z = 0.2
	}
	return domain.AnalyticsSnapshot{
		WhaleInflowUSD:   &whale,
		SmartMoneyNetUSD: &smart,
		VolumeZScore:     &z,
		Volatility5m:     &vol5m,
	}, nil
}
