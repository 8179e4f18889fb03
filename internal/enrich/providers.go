package enrich

import (
	"context"

	"solana-grad-pipeline/internal/domain"
)

// MarketProvider returns price/market-cap/liquidity/volume data for a mint.
type MarketProvider interface {
	FetchMarket(ctx context.Context, address string) (domain.MarketSnapshot, error)
}

// OnchainProvider returns mint/freeze authority and lock info for a mint.
type OnchainProvider interface {
	FetchOnchain(ctx context.Context, address string) (domain.OnchainSnapshot, error)
}

// SecurityProvider returns sellability, concentration and creator
// reputation data for a mint.
type SecurityProvider interface {
	FetchRisk(ctx context.Context, address string) (domain.RiskSnapshot, error)
}

// SmartMoneyProvider returns aggregated wallet-flow metrics for a mint.
type SmartMoneyProvider interface {
	FetchAnalytics(ctx context.Context, address string) (domain.AnalyticsSnapshot, error)
}
