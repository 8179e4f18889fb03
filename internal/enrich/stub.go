package enrich

import (
	"context"

	"solana-grad-pipeline/internal/domain"
)

// Stub providers return fixed snapshots or errors. Used by tests and the
// paper binary.

// StubMarketProvider implements MarketProvider.
type StubMarketProvider struct {
	Snapshot domain.MarketSnapshot
	Err      error
	Delay    func(ctx context.Context) error // optional blocking hook
}

func (s *StubMarketProvider) FetchMarket(ctx context.Context, _ string) (domain.MarketSnapshot, error) {
	if s.Delay != nil {
		if err := s.Delay(ctx); err != nil {
			return domain.MarketSnapshot{}, err
		}
	}
	return s.Snapshot, s.Err
}

// StubOnchainProvider implements OnchainProvider.
type StubOnchainProvider struct {
	Snapshot domain.OnchainSnapshot
	Err      error
}

func (s *StubOnchainProvider) FetchOnchain(_ context.Context, _ string) (domain.OnchainSnapshot, error) {
	return s.Snapshot, s.Err
}

// StubSecurityProvider implements SecurityProvider.
type StubSecurityProvider struct {
	Snapshot domain.RiskSnapshot
	Err      error
}

func (s *StubSecurityProvider) FetchRisk(_ context.Context, _ string) (domain.RiskSnapshot, error) {
	return s.Snapshot, s.Err
}

// StubSmartMoneyProvider implements SmartMoneyProvider.
type StubSmartMoneyProvider struct {
	Snapshot domain.AnalyticsSnapshot
	Err      error
}

func (s *StubSmartMoneyProvider) FetchAnalytics(_ context.Context, _ string) (domain.AnalyticsSnapshot, error) {
	return s.Snapshot, s.Err
}
