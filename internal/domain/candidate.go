package domain

import "encoding/json"

// CandidateSeed represents a newly detected tradable token pushed by an
// external detector. Immutable; consumed once by the pipeline.
type CandidateSeed struct {
	Address      string          // token mint address, base58
	Symbol       string          // ticker symbol as reported by the detector
	Source       string          // detector tag, e.g. "pumpfun_graduation"
	CurvePercent *float64        // bonding-curve progress 0-100 (nullable)
	DetectedAt   int64           // Unix timestamp in milliseconds
	Raw          json.RawMessage // raw detector payload, kept for audit
}

// MarketSnapshot holds market-data provider fields. Nil means the provider
// did not answer; gates treat missing safety-relevant fields as failing.
type MarketSnapshot struct {
	PriceUSD     *float64
	MarketCapUSD *float64
	LiquidityUSD *float64
	Volume5mUSD  *float64
	BuySellRatio *float64
}

// OnchainSnapshot holds on-chain metadata provider fields.
type OnchainSnapshot struct {
	MintAuthorityRevoked   *bool
	FreezeAuthorityRevoked *bool
	LockAddress            *string
	LockDays               *float64
	TotalSupply            *float64
}

// RiskSnapshot holds security/holder-risk provider fields.
type RiskSnapshot struct {
	SellSimulationOK   *bool
	MintRevoked        *bool
	FreezeRevoked      *bool
	LockDays           *float64
	LockerReputation   *float64 // 0-1
	SniperPct          *float64 // fraction of supply, 0-1
	Top10Pct           *float64 // fraction of supply, 0-1
	CreatorBlocklisted *bool
	CreatorRecentRugs  *int
	CreatorGraduations *int
	BuyTaxPct          *float64
	SellTaxPct         *float64
	HasBlacklist       *bool
	HasWhitelist       *bool
}

// AnalyticsSnapshot holds smart-money/flow provider fields.
type AnalyticsSnapshot struct {
	BuyVolume5mUSD   *float64
	SellVolume5mUSD  *float64
	TradeCount5m     *int
	WhaleInflowUSD   *float64
	SmartMoneyNetUSD *float64
	VolumeZScore     *float64 // short-window volume z-score vs baseline
	Volatility5m     *float64 // fractional stddev of 5m returns
}

// EnrichedCandidate is a CandidateSeed plus the four provider snapshots.
// Built once per candidate; never mutated after enrichment.
type EnrichedCandidate struct {
	Seed       CandidateSeed
	Market     MarketSnapshot
	Onchain    OnchainSnapshot
	Risk       RiskSnapshot
	Analytics  AnalyticsSnapshot
	EnrichedAt int64 // Unix timestamp in milliseconds
}
