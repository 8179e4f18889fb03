package enrich

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"

	"solana-grad-pipeline/internal/config"
	"solana-grad-pipeline/internal/domain"
)

// newRestClient builds a resty client for one provider endpoint.
func newRestClient(p config.Provider, timeout time.Duration) *resty.Client {
	return resty.New().
		SetBaseURL(p.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json").
		SetHeader("X-API-KEY", p.APIKey)
}

// HTTPMarketProvider queries a Birdeye-style market data API.
type HTTPMarketProvider struct {
	client *resty.Client
}

// NewHTTPMarketProvider creates a market provider, or nil when no API key
// is configured (short-circuits to an empty snapshot, not an error).
func NewHTTPMarketProvider(p config.Provider, timeout time.Duration) *HTTPMarketProvider {
	if p.APIKey == "" || p.BaseURL == "" {
		return nil
	}
	return &HTTPMarketProvider{client: newRestClient(p, timeout)}
}

type marketResponse struct {
	PriceUSD     *float64 `json:"price_usd"`
	MarketCapUSD *float64 `json:"market_cap_usd"`
	LiquidityUSD *float64 `json:"liquidity_usd"`
	Volume5mUSD  *float64 `json:"volume_5m_usd"`
	BuySellRatio *float64 `json:"buy_sell_ratio"`
}

// FetchMarket implements MarketProvider.
func (p *HTTPMarketProvider) FetchMarket(ctx context.Context, address string) (domain.MarketSnapshot, error) {
	var body marketResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("address", address).
		SetResult(&body).
		Get("/v1/token/market")
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("market request: %w", err)
	}
	if resp.IsError() {
		return domain.MarketSnapshot{}, fmt.Errorf("market request: status %d", resp.StatusCode())
	}
	return domain.MarketSnapshot{
		PriceUSD:     body.PriceUSD,
		MarketCapUSD: body.MarketCapUSD,
		LiquidityUSD: body.LiquidityUSD,
		Volume5mUSD:  body.Volume5mUSD,
		BuySellRatio: body.BuySellRatio,
	}, nil
}

// HTTPOnchainProvider queries an on-chain metadata API.
type HTTPOnchainProvider struct {
	client *resty.Client
}

// NewHTTPOnchainProvider creates an on-chain provider, or nil without credentials.
func NewHTTPOnchainProvider(p config.Provider, timeout time.Duration) *HTTPOnchainProvider {
	if p.APIKey == "" || p.BaseURL == "" {
		return nil
	}
	return &HTTPOnchainProvider{client: newRestClient(p, timeout)}
}

type onchainResponse struct {
	MintAuthorityRevoked   *bool    `json:"mint_authority_revoked"`
	FreezeAuthorityRevoked *bool    `json:"freeze_authority_revoked"`
	LockAddress            *string  `json:"lock_address"`
	LockDays               *float64 `json:"lock_days"`
	TotalSupply            *float64 `json:"total_supply"`
}

// FetchOnchain implements OnchainProvider.
func (p *HTTPOnchainProvider) FetchOnchain(ctx context.Context, address string) (domain.OnchainSnapshot, error) {
	var body onchainResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("mint", address).
		SetResult(&body).
		Get("/v1/token/meta")
	if err != nil {
		return domain.OnchainSnapshot{}, fmt.Errorf("onchain request: %w", err)
	}
	if resp.IsError() {
		return domain.OnchainSnapshot{}, fmt.Errorf("onchain request: status %d", resp.StatusCode())
	}
	return domain.OnchainSnapshot{
		MintAuthorityRevoked:   body.MintAuthorityRevoked,
		FreezeAuthorityRevoked: body.FreezeAuthorityRevoked,
		LockAddress:            body.LockAddress,
		LockDays:               body.LockDays,
		TotalSupply:            body.TotalSupply,
	}, nil
}

// HTTPSecurityProvider queries a RugCheck-style security/holder-risk API.
type HTTPSecurityProvider struct {
	client *resty.Client
}

// NewHTTPSecurityProvider creates a security provider, or nil without credentials.
func NewHTTPSecurityProvider(p config.Provider, timeout time.Duration) *HTTPSecurityProvider {
	if p.APIKey == "" || p.BaseURL == "" {
		return nil
	}
	return &HTTPSecurityProvider{client: newRestClient(p, timeout)}
}

type securityResponse struct {
	SellSimulationOK   *bool    `json:"sell_simulation_ok"`
	MintRevoked        *bool    `json:"mint_revoked"`
	FreezeRevoked      *bool    `json:"freeze_revoked"`
	LockDays           *float64 `json:"lock_days"`
	LockerReputation   *float64 `json:"locker_reputation"`
	SniperPct          *float64 `json:"sniper_pct"`
	Top10Pct           *float64 `json:"top10_pct"`
	CreatorBlocklisted *bool    `json:"creator_blocklisted"`
	CreatorRecentRugs  *int     `json:"creator_recent_rugs"`
	CreatorGraduations *int     `json:"creator_graduations"`
	BuyTaxPct          *float64 `json:"buy_tax_pct"`
	SellTaxPct         *float64 `json:"sell_tax_pct"`
	HasBlacklist       *bool    `json:"has_blacklist"`
	HasWhitelist       *bool    `json:"has_whitelist"`
}

// FetchRisk implements SecurityProvider.
func (p *HTTPSecurityProvider) FetchRisk(ctx context.Context, address string) (domain.RiskSnapshot, error) {
	var body securityResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetPathParam("mint", address).
		SetResult(&body).
		Get("/v1/tokens/{mint}/report")
	if err != nil {
		return domain.RiskSnapshot{}, fmt.Errorf("security request: %w", err)
	}
	if resp.IsError() {
		return domain.RiskSnapshot{}, fmt.Errorf("security request: status %d", resp.StatusCode())
	}
	return domain.RiskSnapshot{
		SellSimulationOK:   body.SellSimulationOK,
		MintRevoked:        body.MintRevoked,
		FreezeRevoked:      body.FreezeRevoked,
		LockDays:           body.LockDays,
		LockerReputation:   body.LockerReputation,
		SniperPct:          body.SniperPct,
		Top10Pct:           body.Top10Pct,
		CreatorBlocklisted: body.CreatorBlocklisted,
		CreatorRecentRugs:  body.CreatorRecentRugs,
		CreatorGraduations: body.CreatorGraduations,
		BuyTaxPct:          body.BuyTaxPct,
		SellTaxPct:         body.SellTaxPct,
		HasBlacklist:       body.HasBlacklist,
		HasWhitelist:       body.HasWhitelist,
	}, nil
}

// HTTPSmartMoneyProvider queries an aggregated wallet-flow API.
type HTTPSmartMoneyProvider struct {
	client *resty.Client
}

// NewHTTPSmartMoneyProvider creates a flow provider, or nil without credentials.
func NewHTTPSmartMoneyProvider(p config.Provider, timeout time.Duration) *HTTPSmartMoneyProvider {
	if p.APIKey == "" || p.BaseURL == "" {
		return nil
	}
	return &HTTPSmartMoneyProvider{client: newRestClient(p, timeout)}
}

type analyticsResponse struct {
	BuyVolume5mUSD   *float64 `json:"buy_volume_5m_usd"`
	SellVolume5mUSD  *float64 `json:"sell_volume_5m_usd"`
	TradeCount5m     *int     `json:"trade_count_5m"`
	WhaleInflowUSD   *float64 `json:"whale_inflow_usd"`
	SmartMoneyNetUSD *float64 `json:"smart_money_net_usd"`
	VolumeZScore     *float64 `json:"volume_z_score"`
	Volatility5m     *float64 `json:"volatility_5m"`
}

// FetchAnalytics implements SmartMoneyProvider.
func (p *HTTPSmartMoneyProvider) FetchAnalytics(ctx context.Context, address string) (domain.AnalyticsSnapshot, error) {
	var body analyticsResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("token", address).
		SetResult(&body).
		Get("/v1/flows")
	if err != nil {
		return domain.AnalyticsSnapshot{}, fmt.Errorf("smart-money request: %w", err)
	}
	if resp.IsError() {
		return domain.AnalyticsSnapshot{}, fmt.Errorf("smart-money request: status %d", resp.StatusCode())
	}
	return domain.AnalyticsSnapshot{
		BuyVolume5mUSD:   body.BuyVolume5mUSD,
		SellVolume5mUSD:  body.SellVolume5mUSD,
		TradeCount5m:     body.TradeCount5m,
		WhaleInflowUSD:   body.WhaleInflowUSD,
		SmartMoneyNetUSD: body.SmartMoneyNetUSD,
		VolumeZScore:     body.VolumeZScore,
		Volatility5m:     body.Volatility5m,
	}, nil
}

// FromConfig wires the four HTTP providers into aggregator options.
// Providers without credentials stay nil and degrade to empty snapshots.
func FromConfig(cfg config.Providers, logger *log.Logger) Options {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	opts := Options{
		Timeout:    timeout,
		RatePerSec: cfg.RatePerSec,
		Logger:     logger,
	}
	if p := NewHTTPMarketProvider(cfg.Market, timeout); p != nil {
		opts.Market = p
	}
	if p := NewHTTPOnchainProvider(cfg.Onchain, timeout); p != nil {
		opts.Onchain = p
	}
	if p := NewHTTPSecurityProvider(cfg.Security, timeout); p != nil {
		opts.Security = p
	}
	if p := NewHTTPSmartMoneyProvider(cfg.SmartMoney, timeout); p != nil {
		opts.SmartMoney = p
	}
	return opts
}
