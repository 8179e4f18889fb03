// Package scoring computes the 0-100 graduation score (GS) from an
// enriched candidate. Nine weighted sub-scores, each clamped to [0,100].
// The formulas are heuristic with hand-picked constants; change them in
// lockstep with the probability model's ramps.
package scoring

import (
	"math"

	"solana-grad-pipeline/internal/domain"
)

// Sub-score names, in weight order.
const (
	SubLPQuality     = "lp_quality"
	SubMomentum      = "momentum"
	SubHolderQuality = "holder_quality"
	SubWhaleInflow   = "whale_inflow"
	SubSmartMoney    = "smart_money"
	SubCreator       = "creator_provenance"
	SubMigration     = "liquidity_migration"
	SubContract      = "contract_sanity"
	SubSellability   = "sellability"
)

// Fixed weights; sum to 1.0.
var weights = map[string]float64{
	SubLPQuality:     0.18,
	SubMomentum:      0.14,
	SubHolderQuality: 0.12,
	SubWhaleInflow:   0.10,
	SubSmartMoney:    0.12,
	SubCreator:       0.10,
	SubMigration:     0.09,
	SubContract:      0.09,
	SubSellability:   0.06,
}

// SubScoreNames returns the sub-score names in weight order.
func SubScoreNames() []string {
	return []string{
		SubLPQuality, SubMomentum, SubHolderQuality, SubWhaleInflow,
		SubSmartMoney, SubCreator, SubMigration, SubContract, SubSellability,
	}
}

// Result holds the graduation score and its nine sub-scores.
type Result struct {
	GraduationScore float64
	SubScores       map[string]float64
}

// Score computes the graduation score. Pure function of the candidate.
func Score(c *domain.EnrichedCandidate) Result {
	subs := map[string]float64{
		SubLPQuality:     lpQuality(c),
		SubMomentum:      momentum(c),
		SubHolderQuality: holderQuality(c),
		SubWhaleInflow:   whaleInflow(c),
		SubSmartMoney:    smartMoney(c),
		SubCreator:       creatorProvenance(c),
		SubMigration:     liquidityMigration(c),
		SubContract:      contractSanity(c),
		SubSellability:   sellability(c),
	}

	var gs float64
	for name, s := range subs {
		gs += weights[name] * s
	}
	return Result{GraduationScore: clamp(gs), SubScores: subs}
}

// lpQuality combines lock duration (smooth saturating curve with a 45-day
// midpoint) with the lock-holder's reputation.
func lpQuality(c *domain.EnrichedCandidate) float64 {
	days := coalesceF(c.Risk.LockDays, c.Onchain.LockDays)
	rep := 0.0
	if c.Risk.LockerReputation != nil {
		rep = *c.Risk.LockerReputation
	}
	if days == nil || *days <= 0 {
		return 0
	}
	d := *days
	lockCurve := 100 * d * d / (d*d + 45*45) // 45 days -> 50, saturates to 100
	return clamp(0.6*lockCurve + 40*rep)
}

// momentum rescales the short-window volume z-score (capped at 4) and
// tilts it by the buy/sell ratio.
func momentum(c *domain.EnrichedCandidate) float64 {
	if c.Analytics.VolumeZScore == nil {
		return 0
	}
	z := *c.Analytics.VolumeZScore
	if z < 0 {
		z = 0
	}
	if z > 4 {
		z = 4
	}
	base := z * 25

	mult := 1.0
	if c.Market.BuySellRatio != nil {
		mult = clampRange(*c.Market.BuySellRatio, 0.5, 1.2)
	}
	return clamp(base * mult)
}

// holderQuality penalizes concentration in top holders and snipers.
func holderQuality(c *domain.EnrichedCandidate) float64 {
	if c.Risk.Top10Pct == nil || c.Risk.SniperPct == nil {
		return 0
	}
	return clamp(100 - 150*(*c.Risk.Top10Pct) - 200*(*c.Risk.SniperPct))
}

// whaleInflow saturates when whale buys reach 10% of market cap.
func whaleInflow(c *domain.EnrichedCandidate) float64 {
	if c.Analytics.WhaleInflowUSD == nil || c.Market.MarketCapUSD == nil || *c.Market.MarketCapUSD <= 0 {
		return 0
	}
	return clamp(100 * *c.Analytics.WhaleInflowUSD / (0.10 * *c.Market.MarketCapUSD))
}

// smartMoney saturates when net smart-wallet inflow reaches 5% of market cap.
func smartMoney(c *domain.EnrichedCandidate) float64 {
	if c.Analytics.SmartMoneyNetUSD == nil || c.Market.MarketCapUSD == nil || *c.Market.MarketCapUSD <= 0 {
		return 0
	}
	net := *c.Analytics.SmartMoneyNetUSD
	if net <= 0 {
		return 0
	}
	return clamp(100 * net / (0.05 * *c.Market.MarketCapUSD))
}

// creatorProvenance scores the creator's track record.
func creatorProvenance(c *domain.EnrichedCandidate) float64 {
	if c.Risk.CreatorBlocklisted != nil && *c.Risk.CreatorBlocklisted {
		return 0
	}
	score := 80.0
	if c.Risk.CreatorRecentRugs != nil {
		rugs := *c.Risk.CreatorRecentRugs
		if rugs > 2 {
			rugs = 2
		}
		score -= 40 * float64(rugs)
	}
	if c.Risk.CreatorGraduations != nil && *c.Risk.CreatorGraduations > 0 {
		score += 20
	}
	return clamp(score)
}

// liquidityMigration maps bonding-curve progress [70,100] linearly to [0,100].
func liquidityMigration(c *domain.EnrichedCandidate) float64 {
	if c.Seed.CurvePercent == nil {
		return 0
	}
	p := *c.Seed.CurvePercent
	if p < 70 {
		return 0
	}
	return clamp((p - 70) / 30 * 100)
}

// contractSanity penalizes taxes, blacklist/whitelist capability and
// unrevoked authorities. Unknown authority state counts as unrevoked.
func contractSanity(c *domain.EnrichedCandidate) float64 {
	score := 100.0

	buyTax := coalesceF(c.Risk.BuyTaxPct, nil)
	sellTax := coalesceF(c.Risk.SellTaxPct, nil)
	if (buyTax != nil && *buyTax > 5) || (sellTax != nil && *sellTax > 5) {
		score -= 35
	}
	if c.Risk.HasBlacklist != nil && *c.Risk.HasBlacklist {
		score -= 35
	}
	if c.Risk.HasWhitelist != nil && *c.Risk.HasWhitelist {
		score -= 15
	}
	if !revoked(c.Risk.MintRevoked, c.Onchain.MintAuthorityRevoked) {
		score -= 25
	}
	if !revoked(c.Risk.FreezeRevoked, c.Onchain.FreezeAuthorityRevoked) {
		score -= 25
	}
	return clamp(score)
}

// sellability is the binary pass/fail of the sell simulation.
func sellability(c *domain.EnrichedCandidate) float64 {
	if c.Risk.SellSimulationOK != nil && *c.Risk.SellSimulationOK {
		return 100
	}
	return 0
}

func revoked(primary, fallback *bool) bool {
	if primary != nil {
		return *primary
	}
	if fallback != nil {
		return *fallback
	}
	return false
}

func coalesceF(a, b *float64) *float64 {
	if a != nil {
		return a
	}
	return b
}

func clamp(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}

func clampRange(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
