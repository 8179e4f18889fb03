// Package sizing converts the probability triple into a bounded position
// size using a fractional-Kelly rule. Pure; the risk manager's admission
// check is the caller's responsibility.
package sizing

import (
	"math"

	"solana-grad-pipeline/internal/config"
	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/model"
)

// Rationale codes carried on every decision for audit.
const (
	ReasonNonPositiveEV     = "non_positive_ev"
	ReasonMaxConcurrent     = "max_concurrent"
	ReasonGlobalExposureCap = "global_exposure_cap"
	ReasonPerTradeCap       = "per_trade_cap"
	ReasonKellyTarget       = "kelly_target"
)

// Decision is the sizing outcome. SizeFraction of 0 means no trade.
type Decision struct {
	SizeFraction  float64
	ExpectedValue float64
	Variance      float64
	KellyFraction float64 // raw EV/variance before multiplier and caps
	Mode          domain.Mode
	Reason        string
}

// Engine applies the Kelly rule under configured limits.
type Engine struct {
	cfg config.Risk
}

// NewEngine creates a sizing engine.
func NewEngine(cfg config.Risk) *Engine {
	return &Engine{cfg: cfg}
}

// Size computes the bounded position-size fraction.
//
//	EV   = Σ p_i · payoff_i
//	Var  = Σ p_i · payoff_i² − EV²
//	f    = EV / Var                        (raw Kelly)
//	size = min(kellyMultiplier·f, perTradeCap, exposure headroom)
func (e *Engine) Size(p model.Output, openExposure float64, openPositions int, mode domain.Mode) Decision {
	ev := p.PLoser*model.PayoffLoser + p.PWinner*model.PayoffWinner + p.PMega*model.PayoffMega
	second := p.PLoser*model.PayoffLoser*model.PayoffLoser +
		p.PWinner*model.PayoffWinner*model.PayoffWinner +
		p.PMega*model.PayoffMega*model.PayoffMega
	variance := second - ev*ev

	d := Decision{ExpectedValue: ev, Variance: variance, Mode: mode}

	if ev <= 0 {
		d.Reason = ReasonNonPositiveEV
		return d
	}
	if variance <= 0 {
		// Degenerate distribution; Kelly is undefined, refuse the trade.
		d.Reason = ReasonNonPositiveEV
		return d
	}

	kelly := ev / variance
	d.KellyFraction = kelly

	if openPositions >= e.cfg.MaxConcurrent {
		d.Reason = ReasonMaxConcurrent
		return d
	}

	target := e.cfg.KellyMultiplier * kelly
	reason := ReasonKellyTarget
	if target > e.cfg.PerTradeCap {
		target = e.cfg.PerTradeCap
		reason = ReasonPerTradeCap
	}

	available := math.Max(0, e.cfg.ExposureCap-openExposure)
	if available <= 0 {
		d.Reason = ReasonGlobalExposureCap
		return d
	}
	if target > available {
		target = available
		reason = ReasonGlobalExposureCap
	}

	d.SizeFraction = target
	d.Reason = reason
	return d
}
