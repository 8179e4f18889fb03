// Package gates implements the hard safety checks. Evaluation is pure and
// deterministic: no I/O, no hidden state. Missing risk fields fail the
// corresponding check (fail-closed).
package gates

import (
	"fmt"

	"solana-grad-pipeline/internal/config"
	"solana-grad-pipeline/internal/domain"
)

// Check is one named pass/fail safety check.
type Check struct {
	Name   string
	Passed bool
	Reason string // failure reason, empty when passed
}

// Result is the ordered outcome of all gate checks.
// Passed is the AND of every individual check.
type Result struct {
	Passed bool
	Checks []Check
}

// FailureReasons returns the reasons of all failing checks, in order.
func (r Result) FailureReasons() []string {
	var reasons []string
	for _, c := range r.Checks {
		if !c.Passed {
			reasons = append(reasons, c.Reason)
		}
	}
	return reasons
}

// Evaluator evaluates gate checks against configured thresholds.
type Evaluator struct {
	cfg config.Gates
}

// NewEvaluator creates a gate evaluator.
func NewEvaluator(cfg config.Gates) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Evaluate runs the fixed gate checks in order. Any single failing check
// forces overall Passed=false.
func (e *Evaluator) Evaluate(c *domain.EnrichedCandidate) Result {
	r := c.Risk

	checks := []Check{
		boolCheck("sellable", r.SellSimulationOK, "sell_simulation_failed"),
		boolCheck("mint_authority_revoked", mintRevoked(c), "mint_authority_present"),
		boolCheck("freeze_authority_revoked", freezeRevoked(c), "freeze_authority_present"),
		minCheck("liquidity_locked", lockDays(c), e.cfg.MinLockDays, "lock_days_below_min"),
		minCheck("locker_reputation", r.LockerReputation, e.cfg.MinLockerRep, "locker_reputation_low"),
		maxCheck("sniper_concentration", r.SniperPct, e.cfg.SniperCapPct, "sniper_pct_exceeded"),
		maxCheck("top10_concentration", r.Top10Pct, e.cfg.Top10CapPct, "top10_pct_exceeded"),
		notCheck("creator_not_blocklisted", r.CreatorBlocklisted, "creator_blocklisted"),
		rugCheck(r.CreatorRecentRugs, e.cfg.MaxRecentRugs),
	}

	passed := true
	for _, chk := range checks {
		if !chk.Passed {
			passed = false
			break
		}
	}
	return Result{Passed: passed, Checks: checks}
}

// The risk provider duplicates the authority flags from the on-chain
// snapshot; either source revoking counts, both missing fails.
func mintRevoked(c *domain.EnrichedCandidate) *bool {
	if c.Risk.MintRevoked != nil {
		return c.Risk.MintRevoked
	}
	return c.Onchain.MintAuthorityRevoked
}

func freezeRevoked(c *domain.EnrichedCandidate) *bool {
	if c.Risk.FreezeRevoked != nil {
		return c.Risk.FreezeRevoked
	}
	return c.Onchain.FreezeAuthorityRevoked
}

func lockDays(c *domain.EnrichedCandidate) *float64 {
	if c.Risk.LockDays != nil {
		return c.Risk.LockDays
	}
	return c.Onchain.LockDays
}

// boolCheck passes when the flag is present and true.
func boolCheck(name string, v *bool, failReason string) Check {
	if v == nil {
		return Check{Name: name, Reason: failReason + "_missing"}
	}
	if !*v {
		return Check{Name: name, Reason: failReason}
	}
	return Check{Name: name, Passed: true}
}

// notCheck passes when the flag is present and false.
func notCheck(name string, v *bool, failReason string) Check {
	if v == nil {
		return Check{Name: name, Reason: failReason + "_missing"}
	}
	if *v {
		return Check{Name: name, Reason: failReason}
	}
	return Check{Name: name, Passed: true}
}

// minCheck passes when the value is present and >= threshold.
func minCheck(name string, v *float64, min float64, failReason string) Check {
	if v == nil {
		return Check{Name: name, Reason: failReason + "_missing"}
	}
	if *v < min {
		return Check{Name: name, Reason: fmt.Sprintf("%s:%.2f<%.2f", failReason, *v, min)}
	}
	return Check{Name: name, Passed: true}
}

// maxCheck passes when the value is present and <= threshold.
// Equality passes: "must not exceed" means strictly greater fails.
func maxCheck(name string, v *float64, max float64, failReason string) Check {
	if v == nil {
		return Check{Name: name, Reason: failReason + "_missing"}
	}
	if *v > max {
		return Check{Name: name, Reason: fmt.Sprintf("%s:%.2f>%.2f", failReason, *v, max)}
	}
	return Check{Name: name, Passed: true}
}

// rugCheck fails when the creator has maxRugs or more recently flagged rugs.
func rugCheck(v *int, maxRugs int) Check {
	const name = "creator_rug_history"
	if v == nil {
		return Check{Name: name, Reason: "creator_rug_history_missing"}
	}
	if *v >= maxRugs {
		return Check{Name: name, Reason: fmt.Sprintf("creator_recent_rugs:%d", *v)}
	}
	return Check{Name: name, Passed: true}
}
