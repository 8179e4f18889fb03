// Package model maps the graduation score to a calibrated probability
// triple over {loser, winner, mega-winner}. The base mapping is two
// saturating ramps with a risk penalty; temperature scaling and a learned
// prior shift are applied on top. The triple always sums to 1.
package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/journal"
	"solana-grad-pipeline/internal/scoring"
)

// Payoff table shared with the sizing engine: fractional return
// multipliers per outcome class.
const (
	PayoffLoser  = -0.70
	PayoffWinner = 10.0
	PayoffMega   = 50.0
)

// Base ramp constants. The winner ramp starts contributing near GS=68,
// the mega ramp near GS=82.
const (
	winnerRampMid   = 74.0
	winnerRampScale = 4.0
	winnerMass      = 0.60
	megaRampMid     = 88.0
	megaRampScale   = 3.0
	megaMass        = 0.25

	sellFailPenalty  = 0.25
	blocklistPenalty = 0.20
)

// Calibration bounds.
const (
	minTemperature = 0.5
	maxTemperature = 2.0
	maxPriorShift  = 0.10
	minMass        = 0.001
	maxMass        = 0.98
)

// Output is the probability triple. Sums to 1.0 within floating tolerance.
type Output struct {
	PLoser  float64
	PWinner float64
	PMega   float64
}

// Sum returns the total probability mass; 1.0 within floating tolerance.
func (o Output) Sum() float64 {
	return o.PLoser + o.PWinner + o.PMega
}

// Model holds the calibration state. Predict is read-only with respect to
// it; Calibrate is the only mutator.
type Model struct {
	mu    sync.RWMutex
	cal   domain.CalibrationState
	store journal.CalibrationStore // nil when persistence is disabled
}

// New creates a model with the given calibration and no persistence.
func New(cal domain.CalibrationState) *Model {
	return &Model{cal: cal}
}

// NewWithStore creates a model that loads its calibration from the store
// and persists every Calibrate call. A missing record yields the default
// (identity) calibration.
func NewWithStore(ctx context.Context, store journal.CalibrationStore) (*Model, error) {
	cal, err := store.Load(ctx)
	if err != nil {
		if !errors.Is(err, journal.ErrNotFound) {
			return nil, fmt.Errorf("load calibration: %w", err)
		}
		cal = domain.DefaultCalibration()
	}
	return &Model{cal: cal, store: store}, nil
}

// Calibration returns the current calibration state.
func (m *Model) Calibration() domain.CalibrationState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cal
}

// Predict maps (scoring result, risk snapshot) to the calibrated triple.
// Deterministic for a fixed calibration state.
func (m *Model) Predict(sc scoring.Result, risk domain.RiskSnapshot) Output {
	m.mu.RLock()
	cal := m.cal
	m.mu.RUnlock()

	out := basePrediction(sc.GraduationScore, risk)
	out = applyTemperature(out, cal.Temperature)
	out = applyPriorShift(out, cal.PriorShift)
	return out
}

// Calibrate adjusts temperature from the mean absolute prediction error
// and the prior shift from the mean signed error, then persists.
func (m *Model) Calibrate(ctx context.Context, errs []float64) error {
	if len(errs) == 0 {
		return nil
	}

	var sumAbs, sumSigned float64
	for _, e := range errs {
		sumAbs += math.Abs(e)
		sumSigned += e
	}
	meanAbs := sumAbs / float64(len(errs))
	meanSigned := sumSigned / float64(len(errs))

	m.mu.Lock()
	m.cal.Temperature = clampRange(1+meanAbs, minTemperature, maxTemperature)
	m.cal.PriorShift = clampRange(-meanSigned/2, -maxPriorShift, maxPriorShift)
	m.cal.Samples += len(errs)
	cal := m.cal
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Save(ctx, cal); err != nil {
			return fmt.Errorf("persist calibration: %w", err)
		}
	}
	return nil
}

func basePrediction(gs float64, risk domain.RiskSnapshot) Output {
	pWinner := winnerMass * sigmoid((gs-winnerRampMid)/winnerRampScale)
	pMega := megaMass * sigmoid((gs-megaRampMid)/megaRampScale)
	pLoser := 1 - pWinner - pMega

	if risk.SellSimulationOK == nil || !*risk.SellSimulationOK {
		pLoser += sellFailPenalty
	}
	if risk.CreatorBlocklisted != nil && *risk.CreatorBlocklisted {
		pLoser += blocklistPenalty
	}

	return normalize(Output{PLoser: pLoser, PWinner: pWinner, PMega: pMega})
}

// applyTemperature exponentiates each mass by 1/T and renormalizes.
// T=1 is the identity.
func applyTemperature(o Output, t float64) Output {
	if t <= 0 {
		t = 1
	}
	inv := 1 / t
	return normalize(Output{
		PLoser:  math.Pow(o.PLoser, inv),
		PWinner: math.Pow(o.PWinner, inv),
		PMega:   math.Pow(o.PMega, inv),
	})
}

// applyPriorShift moves mass into (or out of) the winner class and
// redistributes the remainder proportionally between loser and mega.
func applyPriorShift(o Output, shift float64) Output {
	if shift == 0 {
		return o
	}

	newWinner := clampRange(o.PWinner+shift, minMass, maxMass)
	delta := newWinner - o.PWinner
	rest := o.PLoser + o.PMega
	if rest <= 0 {
		return o
	}

	out := Output{
		PWinner: newWinner,
		PLoser:  math.Max(minMass, o.PLoser-delta*o.PLoser/rest),
		PMega:   math.Max(minMass, o.PMega-delta*o.PMega/rest),
	}
	return normalize(out)
}

func normalize(o Output) Output {
	sum := o.PLoser + o.PWinner + o.PMega
	if sum <= 0 {
		return Output{PLoser: 1}
	}
	return Output{
		PLoser:  o.PLoser / sum,
		PWinner: o.PWinner / sum,
		PMega:   o.PMega / sum,
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clampRange(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
