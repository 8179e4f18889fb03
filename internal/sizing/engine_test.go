package sizing

import (
	"math"
	"testing"

	"solana-grad-pipeline/internal/config"
	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/model"
)

func testRisk() config.Risk {
	return config.Risk{
		ExposureCap:     0.50,
		MaxConcurrent:   5,
		PerTradeCap:     0.005,
		KellyMultiplier: 0.20,
	}
}

// strongTriple is a clearly positive-EV distribution.
func strongTriple() model.Output {
	return model.Output{PLoser: 0.493, PWinner: 0.491, PMega: 0.016}
}

func TestSize_PositiveEVCappedAtPerTrade(t *testing.T) {
	e := NewEngine(testRisk())

	d := e.Size(strongTriple(), 0, 0, domain.ModePaper)
	if d.ExpectedValue <= 0 {
		t.Fatalf("expected positive EV, got %f", d.ExpectedValue)
	}
	if d.KellyFraction <= 0 {
		t.Fatalf("expected positive kelly fraction, got %f", d.KellyFraction)
	}

	// Fractional Kelly on a fat-tailed payoff still overshoots the
	// per-trade cap by a wide margin.
	if d.SizeFraction != 0.005 {
		t.Errorf("size: got %f, want per-trade cap 0.005", d.SizeFraction)
	}
	if d.Reason != ReasonPerTradeCap {
		t.Errorf("reason: got %q, want %q", d.Reason, ReasonPerTradeCap)
	}
	if d.Mode != domain.ModePaper {
		t.Errorf("mode: got %s, want PAPER", d.Mode)
	}
}

func TestSize_EVMatchesPayoffTable(t *testing.T) {
	e := NewEngine(testRisk())
	p := strongTriple()

	d := e.Size(p, 0, 0, domain.ModePaper)
	wantEV := p.PLoser*model.PayoffLoser + p.PWinner*model.PayoffWinner + p.PMega*model.PayoffMega
	if math.Abs(d.ExpectedValue-wantEV) > 1e-9 {
		t.Errorf("EV: got %f, want %f", d.ExpectedValue, wantEV)
	}
	if d.Variance <= 0 {
		t.Errorf("variance: got %f, want > 0", d.Variance)
	}
}

func TestSize_NonPositiveEV(t *testing.T) {
	e := NewEngine(testRisk())

	// All loser: EV = -0.70.
	d := e.Size(model.Output{PLoser: 1}, 0, 0, domain.ModePaper)
	if d.SizeFraction != 0 {
		t.Errorf("size: got %f, want 0", d.SizeFraction)
	}
	if d.Reason != ReasonNonPositiveEV {
		t.Errorf("reason: got %q, want %q", d.Reason, ReasonNonPositiveEV)
	}
}

func TestSize_MaxConcurrent(t *testing.T) {
	e := NewEngine(testRisk())

	d := e.Size(strongTriple(), 0, 5, domain.ModeLive)
	if d.SizeFraction != 0 || d.Reason != ReasonMaxConcurrent {
		t.Errorf("got size=%f reason=%q, want 0/%q", d.SizeFraction, d.Reason, ReasonMaxConcurrent)
	}
}

func TestSize_ExposureHeadroom(t *testing.T) {
	e := NewEngine(testRisk())

	// No headroom at all.
	d := e.Size(strongTriple(), 0.50, 1, domain.ModeLive)
	if d.SizeFraction != 0 || d.Reason != ReasonGlobalExposureCap {
		t.Errorf("at cap: got size=%f reason=%q, want 0/%q", d.SizeFraction, d.Reason, ReasonGlobalExposureCap)
	}

	// Headroom smaller than the per-trade cap shrinks the size.
	d = e.Size(strongTriple(), 0.498, 1, domain.ModeLive)
	if math.Abs(d.SizeFraction-0.002) > 1e-9 {
		t.Errorf("tight headroom: got size=%f, want 0.002", d.SizeFraction)
	}
	if d.Reason != ReasonGlobalExposureCap {
		t.Errorf("tight headroom reason: got %q, want %q", d.Reason, ReasonGlobalExposureCap)
	}
}

func TestSize_KellyTargetWhenSmall(t *testing.T) {
	// A barely positive edge yields a tiny Kelly fraction that fits
	// under the per-trade cap.
	cfg := testRisk()
	cfg.KellyMultiplier = 0.001
	e := NewEngine(cfg)

	p := model.Output{PLoser: 0.93, PWinner: 0.068, PMega: 0.002}
	d := e.Size(p, 0, 0, domain.ModePaper)
	if d.ExpectedValue <= 0 {
		t.Skipf("triple not positive EV: %f", d.ExpectedValue)
	}
	if d.Reason != ReasonKellyTarget {
		t.Errorf("reason: got %q, want %q", d.Reason, ReasonKellyTarget)
	}
	want := cfg.KellyMultiplier * d.KellyFraction
	if math.Abs(d.SizeFraction-want) > 1e-12 {
		t.Errorf("size: got %f, want %f", d.SizeFraction, want)
	}
}

func TestSize_NeverExceedsCaps(t *testing.T) {
	e := NewEngine(testRisk())

	triples := []model.Output{
		strongTriple(),
		{PLoser: 0.1, PWinner: 0.6, PMega: 0.3},
		{PLoser: 0.98, PWinner: 0.019, PMega: 0.001},
	}
	exposures := []float64{0, 0.1, 0.25, 0.4995, 0.5}

	for _, p := range triples {
		for _, exp := range exposures {
			d := e.Size(p, exp, 0, domain.ModePaper)
			if d.SizeFraction > 0.005+1e-12 {
				t.Errorf("size %f exceeds per-trade cap (exp=%f)", d.SizeFraction, exp)
			}
			if exp+d.SizeFraction > 0.50+1e-12 {
				t.Errorf("size %f breaches exposure cap at exposure %f", d.SizeFraction, exp)
			}
			if d.SizeFraction < 0 {
				t.Errorf("negative size %f", d.SizeFraction)
			}
		}
	}
}
