package pipeline

import (
	"context"
	"errors"
	"io"
	"log"
	"math/rand"
	"sync"
	"testing"

	"solana-grad-pipeline/internal/config"
	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/enrich"
	"solana-grad-pipeline/internal/execution"
	"solana-grad-pipeline/internal/gates"
	"solana-grad-pipeline/internal/journal/memory"
	"solana-grad-pipeline/internal/model"
	"solana-grad-pipeline/internal/notify"
	"solana-grad-pipeline/internal/riskstate"
	"solana-grad-pipeline/internal/sizing"
)

// recordingNotifier captures alerts for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	alerts []notify.AlertRecord
}

func (n *recordingNotifier) Notify(_ context.Context, a notify.AlertRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
}

func (n *recordingNotifier) kinds() []notify.AlertKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.AlertKind, len(n.alerts))
	for i, a := range n.alerts {
		out[i] = a.Kind
	}
	return out
}

// failingExecutor always reports a failed fill.
type failingExecutor struct{}

func (failingExecutor) Mode() domain.Mode { return domain.ModePaper }

func (failingExecutor) Execute(context.Context, *domain.EnrichedCandidate, sizing.Decision) execution.Report {
	msg := "venue unavailable"
	return execution.Report{Error: &msg}
}

type testHarness struct {
	pipeline   *Pipeline
	risk       *riskstate.Manager
	decisions  *memory.DecisionStore
	executions *memory.ExecutionStore
	notifier   *recordingNotifier
}

func newHarness(t *testing.T, mutate func(o *Options)) *testHarness {
	t.Helper()

	cfg := config.Default()
	cfg.Paper.LatencyMs = 0
	risk := riskstate.New(cfg.Risk, domain.ModePaper)
	decisions := memory.NewDecisionStore()
	executions := memory.NewExecutionStore()
	notifier := &recordingNotifier{}
	logger := log.New(io.Discard, "", 0)

	fixtures := FixtureProviders()
	fixtures.Logger = logger

	opts := Options{
		Enricher:   enrich.NewAggregator(fixtures),
		Gates:      gates.NewEvaluator(cfg.Gates),
		Model:      model.New(domain.DefaultCalibration()),
		Sizer:      sizing.NewEngine(cfg.Risk),
		Risk:       risk,
		Paper:      execution.NewPaperExecutor(cfg.Paper, rand.New(rand.NewSource(42))),
		Decisions:  decisions,
		Executions: executions,
		Notifier:   notifier,
		Logger:     logger,
	}
	if mutate != nil {
		mutate(&opts)
	}

	return &testHarness{
		pipeline:   New(opts),
		risk:       risk,
		decisions:  decisions,
		executions: executions,
		notifier:   notifier,
	}
}

func strongSeed() domain.CandidateSeed {
	return FixtureSeeds()[0]
}

func unsafeSeed() domain.CandidateSeed {
	return FixtureSeeds()[1]
}

func TestProcess_StrongCandidateOpensTrade(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	rec := h.pipeline.Process(ctx, strongSeed())
	if rec.Stage != domain.StageCompleted {
		t.Fatalf("stage: got %s, reason %q", rec.Stage, rec.Reason)
	}
	if rec.Reason != ReasonTradeOpened {
		t.Errorf("reason: got %q", rec.Reason)
	}
	if !rec.GatePassed || len(rec.GateReasons) != 0 {
		t.Errorf("gates: passed=%v reasons=%v", rec.GatePassed, rec.GateReasons)
	}
	if rec.GraduationScore < 70 {
		t.Errorf("graduation score: got %.1f, want >= 70", rec.GraduationScore)
	}
	if rec.SizeFraction <= 0 || rec.SizeFraction > 0.005 {
		t.Errorf("size: got %f", rec.SizeFraction)
	}

	// Decision and execution are journaled.
	stored, err := h.decisions.GetByID(ctx, rec.DecisionID)
	if err != nil {
		t.Fatalf("decision not journaled: %v", err)
	}
	if stored.Stage != domain.StageCompleted {
		t.Errorf("journaled stage: got %s", stored.Stage)
	}
	execs, err := h.executions.GetByDecisionID(ctx, rec.DecisionID)
	if err != nil || len(execs) != 1 {
		t.Fatalf("execution not journaled: %v (%d records)", err, len(execs))
	}
	if !execs[0].Success || execs[0].Route != "paper" {
		t.Errorf("execution record: %+v", execs[0])
	}

	// The position is open in risk state.
	snap := h.risk.Snapshot()
	if snap.ConcurrentCount != 1 {
		t.Errorf("open positions: got %d, want 1", snap.ConcurrentCount)
	}
	if snap.Exposure != rec.SizeFraction {
		t.Errorf("exposure: got %f, want %f", snap.Exposure, rec.SizeFraction)
	}

	kinds := h.notifier.kinds()
	if len(kinds) != 1 || kinds[0] != notify.AlertTradeOpened {
		t.Errorf("alerts: got %v", kinds)
	}
}

func TestProcess_GateRejectionJournaled(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	rec := h.pipeline.Process(ctx, unsafeSeed())
	if rec.Stage != domain.StageGate || rec.Reason != ReasonGateFailed {
		t.Fatalf("got stage=%s reason=%q", rec.Stage, rec.Reason)
	}
	if rec.GatePassed || len(rec.GateReasons) == 0 {
		t.Errorf("gate reasons missing: %+v", rec)
	}
	if rec.SizeFraction != 0 {
		t.Errorf("rejected candidate sized: %f", rec.SizeFraction)
	}

	stored, err := h.decisions.GetByID(ctx, rec.DecisionID)
	if err != nil {
		t.Fatalf("decision not journaled: %v", err)
	}
	if got := stored.GateReasons; len(got) != len(rec.GateReasons) {
		t.Errorf("journaled reasons: %v", got)
	}

	// No execution record, no open position.
	execs, err := h.executions.GetByTimeRange(ctx, 0, 1<<62)
	if err != nil || len(execs) != 0 {
		t.Errorf("unexpected execution records: %d", len(execs))
	}
	if h.risk.Snapshot().ConcurrentCount != 0 {
		t.Error("rejected candidate opened a position")
	}

	kinds := h.notifier.kinds()
	if len(kinds) != 1 || kinds[0] != notify.AlertGateRejected {
		t.Errorf("alerts: got %v", kinds)
	}
}

func TestProcess_AdmissionRefusedWhenPaused(t *testing.T) {
	h := newHarness(t, nil)
	h.risk.SetPaused(true)
	ctx := context.Background()

	rec := h.pipeline.Process(ctx, strongSeed())
	if rec.Stage != domain.StageAdmission {
		t.Fatalf("stage: got %s, reason %q", rec.Stage, rec.Reason)
	}
	if rec.Reason != riskstate.ReasonPaused {
		t.Errorf("reason: got %q", rec.Reason)
	}
	if h.risk.Snapshot().ConcurrentCount != 0 {
		t.Error("paused pipeline opened a position")
	}

	kinds := h.notifier.kinds()
	if len(kinds) != 1 || kinds[0] != notify.AlertAdmissionDeny {
		t.Errorf("alerts: got %v", kinds)
	}
}

func TestProcess_ExecutionFailureLeavesRiskStateAlone(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Paper = failingExecutor{}
	})
	ctx := context.Background()

	rec := h.pipeline.Process(ctx, strongSeed())
	if rec.Stage != domain.StageExecution || rec.Reason != ReasonExecutionFailed {
		t.Fatalf("got stage=%s reason=%q", rec.Stage, rec.Reason)
	}

	// Failed attempt is journaled with the error.
	execs, err := h.executions.GetByDecisionID(ctx, rec.DecisionID)
	if err != nil || len(execs) != 1 {
		t.Fatalf("failed execution not journaled: %v (%d)", err, len(execs))
	}
	if execs[0].Success || execs[0].Error == nil {
		t.Errorf("execution record: %+v", execs[0])
	}

	// No position was opened.
	snap := h.risk.Snapshot()
	if snap.ConcurrentCount != 0 || snap.Exposure != 0 {
		t.Errorf("risk state mutated: %+v", snap)
	}

	kinds := h.notifier.kinds()
	if len(kinds) != 1 || kinds[0] != notify.AlertTradeFailed {
		t.Errorf("alerts: got %v", kinds)
	}
}

func TestProcess_JournalFailureDoesNotAbort(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Decisions = brokenDecisionStore{}
	})

	rec := h.pipeline.Process(context.Background(), strongSeed())
	if rec.Stage != domain.StageCompleted {
		t.Errorf("journal failure aborted the candidate: stage=%s", rec.Stage)
	}
	if h.risk.Snapshot().ConcurrentCount != 1 {
		t.Error("trade not opened despite healthy execution")
	}
}

func TestCloseTrade_EmitsKillSwitchAlert(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	addresses := []string{fixtureStrong, fixtureUnsafe, fixtureMediocre}
	for _, addr := range addresses {
		if err := h.risk.AddPosition(addr, 0.005, 50); err != nil {
			t.Fatalf("AddPosition %s: %v", addr, err)
		}
	}

	for i, addr := range addresses {
		if err := h.pipeline.CloseTrade(ctx, addr, -0.004); err != nil {
			t.Fatalf("CloseTrade %d: %v", i, err)
		}
	}

	var killAlerts int
	for _, k := range h.notifier.kinds() {
		if k == notify.AlertKillSwitch {
			killAlerts++
		}
	}
	if killAlerts != 1 {
		t.Errorf("kill-switch alerts: got %d, want exactly 1", killAlerts)
	}
	if h.risk.Snapshot().KillSwitchUntil == nil {
		t.Error("kill switch not armed after three losers")
	}
}

func TestCloseTrade_UnknownPosition(t *testing.T) {
	h := newHarness(t, nil)

	if err := h.pipeline.CloseTrade(context.Background(), "missing", 0.1); err == nil {
		t.Error("expected error for unknown position")
	}
}

func TestRun_DrainsSeedChannel(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	seeds := make(chan domain.CandidateSeed, 3)
	for _, s := range FixtureSeeds() {
		seeds <- s
	}
	close(seeds)

	h.pipeline.Run(ctx, seeds)

	recs, err := h.decisions.GetByTimeRange(ctx, 0, 1<<62)
	if err != nil {
		t.Fatalf("GetByTimeRange: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("journaled %d decisions, want 3", len(recs))
	}
}

func TestProcess_ConcurrentCandidatesShareHeadroom(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.risk.SetExposureCap(0.008); err != nil {
		t.Fatalf("SetExposureCap: %v", err)
	}
	ctx := context.Background()

	// Any address outside the canned fixture set gets the strong
	// snapshots, so both candidates size at the per-trade cap and
	// together exceed the 0.008 exposure cap.
	other := strongSeed()
	other.Address = "EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm"
	other.Symbol = "GRAD2"

	var wg sync.WaitGroup
	recs := make([]*domain.DecisionRecord, 2)
	for i, seed := range []domain.CandidateSeed{strongSeed(), other} {
		wg.Add(1)
		go func(i int, seed domain.CandidateSeed) {
			defer wg.Done()
			recs[i] = h.pipeline.Process(ctx, seed)
		}(i, seed)
	}
	wg.Wait()

	var opened, refused int
	for _, rec := range recs {
		switch {
		case rec.Stage == domain.StageCompleted && rec.Reason == ReasonTradeOpened:
			opened++
		case rec.Stage == domain.StageAdmission && rec.Reason == riskstate.ReasonGlobalExposureCap:
			refused++
		default:
			t.Errorf("unexpected outcome: stage=%s reason=%q", rec.Stage, rec.Reason)
		}
	}
	if opened != 1 || refused != 1 {
		t.Fatalf("got %d opened, %d refused, want exactly one of each", opened, refused)
	}

	// The journal and the risk state agree on how many trades exist.
	snap := h.risk.Snapshot()
	if snap.ConcurrentCount != 1 {
		t.Errorf("open positions: got %d, want 1", snap.ConcurrentCount)
	}
	if snap.Exposure != 0.005 {
		t.Errorf("exposure: got %f, want 0.005", snap.Exposure)
	}
	execs, err := h.executions.GetByTimeRange(ctx, 0, 1<<62)
	if err != nil || len(execs) != 1 {
		t.Fatalf("execution records: %v (%d), want exactly 1", err, len(execs))
	}
}

func TestProcess_DuplicateAddressRefused(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	first := h.pipeline.Process(ctx, strongSeed())
	if first.Stage != domain.StageCompleted {
		t.Fatalf("first: stage=%s reason=%q", first.Stage, first.Reason)
	}

	second := h.pipeline.Process(ctx, strongSeed())
	if second.Stage != domain.StageAdmission || second.Reason != riskstate.ReasonPositionOpen {
		t.Fatalf("second: stage=%s reason=%q", second.Stage, second.Reason)
	}
	if h.risk.Snapshot().ConcurrentCount != 1 {
		t.Error("duplicate candidate opened a second position")
	}
}

func TestProcess_LiveFallbackRecordsExecutingMode(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.risk.SetMode(domain.ModeLive); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	ctx := context.Background()

	rec := h.pipeline.Process(ctx, strongSeed())
	if rec.Stage != domain.StageCompleted {
		t.Fatalf("stage=%s reason=%q", rec.Stage, rec.Reason)
	}
	if rec.Mode != domain.ModeLive {
		t.Errorf("decision mode: got %s, want LIVE", rec.Mode)
	}

	// No live executor is wired, so the paper adapter ran; the journal
	// names the strategy that actually executed.
	execs, err := h.executions.GetByDecisionID(ctx, rec.DecisionID)
	if err != nil || len(execs) != 1 {
		t.Fatalf("execution records: %v (%d)", err, len(execs))
	}
	if execs[0].Mode != domain.ModePaper || execs[0].Route != "paper" {
		t.Errorf("execution record: mode=%s route=%s", execs[0].Mode, execs[0].Route)
	}
}

// brokenDecisionStore rejects every write.
type brokenDecisionStore struct{}

func (brokenDecisionStore) Insert(context.Context, *domain.DecisionRecord) error {
	return errors.New("disk full")
}

func (brokenDecisionStore) GetByID(context.Context, string) (*domain.DecisionRecord, error) {
	return nil, errors.New("disk full")
}

func (brokenDecisionStore) GetByAddress(context.Context, string) ([]*domain.DecisionRecord, error) {
	return nil, errors.New("disk full")
}

func (brokenDecisionStore) GetByTimeRange(context.Context, int64, int64) ([]*domain.DecisionRecord, error) {
	return nil, errors.New("disk full")
}
