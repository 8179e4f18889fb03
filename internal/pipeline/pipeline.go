// Package pipeline runs one candidate from seed to journaled decision:
// enrich, gate, score, predict, size, admit, execute, record. Each
// candidate is processed in its own goroutine; all shared state lives in
// the risk manager and the journal.
package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/enrich"
	"solana-grad-pipeline/internal/execution"
	"solana-grad-pipeline/internal/gates"
	"solana-grad-pipeline/internal/journal"
	"solana-grad-pipeline/internal/model"
	"solana-grad-pipeline/internal/notify"
	"solana-grad-pipeline/internal/observability"
	"solana-grad-pipeline/internal/riskstate"
	"solana-grad-pipeline/internal/scoring"
	"solana-grad-pipeline/internal/sizing"
)

// Decision reason codes for terminal outcomes not covered by sizing or
// admission refusals.
const (
	ReasonGateFailed      = "gate_failed"
	ReasonExecutionFailed = "execution_failed"
	ReasonTradeOpened     = "trade_opened"
)

// Options bundles the pipeline's collaborators.
type Options struct {
	Enricher *enrich.Aggregator
	Gates    *gates.Evaluator
	Model    *model.Model
	Sizer    *sizing.Engine
	Risk     *riskstate.Manager

	// Executors by mode. Paper is required; live may be absent, in
	// which case LIVE decisions fall back to paper execution.
	Paper execution.Executor
	Live  execution.Executor

	Decisions  journal.DecisionStore
	Executions journal.ExecutionStore
	Notifier   notify.Notifier
	Logger     *log.Logger
}

// Pipeline processes candidates end to end.
type Pipeline struct {
	opts   Options
	logger *log.Logger
	now    func() time.Time

	wg sync.WaitGroup
}

// New creates a Pipeline. Paper executor, stores, gates, model, sizer and
// risk manager are required.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NopNotifier{}
	}
	return &Pipeline{opts: opts, logger: logger, now: time.Now}
}

// Run consumes seeds until the channel closes or the context is
// cancelled, spawning one goroutine per candidate. Blocks until all
// in-flight candidates finish.
func (p *Pipeline) Run(ctx context.Context, seeds <-chan domain.CandidateSeed) {
	for {
		select {
		case <-ctx.Done():
			p.wg.Wait()
			return
		case seed, ok := <-seeds:
			if !ok {
				p.wg.Wait()
				return
			}
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				p.Process(ctx, seed)
			}()
		}
	}
}

// Process runs one candidate through the full pipeline and journals the
// terminal outcome. Never panics; every failure path is a recorded
// decision.
func (p *Pipeline) Process(ctx context.Context, seed domain.CandidateSeed) *domain.DecisionRecord {
	observability.RecordCandidateReceived(p.now().Unix())

	candidate := p.opts.Enricher.Enrich(ctx, seed)

	rec := &domain.DecisionRecord{
		DecisionID: uuid.NewString(),
		Address:    seed.Address,
		Symbol:     seed.Symbol,
		Source:     seed.Source,
		CreatedAt:  p.now().UnixMilli(),
	}

	gateResult := p.opts.Gates.Evaluate(candidate)
	rec.GatePassed = gateResult.Passed
	rec.GateReasons = gateResult.FailureReasons()
	observability.RecordGateResult(gateResult.Passed, rec.GateReasons)

	if !gateResult.Passed {
		rec.Stage = domain.StageGate
		rec.Reason = ReasonGateFailed
		rec.Mode = p.opts.Risk.Snapshot().Mode
		p.record(ctx, rec, nil)
		p.notify(ctx, notify.AlertGateRejected, rec)
		return rec
	}

	score := scoring.Score(candidate)
	rec.GraduationScore = score.GraduationScore
	observability.RecordGraduationScore(score.GraduationScore)

	probs := p.opts.Model.Predict(score, candidate.Risk)
	rec.ProbLoser = probs.PLoser
	rec.ProbWinner = probs.PWinner
	rec.ProbMega = probs.PMega

	snapshot := p.opts.Risk.Snapshot()
	rec.Mode = snapshot.Mode

	decision := p.opts.Sizer.Size(probs, snapshot.Exposure, snapshot.ConcurrentCount, snapshot.Mode)
	rec.SizeFraction = decision.SizeFraction
	rec.ExpectedValue = decision.ExpectedValue
	rec.Variance = decision.Variance
	rec.KellyFraction = decision.KellyFraction

	if decision.SizeFraction <= 0 {
		rec.Stage = domain.StageSizing
		rec.Reason = decision.Reason
		observability.RecordSizingRefusal(decision.Reason)
		p.record(ctx, rec, nil)
		return rec
	}

	// Admission and exposure booking are one atomic step; the
	// reservation holds the headroom across the execution call and is
	// released if the fill never happens.
	notional := decision.SizeFraction * snapshot.Equity
	admitted, refusal := p.opts.Risk.Reserve(seed.Address, decision.SizeFraction, notional)
	if !admitted {
		rec.Stage = domain.StageAdmission
		rec.Reason = refusal
		observability.RecordAdmissionRefusal(refusal)
		p.record(ctx, rec, nil)
		p.notify(ctx, notify.AlertAdmissionDeny, rec)
		return rec
	}
	p.updateRiskGauges()

	executor := p.executorFor(snapshot.Mode)
	start := p.now()
	report := executor.Execute(ctx, candidate, decision)
	observability.RecordTrade(string(executor.Mode()), report.Success, p.now().Sub(start).Seconds())

	exec := executionRecord(rec, decision, report, executor.Mode(), p.now().UnixMilli())

	if !report.Success {
		p.opts.Risk.Release(seed.Address)
		p.updateRiskGauges()
		rec.Stage = domain.StageExecution
		rec.Reason = ReasonExecutionFailed
		p.record(ctx, rec, exec)
		p.notify(ctx, notify.AlertTradeFailed, rec)
		return rec
	}

	rec.Stage = domain.StageCompleted
	rec.Reason = ReasonTradeOpened
	p.record(ctx, rec, exec)
	p.notify(ctx, notify.AlertTradeOpened, rec)

	p.logger.Printf("[pipeline] opened %s (%s) gs=%.1f size=%.4f mode=%s",
		seed.Symbol, seed.Address, rec.GraduationScore, rec.SizeFraction, rec.Mode)
	return rec
}

// CloseTrade applies a realized close to the risk state and surfaces any
// protection the close tripped (kill-switch, daily loss demotion).
func (p *Pipeline) CloseTrade(ctx context.Context, address string, realizedPnlPct float64) error {
	before := p.opts.Risk.Snapshot()
	if err := p.opts.Risk.ClosePosition(address, realizedPnlPct); err != nil {
		return err
	}
	after := p.opts.Risk.Snapshot()
	p.updateRiskGauges()

	if before.KillSwitchUntil == nil && after.KillSwitchUntil != nil {
		p.opts.Notifier.Notify(ctx, notify.AlertRecord{
			Kind:      notify.AlertKillSwitch,
			Address:   address,
			Mode:      after.Mode,
			Reason:    riskstate.ReasonKillSwitchActive,
			CreatedAt: p.now().UnixMilli(),
		})
	}
	if !before.DailyLossActive && after.DailyLossActive {
		p.opts.Notifier.Notify(ctx, notify.AlertRecord{
			Kind:      notify.AlertDailyLossLimit,
			Address:   address,
			Mode:      after.Mode,
			Reason:    riskstate.ReasonDailyLossCap,
			CreatedAt: p.now().UnixMilli(),
		})
	}
	return nil
}

func (p *Pipeline) executorFor(mode domain.Mode) execution.Executor {
	if mode == domain.ModeLive && p.opts.Live != nil {
		return p.opts.Live
	}
	return p.opts.Paper
}

// record journals the decision and, when present, its execution record.
// Journal failures are logged and counted, never propagated: losing an
// audit row must not kill the candidate flow.
func (p *Pipeline) record(ctx context.Context, rec *domain.DecisionRecord, exec *domain.ExecutionRecord) {
	if err := p.opts.Decisions.Insert(ctx, rec); err != nil {
		p.logger.Printf("[pipeline] journal decision %s: %v", rec.DecisionID, err)
		observability.RecordJournalWrite("decision", err)
	} else {
		observability.RecordJournalWrite("decision", nil)
	}

	if exec == nil {
		return
	}
	if err := p.opts.Executions.Insert(ctx, exec); err != nil {
		p.logger.Printf("[pipeline] journal execution %s: %v", exec.ExecutionID, err)
		observability.RecordJournalWrite("execution", err)
	} else {
		observability.RecordJournalWrite("execution", nil)
	}
}

func (p *Pipeline) notify(ctx context.Context, kind notify.AlertKind, rec *domain.DecisionRecord) {
	p.opts.Notifier.Notify(ctx, notify.AlertRecord{
		Kind:            kind,
		Address:         rec.Address,
		Symbol:          rec.Symbol,
		Mode:            rec.Mode,
		GraduationScore: rec.GraduationScore,
		ProbWinner:      rec.ProbWinner,
		SizeFraction:    rec.SizeFraction,
		Reason:          rec.Reason,
		CreatedAt:       rec.CreatedAt,
	})
}

func (p *Pipeline) updateRiskGauges() {
	s := p.opts.Risk.Snapshot()
	observability.UpdateRiskState(s.ConcurrentCount, s.Exposure, s.DailyPnlPct, s.KillSwitchUntil != nil)
}

// executionRecord builds the journal row for one execution attempt. Mode
// is the executing adapter's, which differs from the decision's effective
// mode when a LIVE decision fell back to paper execution.
func executionRecord(rec *domain.DecisionRecord, d sizing.Decision, r execution.Report, mode domain.Mode, nowMs int64) *domain.ExecutionRecord {
	return &domain.ExecutionRecord{
		ExecutionID:  uuid.NewString(),
		DecisionID:   rec.DecisionID,
		Address:      rec.Address,
		Mode:         mode,
		SizeFraction: d.SizeFraction,
		EntryPrice:   r.EntryPrice,
		SlippageBps:  r.SlippageBps,
		TipLamports:  r.TipLamports,
		Route:        r.Route,
		TxSignature:  r.TxSignature,
		Success:      r.Success,
		Error:        r.Error,
		CreatedAt:    nowMs,
	}
}
