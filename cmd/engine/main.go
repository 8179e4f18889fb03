// Package main runs the full trading engine:
// - Intake (continuous): detector WebSocket feed
// - Pipeline (per candidate): enrich → gate → score → size → execute → journal
// - Equity snapshots and model recalibration (scheduled)
// - HTTP: /health, /metrics, /status, /admin/*, /positions/close
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"solana-grad-pipeline/internal/admin"
	"solana-grad-pipeline/internal/config"
	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/enrich"
	"solana-grad-pipeline/internal/execution"
	"solana-grad-pipeline/internal/gates"
	"solana-grad-pipeline/internal/intake"
	"solana-grad-pipeline/internal/journal"
	chstore "solana-grad-pipeline/internal/journal/clickhouse"
	"solana-grad-pipeline/internal/journal/memory"
	"solana-grad-pipeline/internal/journal/migrations"
	pgstore "solana-grad-pipeline/internal/journal/postgres"
	"solana-grad-pipeline/internal/model"
	"solana-grad-pipeline/internal/notify"
	"solana-grad-pipeline/internal/observability"
	"solana-grad-pipeline/internal/pipeline"
	"solana-grad-pipeline/internal/riskstate"
	"solana-grad-pipeline/internal/sizing"
)

// Engine holds all long-running components of the service.
type Engine struct {
	cfg      config.Root
	stores   *allStores
	risk     *riskstate.Manager
	model    *model.Model
	pipeline *pipeline.Pipeline
	logger   *log.Logger

	mu        sync.Mutex
	startedAt time.Time
	calibErrs []float64
	lastRecal time.Time
	recalRuns int
}

// allStores holds all journal implementations.
type allStores struct {
	decisionStore    journal.DecisionStore
	executionStore   journal.ExecutionStore
	equityStore      journal.EquityStore
	calibrationStore journal.CalibrationStore
}

func main() {
	// Load .env if present; system env wins.
	godotenv.Load()

	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	listenAddr := flag.String("listen", ":9090", "HTTP listen address (health/metrics/status/admin)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory journal instead of PostgreSQL/ClickHouse")
	recalInterval := flag.Duration("recal-interval", 6*time.Hour, "Model recalibration interval")
	flag.Parse()

	logger := log.New(os.Stdout, "[engine] ", log.LstdFlags|log.Lshortfile)

	cfg, err := loadConfig(*configPath, logger)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if !*useMemory && (cfg.PostgresDSN == "" || cfg.ClickhouseDSN == "") {
		logger.Fatal("postgres_dsn and clickhouse_dsn are required (use --use-memory for in-memory journal)")
	}
	if cfg.DetectorWSURL == "" {
		logger.Fatal("detector_ws_url is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, cfg, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create journal stores: %v", err)
	}
	defer cleanup()

	mdl, err := model.NewWithStore(ctx, stores.calibrationStore)
	if err != nil {
		logger.Fatalf("Failed to load calibration: %v", err)
	}

	risk := riskstate.New(cfg.Risk, domain.Mode(cfg.Mode))

	paperExec := execution.NewPaperExecutor(cfg.Paper, rand.New(rand.NewSource(time.Now().UnixNano())))

	pipe := pipeline.New(pipeline.Options{
		Enricher:   enrich.NewAggregator(enrich.FromConfig(cfg.Providers, log.New(os.Stdout, "[enrich] ", log.LstdFlags))),
		Gates:      gates.NewEvaluator(cfg.Gates),
		Model:      mdl,
		Sizer:      sizing.NewEngine(cfg.Risk),
		Risk:       risk,
		Paper:      paperExec,
		Decisions:  stores.decisionStore,
		Executions: stores.executionStore,
		Notifier:   notify.NewLogNotifier(log.New(os.Stdout, "", log.LstdFlags)),
		Logger:     log.New(os.Stdout, "[pipeline] ", log.LstdFlags),
	})

	engine := &Engine{
		cfg:       cfg,
		stores:    stores,
		risk:      risk,
		model:     mdl,
		pipeline:  pipe,
		logger:    logger,
		startedAt: time.Now(),
	}

	// Handle shutdown signals
	done := make(chan error, 1)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go engine.startHTTPServer(*listenAddr)

	err = engine.Run(ctx, *recalInterval)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Engine error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// loadConfig reads the config file, falling back to defaults when the
// file is absent.
func loadConfig(path string, logger *log.Logger) (config.Root, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Printf("Config %s not found, using defaults + env", path)
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(path)
}

// createStores creates the journal implementations.
func createStores(ctx context.Context, cfg config.Root, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			decisionStore:    memory.NewDecisionStore(),
			executionStore:   memory.NewExecutionStore(),
			equityStore:      memory.NewEquityStore(),
			calibrationStore: memory.NewCalibrationStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	stores := &allStores{
		decisionStore:    pgstore.NewDecisionStore(pool),
		executionStore:   pgstore.NewExecutionStore(pool),
		calibrationStore: pgstore.NewCalibrationStore(pool),
		equityStore:      chstore.NewEquityStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// Run starts intake, the pipeline and the scheduled loops, blocking until
// the context is cancelled or a component fails.
func (e *Engine) Run(ctx context.Context, recalInterval time.Duration) error {
	e.logger.Println("Starting engine...")

	feed, err := intake.NewFeed(ctx, e.cfg.DetectorWSURL, nil, log.New(os.Stdout, "[intake] ", log.LstdFlags))
	if err != nil {
		return fmt.Errorf("connect detector feed: %w", err)
	}
	defer feed.Close()

	errCh := make(chan error, 2)

	go func() {
		e.pipeline.Run(ctx, feed.Seeds())
	}()

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.AddUptime(15)
			}
		}
	}()

	go func() {
		if err := e.runEquitySnapshots(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("equity snapshots: %w", err)
		}
	}()

	go func() {
		if err := e.runRecalibration(ctx, recalInterval); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("recalibration: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runEquitySnapshots journals a risk-state snapshot on a fixed cadence.
func (e *Engine) runEquitySnapshots(ctx context.Context) error {
	interval := time.Duration(e.cfg.EquitySnapshotS) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s := e.risk.Snapshot()
			point := &domain.EquityPoint{
				Timestamp:     time.Now().UnixMilli(),
				Equity:        s.Equity,
				OpenExposure:  s.Exposure,
				OpenPositions: s.ConcurrentCount,
				DailyPnlPct:   s.DailyPnlPct,
				Mode:          s.Mode,
			}
			if err := e.stores.equityStore.Insert(ctx, point); err != nil {
				e.logger.Printf("Equity snapshot failed: %v", err)
				observability.RecordJournalWrite("equity", err)
			} else {
				observability.RecordJournalWrite("equity", nil)
			}
		}
	}
}

// runRecalibration periodically feeds accumulated prediction errors to
// the model.
func (e *Engine) runRecalibration(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.mu.Lock()
			errs := e.calibErrs
			e.calibErrs = nil
			e.mu.Unlock()

			if len(errs) == 0 {
				continue
			}
			if err := e.model.Calibrate(ctx, errs); err != nil {
				e.logger.Printf("Recalibration failed: %v", err)
				continue
			}
			e.mu.Lock()
			e.lastRecal = time.Now()
			e.recalRuns++
			e.mu.Unlock()
			e.logger.Printf("Recalibrated on %d samples", len(errs))
		}
	}
}

// startHTTPServer starts the HTTP server for health/metrics/status/admin.
func (e *Engine) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", e.handleStatus)
	mux.HandleFunc("/positions/close", e.handleClose)

	dispatcher := admin.NewDispatcher(e.risk, e.cfg.Admin.AllowedCallers, log.New(os.Stdout, "[admin] ", log.LstdFlags))
	mux.Handle("/admin/", dispatcher.Handler("/admin/"))

	e.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		e.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status          string     `json:"status"`
	Uptime          string     `json:"uptime"`
	Mode            string     `json:"mode"`
	OpenPositions   int        `json:"open_positions"`
	OpenExposure    float64    `json:"open_exposure"`
	Equity          float64    `json:"equity"`
	DailyPnlPct     float64    `json:"daily_pnl_pct"`
	Paused          bool       `json:"paused"`
	KillSwitchUntil *time.Time `json:"kill_switch_until,omitempty"`
	RecalRuns       int        `json:"recal_runs"`
	LastRecal       time.Time  `json:"last_recal,omitempty"`
}

func (e *Engine) handleStatus(w http.ResponseWriter, r *http.Request) {
	s := e.risk.Snapshot()

	e.mu.Lock()
	resp := StatusResponse{
		Status:          "running",
		Uptime:          time.Since(e.startedAt).String(),
		Mode:            string(s.Mode),
		OpenPositions:   s.ConcurrentCount,
		OpenExposure:    s.Exposure,
		Equity:          s.Equity,
		DailyPnlPct:     s.DailyPnlPct,
		Paused:          s.Paused,
		KillSwitchUntil: s.KillSwitchUntil,
		RecalRuns:       e.recalRuns,
		LastRecal:       e.lastRecal,
	}
	e.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// CloseRequest is the JSON body for /positions/close, posted by the
// external exit monitor when a position is unwound.
type CloseRequest struct {
	Address        string  `json:"address"`
	RealizedPnlPct float64 `json:"realized_pnl_pct"`
	// PredictedPWinner, when present, accumulates a calibration sample:
	// signed error = realized outcome (1 win / 0 loss) - predicted.
	PredictedPWinner *float64 `json:"predicted_p_winner,omitempty"`
}

func (e *Engine) handleClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CloseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Address == "" {
		http.Error(w, "address is required", http.StatusBadRequest)
		return
	}

	if err := e.pipeline.CloseTrade(r.Context(), req.Address, req.RealizedPnlPct); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	if req.PredictedPWinner != nil {
		realized := 0.0
		if req.RealizedPnlPct > 0 {
			realized = 1.0
		}
		e.mu.Lock()
		e.calibErrs = append(e.calibErrs, realized-*req.PredictedPWinner)
		e.mu.Unlock()
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("closed\n"))
}
