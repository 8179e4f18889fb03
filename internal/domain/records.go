package domain

// Stage identifies how far a candidate travelled through the pipeline
// before reaching a terminal outcome.
type Stage string

const (
	StageIntake    Stage = "INTAKE"
	StageGate      Stage = "GATE"
	StageSizing    Stage = "SIZING"
	StageAdmission Stage = "ADMISSION"
	StageExecution Stage = "EXECUTION"
	StageCompleted Stage = "COMPLETED"
)

// DecisionRecord is the journaled terminal outcome for one candidate.
// Corresponds to decision_log table in PostgreSQL. Append-only.
type DecisionRecord struct {
	DecisionID      string // PRIMARY KEY, uuid
	Address         string
	Symbol          string
	Source          string
	Stage           Stage
	GatePassed      bool
	GateReasons     []string // failure reasons, empty when passed
	GraduationScore float64
	ProbLoser       float64
	ProbWinner      float64
	ProbMega        float64
	SizeFraction    float64
	ExpectedValue   float64
	Variance        float64
	KellyFraction   float64
	Mode            Mode
	Reason          string // machine-readable outcome/cap code
	CreatedAt       int64  // Unix timestamp in milliseconds
}

// ExecutionRecord is the journaled result of one executed (or failed) trade.
// Corresponds to execution_log table in PostgreSQL. Append-only.
type ExecutionRecord struct {
	ExecutionID  string // PRIMARY KEY, uuid
	DecisionID   string
	Address      string
	Mode         Mode
	SizeFraction float64
	EntryPrice   float64
	SlippageBps  float64
	TipLamports  int64
	Route        string
	TxSignature  *string // nil on failure
	Success      bool
	Error        *string // nil on success
	CreatedAt    int64
}

// EquityPoint is a point-in-time snapshot of the risk state for the
// equity curve. Stored in ClickHouse.
type EquityPoint struct {
	Timestamp     int64 // Unix timestamp in milliseconds
	Equity        float64
	OpenExposure  float64
	OpenPositions int
	DailyPnlPct   float64
	Mode          Mode
}

// CalibrationState is the persisted probability-model calibration.
// Survives restarts; mutated only by the recalibration job.
type CalibrationState struct {
	Temperature float64
	PriorShift  float64
	Samples     int
	UpdatedAt   int64
}

// DefaultCalibration returns the identity calibration.
func DefaultCalibration() CalibrationState {
	return CalibrationState{Temperature: 1.0, PriorShift: 0.0}
}

// Position is one open position tracked by the risk state manager.
type Position struct {
	Address      string
	SizeFraction float64
	NotionalUSD  float64
	OpenedAt     int64 // Unix timestamp in milliseconds
}
