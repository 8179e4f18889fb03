// Package notify hands completed decisions off to an alerting channel.
// Rendering and delivery are external; this package only defines the
// record shape and a logging default.
package notify

import (
	"context"
	"log"

	"solana-grad-pipeline/internal/domain"
)

// AlertKind classifies the event being surfaced.
type AlertKind string

const (
	AlertTradeOpened    AlertKind = "TRADE_OPENED"
	AlertTradeFailed    AlertKind = "TRADE_FAILED"
	AlertGateRejected   AlertKind = "GATE_REJECTED"
	AlertAdmissionDeny  AlertKind = "ADMISSION_DENIED"
	AlertKillSwitch     AlertKind = "KILL_SWITCH"
	AlertDailyLossLimit AlertKind = "DAILY_LOSS_LIMIT"
)

// AlertRecord carries everything a downstream channel needs to render an
// alert. No formatting happens here.
type AlertRecord struct {
	Kind            AlertKind
	Address         string
	Symbol          string
	Mode            domain.Mode
	GraduationScore float64
	ProbWinner      float64
	SizeFraction    float64
	Reason          string
	CreatedAt       int64
}

// Notifier delivers alert records to an external channel. Implementations
// must not block the pipeline; failures are logged, never propagated.
type Notifier interface {
	Notify(ctx context.Context, alert AlertRecord)
}

// LogNotifier writes alerts to the process log. Used as the default and in
// paper runs.
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LogNotifier{logger: logger}
}

// Compile-time interface check.
var _ Notifier = (*LogNotifier)(nil)

// Notify logs the alert.
func (n *LogNotifier) Notify(_ context.Context, a AlertRecord) {
	n.logger.Printf("[notify] %s %s (%s) mode=%s gs=%.1f pWin=%.3f size=%.4f reason=%s",
		a.Kind, a.Symbol, a.Address, a.Mode, a.GraduationScore, a.ProbWinner, a.SizeFraction, a.Reason)
}

// NopNotifier discards alerts.
type NopNotifier struct{}

// Compile-time interface check.
var _ Notifier = NopNotifier{}

// Notify does nothing.
func (NopNotifier) Notify(context.Context, AlertRecord) {}
