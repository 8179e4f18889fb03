// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Intake metrics
	CandidatesReceived prometheus.Counter
	CandidatesDropped  *prometheus.CounterVec

	// Enrichment metrics
	EnrichmentLatency  prometheus.Histogram
	ProviderErrors     *prometheus.CounterVec
	ProviderLatency    *prometheus.HistogramVec

	// Decision metrics
	GateFailures     *prometheus.CounterVec
	GatePasses       prometheus.Counter
	GraduationScores prometheus.Histogram
	SizingRefusals   *prometheus.CounterVec

	// Admission / risk metrics
	AdmissionRefusals *prometheus.CounterVec
	OpenPositions     prometheus.Gauge
	OpenExposure      prometheus.Gauge
	DailyPnlPct       prometheus.Gauge
	KillSwitchActive  prometheus.Gauge

	// Execution metrics
	TradesExecuted   *prometheus.CounterVec
	ExecutionLatency *prometheus.HistogramVec

	// Journal metrics
	JournalWrites prometheus.Counter
	JournalErrors *prometheus.CounterVec

	// Health metrics
	LastCandidateSeen prometheus.Gauge
	UptimeSeconds     prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "grad_pipeline"
	}

	return &Metrics{
		// Intake metrics
		CandidatesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "candidates_received_total",
			Help:      "Total number of candidate events received",
		}),
		CandidatesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "candidates_dropped_total",
			Help:      "Total number of candidate events dropped at intake by reason",
		}, []string{"reason"}),

		// Enrichment metrics
		EnrichmentLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "latency_seconds",
			Help:      "End-to-end enrichment latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "provider_errors_total",
			Help:      "Total number of provider fetch errors by provider",
		}, []string{"provider"}),
		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "enrich",
			Name:      "provider_latency_seconds",
			Help:      "Provider fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),

		// Decision metrics
		GateFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "gate_failures_total",
			Help:      "Total number of gate failures by check",
		}, []string{"check"}),
		GatePasses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "gate_passes_total",
			Help:      "Total number of candidates passing all gates",
		}),
		GraduationScores: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "graduation_score",
			Help:      "Distribution of graduation scores for gated candidates",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 75, 80, 85, 90, 95, 100},
		}),
		SizingRefusals: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decision",
			Name:      "sizing_refusals_total",
			Help:      "Total number of sizing refusals by reason",
		}, []string{"reason"}),

		// Admission / risk metrics
		AdmissionRefusals: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "admission_refusals_total",
			Help:      "Total number of admission refusals by reason",
		}, []string{"reason"}),
		OpenPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "open_positions",
			Help:      "Current number of open positions",
		}),
		OpenExposure: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "open_exposure_fraction",
			Help:      "Current aggregate open exposure as a fraction of equity",
		}),
		DailyPnlPct: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "daily_pnl_pct",
			Help:      "Rolling daily realized P&L percentage",
		}),
		KillSwitchActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "kill_switch_active",
			Help:      "1 when the kill-switch is active, 0 otherwise",
		}),

		// Execution metrics
		TradesExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "trades_total",
			Help:      "Total number of trade executions by mode and status",
		}, []string{"mode", "status"}),
		ExecutionLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "latency_seconds",
			Help:      "Trade execution latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),

		// Journal metrics
		JournalWrites: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "writes_total",
			Help:      "Total number of journal writes",
		}),
		JournalErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "errors_total",
			Help:      "Total number of journal write errors by store",
		}, []string{"store"}),

		// Health metrics
		LastCandidateSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_candidate_timestamp",
			Help:      "Unix timestamp of the last candidate received",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCandidateReceived increments the candidates received counter and
// updates the health timestamp.
func RecordCandidateReceived(nowUnix int64) {
	DefaultMetrics.CandidatesReceived.Inc()
	DefaultMetrics.LastCandidateSeen.Set(float64(nowUnix))
}

// RecordCandidateDropped records an intake drop.
func RecordCandidateDropped(reason string) {
	DefaultMetrics.CandidatesDropped.WithLabelValues(reason).Inc()
}

// RecordProviderError records a provider fetch error.
func RecordProviderError(provider string) {
	DefaultMetrics.ProviderErrors.WithLabelValues(provider).Inc()
}

// RecordProviderLatency records one provider fetch duration.
func RecordProviderLatency(provider string, seconds float64) {
	DefaultMetrics.ProviderLatency.WithLabelValues(provider).Observe(seconds)
}

// RecordEnrichmentLatency records the end-to-end enrichment duration for
// one candidate.
func RecordEnrichmentLatency(seconds float64) {
	DefaultMetrics.EnrichmentLatency.Observe(seconds)
}

// AddUptime adds elapsed seconds to the uptime counter.
func AddUptime(seconds float64) {
	DefaultMetrics.UptimeSeconds.Add(seconds)
}

// RecordGateResult records the gate outcome for one candidate.
func RecordGateResult(passed bool, failedChecks []string) {
	if passed {
		DefaultMetrics.GatePasses.Inc()
		return
	}
	for _, check := range failedChecks {
		DefaultMetrics.GateFailures.WithLabelValues(check).Inc()
	}
}

// RecordGraduationScore records the score of a gated candidate.
func RecordGraduationScore(score float64) {
	DefaultMetrics.GraduationScores.Observe(score)
}

// RecordSizingRefusal records a sizing refusal.
func RecordSizingRefusal(reason string) {
	DefaultMetrics.SizingRefusals.WithLabelValues(reason).Inc()
}

// RecordAdmissionRefusal records an admission refusal.
func RecordAdmissionRefusal(reason string) {
	DefaultMetrics.AdmissionRefusals.WithLabelValues(reason).Inc()
}

// UpdateRiskState updates the risk state gauges.
func UpdateRiskState(openPositions int, exposure, dailyPnlPct float64, killSwitchActive bool) {
	DefaultMetrics.OpenPositions.Set(float64(openPositions))
	DefaultMetrics.OpenExposure.Set(exposure)
	DefaultMetrics.DailyPnlPct.Set(dailyPnlPct)
	if killSwitchActive {
		DefaultMetrics.KillSwitchActive.Set(1)
	} else {
		DefaultMetrics.KillSwitchActive.Set(0)
	}
}

// RecordTrade records a trade execution result.
func RecordTrade(mode string, success bool, seconds float64) {
	status := "ok"
	if !success {
		status = "failed"
	}
	DefaultMetrics.TradesExecuted.WithLabelValues(mode, status).Inc()
	DefaultMetrics.ExecutionLatency.WithLabelValues(mode).Observe(seconds)
}

// RecordJournalWrite records a journal write and its error, if any.
func RecordJournalWrite(store string, err error) {
	DefaultMetrics.JournalWrites.Inc()
	if err != nil {
		DefaultMetrics.JournalErrors.WithLabelValues(store).Inc()
	}
}
