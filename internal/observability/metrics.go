// Package observability exposes Prometheus metrics for the orchestration core.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aldirahman/judolscan/internal/errors"
)

// Metrics holds all collectors of the orchestration core. A nil *Metrics is
// safe to use; every method checks for it so instrumentation stays optional.
type Metrics struct {
	registry *prometheus.Registry

	scansStarted    prometheus.Counter
	scansCompleted  prometheus.Counter
	scansFailed     prometheus.Counter
	scanRetries     prometheus.Counter
	commentsScanned prometheus.Counter
	scanDuration    prometheus.Histogram

	validationsSubmitted prometheus.Counter
	validationsUndone    prometheus.Counter
	pendingValidations   prometheus.Gauge

	retrainingRuns     *prometheus.CounterVec
	retrainingDuration prometheus.Histogram
	activeModelInfo    *prometheus.GaugeVec
}

// NewMetrics creates and registers all collectors on a fresh registry.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.scansStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "judolscan_scans_started_total",
		Help: "Number of scan jobs accepted into the queue",
	})
	m.scansCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "judolscan_scans_completed_total",
		Help: "Number of scan jobs that reached completed status",
	})
	m.scansFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "judolscan_scans_failed_total",
		Help: "Number of scan jobs that failed permanently",
	})
	m.scanRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "judolscan_scan_retries_total",
		Help: "Number of scan attempt retries after transient upstream errors",
	})
	m.commentsScanned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "judolscan_comments_scanned_total",
		Help: "Number of comments classified across all scan jobs",
	})
	m.scanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "judolscan_scan_duration_seconds",
		Help:    "Wall time of scan jobs from first attempt to terminal status",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	m.validationsSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "judolscan_validations_submitted_total",
		Help: "Number of validation feedback submissions, resubmissions included",
	})
	m.validationsUndone = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "judolscan_validations_undone_total",
		Help: "Number of validations undone within the undo window",
	})
	m.pendingValidations = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "judolscan_pending_validations",
		Help: "Validation rows not yet consumed by a retraining run",
	})

	m.retrainingRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "judolscan_retraining_runs_total",
		Help: "Retraining runs by outcome",
	}, []string{"outcome"})
	m.retrainingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "judolscan_retraining_duration_seconds",
		Help:    "Wall time of retraining runs",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	m.activeModelInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "judolscan_active_model_info",
		Help: "Set to 1 for the currently active model version",
	}, []string{"version"})

	collectors := []prometheus.Collector{
		m.scansStarted, m.scansCompleted, m.scansFailed, m.scanRetries,
		m.commentsScanned, m.scanDuration,
		m.validationsSubmitted, m.validationsUndone, m.pendingValidations,
		m.retrainingRuns, m.retrainingDuration, m.activeModelInfo,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, errors.New(err).
				Component("observability").
				Category(errors.CategoryConfiguration).
				Context("operation", "register-collectors").
				Build()
		}
	}

	return m, nil
}

// Registry returns the underlying registry for exposition.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ScanStarted() {
	if m != nil {
		m.scansStarted.Inc()
	}
}

func (m *Metrics) ScanCompleted(durationSeconds float64, comments int) {
	if m != nil {
		m.scansCompleted.Inc()
		m.scanDuration.Observe(durationSeconds)
		m.commentsScanned.Add(float64(comments))
	}
}

func (m *Metrics) ScanFailed() {
	if m != nil {
		m.scansFailed.Inc()
	}
}

func (m *Metrics) ScanRetried() {
	if m != nil {
		m.scanRetries.Inc()
	}
}

func (m *Metrics) ValidationSubmitted() {
	if m != nil {
		m.validationsSubmitted.Inc()
	}
}

func (m *Metrics) ValidationUndone() {
	if m != nil {
		m.validationsUndone.Inc()
	}
}

func (m *Metrics) SetPendingValidations(n int64) {
	if m != nil {
		m.pendingValidations.Set(float64(n))
	}
}

// RetrainingRun records one finished run. Outcome is one of "deployed",
// "skipped", "insufficient-data", or "failed".
func (m *Metrics) RetrainingRun(outcome string, durationSeconds float64) {
	if m != nil {
		m.retrainingRuns.WithLabelValues(outcome).Inc()
		m.retrainingDuration.Observe(durationSeconds)
	}
}

// SetActiveModel marks the given version as the one serving predictions.
func (m *Metrics) SetActiveModel(version string) {
	if m != nil {
		m.activeModelInfo.Reset()
		m.activeModelInfo.WithLabelValues(version).Set(1)
	}
}
