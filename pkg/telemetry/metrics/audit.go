package metrics

import (
	"time"

	"mercator-hq/auditor/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// AuditMetrics tracks verdict production.
//
// Metrics:
//   - mercator_auditor_audits_total: audits by category, tier and outcome
//   - mercator_auditor_audit_duration_seconds: end-to-end audit latency
//   - mercator_auditor_audit_fallbacks_total: audits matched via a fallback row
//   - mercator_auditor_audit_errors_total: audits that failed by stage
type AuditMetrics struct {
	auditsTotal *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	fallbacks   prometheus.Counter
	errorsTotal *prometheus.CounterVec
}

// NewAuditMetrics creates and registers audit metrics.
func NewAuditMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AuditMetrics {
	am := &AuditMetrics{
		auditsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audits_total",
				Help:      "Total number of tickets audited",
			},
			[]string{"category", "tier", "outcome"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_duration_seconds",
				Help:      "Duration of a ticket audit in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"category"},
		),

		fallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_fallbacks_total",
				Help:      "Audits of empty conversations matched to a fallback row",
			},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_errors_total",
				Help:      "Audits that failed before producing a verdict",
			},
			[]string{"stage"},
		),
	}

	registry.MustRegister(am.auditsTotal, am.duration, am.fallbacks, am.errorsTotal)
	return am
}

// RecordAudit records one verdict.
func (am *AuditMetrics) RecordAudit(category, tier, outcome string, fallback bool, duration time.Duration) {
	if outcome == "" {
		outcome = "none"
	}
	am.auditsTotal.WithLabelValues(category, tier, outcome).Inc()
	am.duration.WithLabelValues(category).Observe(duration.Seconds())
	if fallback {
		am.fallbacks.Inc()
	}
}

// RecordError records a failed audit.
func (am *AuditMetrics) RecordError(stage string) {
	am.errorsTotal.WithLabelValues(stage).Inc()
}
