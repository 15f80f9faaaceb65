package metrics

import (
	"time"

	"mercator-hq/auditor/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// PolicyMetrics tracks decision grid loading.
//
// Metrics:
//   - mercator_auditor_policy_loads_total: load attempts by source and status
//   - mercator_auditor_policy_load_duration_seconds: fetch and parse time
//   - mercator_auditor_policy_last_load_timestamp_seconds: last successful load
//   - mercator_auditor_policy_rows: rows in the active grid by state
type PolicyMetrics struct {
	loadsTotal   *prometheus.CounterVec
	loadDuration *prometheus.HistogramVec
	lastLoad     prometheus.Gauge
	rows         *prometheus.GaugeVec
}

// NewPolicyMetrics creates and registers policy metrics.
func NewPolicyMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PolicyMetrics {
	pm := &PolicyMetrics{
		loadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_loads_total",
				Help:      "Total number of decision grid load attempts",
			},
			[]string{"source", "status"},
		),

		loadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_load_duration_seconds",
				Help:      "Time to fetch and parse the decision grid",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8), // 1ms to ~16s
			},
			[]string{"source"},
		),

		lastLoad: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_last_load_timestamp_seconds",
				Help:      "Unix time of the last successful grid load",
			},
		),

		rows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_rows",
				Help:      "Rows of the active decision grid by state",
			},
			[]string{"state"},
		),
	}

	registry.MustRegister(pm.loadsTotal, pm.loadDuration, pm.lastLoad, pm.rows)
	return pm
}

// RecordLoad records a load attempt.
func (pm *PolicyMetrics) RecordLoad(source, status string, duration time.Duration) {
	pm.loadsTotal.WithLabelValues(source, status).Inc()
	pm.loadDuration.WithLabelValues(source).Observe(duration.Seconds())
	if status == "success" {
		pm.lastLoad.SetToCurrentTime()
	}
}

// UpdateTable sets the row gauges for the active grid.
func (pm *PolicyMetrics) UpdateTable(rows, quarantined, warnings int) {
	pm.rows.WithLabelValues("accepted").Set(float64(rows))
	pm.rows.WithLabelValues("quarantined").Set(float64(quarantined))
	pm.rows.WithLabelValues("warning").Set(float64(warnings))
}
