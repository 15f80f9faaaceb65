package metrics

import (
	"time"

	"mercator-hq/auditor/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// SinkMetrics tracks verdict delivery and retention.
//
// Metrics:
//   - mercator_auditor_sink_writes_total: deliveries by sink and status
//   - mercator_auditor_sink_write_duration_seconds: delivery latency
//   - mercator_auditor_verdicts_pruned_total: verdicts removed by retention
type SinkMetrics struct {
	writes   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	pruned   prometheus.Counter
}

// NewSinkMetrics creates and registers sink metrics.
func NewSinkMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SinkMetrics {
	sm := &SinkMetrics{
		writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "sink_writes_total",
				Help:      "Total number of verdict deliveries by sink",
			},
			[]string{"sink", "status"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "sink_write_duration_seconds",
				Help:      "Verdict delivery latency in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"sink"},
		),

		pruned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "verdicts_pruned_total",
				Help:      "Total number of stored verdicts removed by retention",
			},
		),
	}

	registry.MustRegister(sm.writes, sm.duration, sm.pruned)
	return sm
}

// RecordWrite records one delivery.
func (sm *SinkMetrics) RecordWrite(sink, status string, duration time.Duration) {
	sm.writes.WithLabelValues(sink, status).Inc()
	sm.duration.WithLabelValues(sink).Observe(duration.Seconds())
}

// RecordPruned adds count to the pruned counter.
func (sm *SinkMetrics) RecordPruned(count int64) {
	if count > 0 {
		sm.pruned.Add(float64(count))
	}
}
