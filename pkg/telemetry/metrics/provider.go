package metrics

import (
	"time"

	"mercator-hq/auditor/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics tracks calls to the LLM review provider.
//
// Metrics:
//   - mercator_auditor_provider_requests_total: calls by provider, model and status
//   - mercator_auditor_provider_latency_seconds: call latency
//   - mercator_auditor_provider_tokens_total: tokens consumed
//   - mercator_auditor_provider_errors_total: failures by type
type ProviderMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	tokens   *prometheus.CounterVec
	errors   *prometheus.CounterVec
}

// NewProviderMetrics creates and registers provider metrics.
func NewProviderMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ProviderMetrics {
	pm := &ProviderMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_requests_total",
				Help:      "Total number of requests to each provider",
			},
			[]string{"provider", "model", "status"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_latency_seconds",
				Help:      "Provider API call latency in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),

		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_tokens_total",
				Help:      "Total tokens consumed by provider calls",
			},
			[]string{"provider", "model"},
		),

		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_errors_total",
				Help:      "Total number of provider errors by type",
			},
			[]string{"provider", "error_type"},
		),
	}

	registry.MustRegister(pm.requests, pm.latency, pm.tokens, pm.errors)
	return pm
}

// RecordRequest records one provider call.
func (pm *ProviderMetrics) RecordRequest(provider, model, status string, duration time.Duration, tokens int) {
	pm.requests.WithLabelValues(provider, model, status).Inc()
	pm.latency.WithLabelValues(provider, model).Observe(duration.Seconds())
	if tokens > 0 {
		pm.tokens.WithLabelValues(provider, model).Add(float64(tokens))
	}
}

// RecordError records a provider failure.
func (pm *ProviderMetrics) RecordError(provider, errorType string) {
	pm.errors.WithLabelValues(provider, errorType).Inc()
}
