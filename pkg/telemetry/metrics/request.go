package metrics

import (
	"strconv"
	"time"

	"mercator-hq/auditor/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks the audit API.
//
// Metrics:
//   - mercator_auditor_http_requests_total: requests by route, method and status class
//   - mercator_auditor_http_request_duration_seconds: handler latency
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics creates and registers HTTP metrics.
func NewHTTPMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *HTTPMetrics {
	hm := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of API requests served",
			},
			[]string{"route", "method", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"route", "method"},
		),
	}

	registry.MustRegister(hm.requestsTotal, hm.requestDuration)
	return hm
}

// RecordRequest records one served request.
func (hm *HTTPMetrics) RecordRequest(route, method string, status int, duration time.Duration) {
	hm.requestsTotal.WithLabelValues(route, method, statusClass(status)).Inc()
	hm.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
