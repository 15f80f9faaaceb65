package metrics

import (
	"fmt"
	"sync"
	"time"

	"mercator-hq/auditor/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every Prometheus metric the auditor exports. All Record
// methods are safe on a nil Collector and are no-ops when metrics are
// disabled, so components can take an optional *Collector.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	auditMetrics    *AuditMetrics
	policyMetrics   *PolicyMetrics
	providerMetrics *ProviderMetrics
	sinkMetrics     *SinkMetrics
	httpMetrics     *HTTPMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector registered on registry. A nil registry
// gets a fresh private one.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		auditMetrics:       NewAuditMetrics(cfg, registry),
		policyMetrics:      NewPolicyMetrics(cfg, registry),
		providerMetrics:    NewProviderMetrics(cfg, registry),
		sinkMetrics:        NewSinkMetrics(cfg, registry),
		httpMetrics:        NewHTTPMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(1000),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordAudit records a completed audit.
//
// Example:
//
//	collector.RecordAudit("Compliant", ">125", "Match", false, 40*time.Millisecond)
func (c *Collector) RecordAudit(category, tier, outcome string, fallback bool, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.auditMetrics.RecordAudit(category, tier, outcome, fallback, duration)
}

// RecordAuditError records an audit that failed before a verdict was
// produced. stage names the step that failed ("ticket", "policy", "review").
func (c *Collector) RecordAuditError(stage string) {
	if !c.enabled() {
		return
	}
	c.auditMetrics.RecordError(stage)
}

// RecordPolicyLoad records a grid load attempt from source.
func (c *Collector) RecordPolicyLoad(source string, err error, duration time.Duration) {
	if !c.enabled() {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.policyMetrics.RecordLoad(source, status, duration)
}

// UpdatePolicyTable publishes the shape of the active grid.
func (c *Collector) UpdatePolicyTable(rows, quarantined, warnings int) {
	if !c.enabled() {
		return
	}
	c.policyMetrics.UpdateTable(rows, quarantined, warnings)
}

// RecordProviderRequest records a call to an LLM provider.
func (c *Collector) RecordProviderRequest(provider, model, status string, duration time.Duration, tokens int) {
	if !c.enabled() {
		return
	}
	if !c.cardinalityLimiter.Allow(fmt.Sprintf("provider:%s:%s", provider, model)) {
		model = "other"
	}
	c.providerMetrics.RecordRequest(provider, model, status, duration, tokens)
}

// RecordProviderError records a provider failure by type ("timeout",
// "rate_limit", "auth", "server_error", "invalid_response").
func (c *Collector) RecordProviderError(provider, errorType string) {
	if !c.enabled() {
		return
	}
	c.providerMetrics.RecordError(provider, errorType)
}

// RecordSinkWrite records a verdict delivery to a sink.
func (c *Collector) RecordSinkWrite(sink string, err error, duration time.Duration) {
	if !c.enabled() {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.sinkMetrics.RecordWrite(sink, status, duration)
}

// RecordVerdictsPruned records verdicts removed by retention.
func (c *Collector) RecordVerdictsPruned(count int64) {
	if !c.enabled() {
		return
	}
	c.sinkMetrics.RecordPruned(count)
}

// RecordHTTPRequest records a served API request. route should be the
// registered pattern, not the raw path.
func (c *Collector) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	if !c.cardinalityLimiter.Allow("http:" + route) {
		route = "other"
	}
	c.httpMetrics.RecordRequest(route, method, status, duration)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter caps the number of distinct label sets accepted for
// free-form labels.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter admitting at most maxCardinality
// label sets.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet is already tracked or still fits under the
// limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
