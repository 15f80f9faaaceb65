// Package metrics provides Prometheus metrics for the auditor.
//
// # Metrics Categories
//
//   - Audit Metrics: verdict counts by category, tier and outcome, latency, fallbacks
//   - Policy Metrics: grid loads, load latency and active row counts
//   - Provider Metrics: LLM review calls, latency, tokens and errors
//   - Sink Metrics: verdict deliveries and retention pruning
//   - HTTP Metrics: API requests by route and status class
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordAudit("Non-Compliant", "<=125", "More Severe", false, elapsed)
//	mux.Handle("/metrics", collector.Handler())
//
// Every Record method tolerates a nil *Collector, so callers that run
// without metrics pass nil instead of branching.
package metrics
