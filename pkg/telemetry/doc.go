// Package telemetry groups the auditor's observability packages.
//
//   - logging: structured slog logging with PII redaction
//   - metrics: Prometheus collectors for audits, grid loads, providers and sinks
//   - health: liveness and readiness probes
package telemetry
