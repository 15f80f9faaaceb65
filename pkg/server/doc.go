// Package server provides the HTTP API of the auditor. The ticket sidebar
// widget calls it to audit the open ticket; operators use it to inspect
// stored verdicts and the active decision grid.
//
// # Routes
//
//   - POST /v1/audits - audit a ticket by id, or caller-supplied input
//   - GET /v1/audits - list stored verdicts (category, ticket_id, tier,
//     outcome, since, until, limit, offset, sort_by, sort_order)
//   - GET /v1/audits/{id} - one stored verdict
//   - GET /v1/policy - active grid version, source, row count and load report
//   - POST /v1/policy/reload - load the grid now
//   - GET /health, GET /ready, GET /version - probes (telemetry.health)
//   - GET /metrics - Prometheus scrape endpoint (telemetry.metrics)
//
// Audit by ticket id:
//
//	POST /v1/audits
//	{"ticket_id": "48213"}
//
// Audit supplied input:
//
//	POST /v1/audits
//	{
//	    "booking_ref": "BK-48213",
//	    "input": {
//	        "subject": "Refund request, booking 48213",
//	        "experience_type": "Partnered",
//	        "conversation_text": "...",
//	        "conversation_count": 3
//	    }
//	}
//
// # Errors
//
// Every error uses one envelope:
//
//	{"error": {"type": "service_unavailable", "message": "no decision grid loaded"}}
//
// A missing grid is 503, an unknown ticket or record 404, a ticket system
// failure 502 and an exceeded request deadline 504. Sink failures are not
// errors: the audit answers 200 and lists them in sink_errors.
//
// # Lifecycle
//
// Start blocks until its context is cancelled or Stop is called, then
// shuts down gracefully within server.shutdown_timeout. The middleware
// chain is described in package middleware.
package server
