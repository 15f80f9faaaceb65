// Package middleware provides the HTTP middleware chain of the audit API.
//
// The chain, outermost first:
//  1. Recovery: turns handler panics into a 500 JSON error
//  2. RequestID: reuses or generates X-Request-ID and stores it in the context
//  3. Logging: logs each request with method, path, status and latency
//  4. CORS: answers preflights and sets headers for the ticket UI origin
//  5. BodyLimit: rejects request bodies over the configured size
//  6. Timeout: bounds the request context
//
// Request IDs are stored with logging.WithRequestID. Loggers built by
// pkg/telemetry/logging add them to every line written with the request
// context, including the access log line.
//
// Example usage:
//
//	var h http.Handler = mux
//	h = middleware.TimeoutMiddleware(45 * time.Second)(h)
//	h = middleware.BodyLimitMiddleware(1 << 20)(h)
//	h = middleware.CORSMiddleware(corsConfig)(h)
//	h = middleware.LoggingMiddleware(logger)(h)
//	h = middleware.RequestIDMiddleware(h)
//	h = middleware.RecoveryMiddleware(logger)(h)
package middleware
