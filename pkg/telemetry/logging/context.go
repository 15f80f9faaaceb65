package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for HTTP request IDs.
	RequestIDKey contextKey = "request_id"

	// AuditIDKey is the context key for the identifier of a single audit.
	AuditIDKey contextKey = "audit_id"

	// TicketIDKey is the context key for the audited ticket.
	TicketIDKey contextKey = "ticket_id"

	// PolicyVersionKey is the context key for the grid revision in use.
	PolicyVersionKey contextKey = "policy_version"
)

// contextFields lists the keys extracted into log records, in output order.
var contextFields = []contextKey{RequestIDKey, AuditIDKey, TicketIDKey, PolicyVersionKey}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// WithAuditID adds an audit ID to the context.
func WithAuditID(ctx context.Context, auditID string) context.Context {
	return context.WithValue(ctx, AuditIDKey, auditID)
}

// GetAuditID retrieves the audit ID from the context.
func GetAuditID(ctx context.Context) string {
	return stringValue(ctx, AuditIDKey)
}

// WithTicketID adds a ticket ID to the context.
func WithTicketID(ctx context.Context, ticketID string) context.Context {
	return context.WithValue(ctx, TicketIDKey, ticketID)
}

// GetTicketID retrieves the ticket ID from the context.
func GetTicketID(ctx context.Context) string {
	return stringValue(ctx, TicketIDKey)
}

// WithPolicyVersion adds the grid revision to the context.
func WithPolicyVersion(ctx context.Context, version string) context.Context {
	return context.WithValue(ctx, PolicyVersionKey, version)
}

// GetPolicyVersion retrieves the grid revision from the context.
func GetPolicyVersion(ctx context.Context) string {
	return stringValue(ctx, PolicyVersionKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// extractContextFields returns the non-empty context fields as key/value
// pairs suitable for logger.With().
func extractContextFields(ctx context.Context) []any {
	var fields []any
	for _, key := range contextFields {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, string(key), v)
		}
	}
	return fields
}

// Attrs returns the context fields as slog-compatible arguments, for callers
// logging through slog directly.
func Attrs(ctx context.Context) []any {
	return extractContextFields(ctx)
}
