package ticket

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when ticket-id audits are requested without
// a ticket system base URL.
var ErrNotConfigured = errors.New("ticket system is not configured")

// NotFoundError means the ticket does not exist or is not visible to the
// configured account.
type NotFoundError struct {
	TicketID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("ticket %s not found", e.TicketID)
}

// AuthError means the ticket system rejected the credentials (401 or 403).
type AuthError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("ticket system authentication failed (status %d): %s", e.StatusCode, e.Message)
}

// APIError is any other non-success response, or a transport failure that
// survived every retry.
type APIError struct {
	// StatusCode is 0 for transport errors.
	StatusCode int

	// Path is the request path.
	Path string

	Message string
	Cause   error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("ticket API %s failed (status %d): %s", e.Path, e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("ticket API %s failed: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("ticket API %s failed: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the failure is transient.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}
