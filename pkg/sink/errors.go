package sink

import (
	"fmt"
	"strings"
)

// WriteError is a failed delivery to one sink.
type WriteError struct {
	Sink     string
	RecordID string
	Cause    error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("sink %q failed for record %s: %v", e.Sink, e.RecordID, e.Cause)
}

// Unwrap returns the underlying error.
func (e *WriteError) Unwrap() error {
	return e.Cause
}

// StatusError is a non-2xx response from an HTTP sink.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// RejectedError is returned when the proxy answered 2xx with {"ok": false}.
type RejectedError struct {
	Message string
}

// Error implements the error interface.
func (e *RejectedError) Error() string {
	if e.Message == "" {
		return "spreadsheet proxy rejected the row"
	}
	return "spreadsheet proxy rejected the row: " + e.Message
}
