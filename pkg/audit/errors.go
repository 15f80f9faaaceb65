package audit

import (
	"errors"
	"fmt"
)

// ErrNoTable is returned when an audit is requested before a decision grid
// has been loaded.
var ErrNoTable = errors.New("no decision grid loaded")

// Error is a failed audit.
type Error struct {
	// Stage is the step that failed: "policy" or "ticket".
	Stage string

	// TicketID is empty for audits of supplied input.
	TicketID string

	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.TicketID != "" {
		return fmt.Sprintf("audit of ticket %s failed at %s: %v", e.TicketID, e.Stage, e.Cause)
	}
	return fmt.Sprintf("audit failed at %s: %v", e.Stage, e.Cause)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}
