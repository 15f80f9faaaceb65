package policy

import (
	"errors"
	"fmt"
)

// ErrNoRows is returned when a grid document yields no usable rows.
var ErrNoRows = errors.New("decision grid contains no valid rows")

// ParseError reports a grid document that could not be decoded.
type ParseError struct {
	// Format is the document format that was attempted.
	Format Format

	// Message describes what went wrong.
	Message string

	// Cause is the underlying decoder error, if any.
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("parse %s grid: %s: %v", e.Format, e.Message, e.Cause)
	}
	return fmt.Sprintf("parse %s grid: %s", e.Format, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// RowIssue describes a problem with a single grid row.
type RowIssue struct {
	// Index is the zero-based position of the row in the document.
	Index int `json:"index"`

	// L1 and L2 identify the row when they could be read.
	L1 string `json:"l1,omitempty"`
	L2 string `json:"l2,omitempty"`

	// Reason explains the issue.
	Reason string `json:"reason"`
}

// String renders the issue for CLI output.
func (i RowIssue) String() string {
	if i.L1 != "" || i.L2 != "" {
		return fmt.Sprintf("row %d (%s / %s): %s", i.Index, i.L1, i.L2, i.Reason)
	}
	return fmt.Sprintf("row %d: %s", i.Index, i.Reason)
}

// LoadReport summarizes the outcome of parsing a grid document.
type LoadReport struct {
	// Total is the number of rows in the document.
	Total int `json:"total"`

	// Accepted is the number of rows placed in the table.
	Accepted int `json:"accepted"`

	// Quarantined lists rows excluded from the table.
	Quarantined []RowIssue `json:"quarantined,omitempty"`

	// Warnings lists accepted rows with non-fatal problems.
	Warnings []RowIssue `json:"warnings,omitempty"`
}

// Clean reports whether every row was accepted without warnings.
func (r *LoadReport) Clean() bool {
	return len(r.Quarantined) == 0 && len(r.Warnings) == 0
}
