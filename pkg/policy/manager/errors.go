package manager

import (
	"errors"
	"fmt"
	"strings"

	"mercator-hq/auditor/pkg/policy"
)

var (
	// ErrNoTable is returned when no decision grid has been loaded yet.
	ErrNoTable = errors.New("no decision grid loaded")

	// ErrWatchDisabled is returned by Watch when policy.watch is off.
	ErrWatchDisabled = errors.New("policy watching is not enabled in configuration")

	// ErrWatchRunning is returned by Watch when a watch loop is active.
	ErrWatchRunning = errors.New("watch already started")
)

// LoadError wraps a failed load attempt with the source it came from.
type LoadError struct {
	// Source describes the grid location.
	Source string

	// Cause is the underlying fetch, parse or strict-mode error.
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load decision grid from %s: %v", e.Source, e.Cause)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// StrictError rejects a grid that parsed with quarantined rows while strict
// mode is on.
type StrictError struct {
	Quarantined []policy.RowIssue
}

// Error implements the error interface.
func (e *StrictError) Error() string {
	if len(e.Quarantined) == 1 {
		return "strict mode: 1 row quarantined: " + e.Quarantined[0].String()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "strict mode: %d rows quarantined:", len(e.Quarantined))
	for _, issue := range e.Quarantined {
		sb.WriteString("\n  ")
		sb.WriteString(issue.String())
	}
	return sb.String()
}
