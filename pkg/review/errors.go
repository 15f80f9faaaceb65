package review

import "fmt"

// Error is returned when a review cannot be completed.
type Error struct {
	// Stage is "request" when the provider call failed and "parse" when the
	// reply held no usable JSON object.
	Stage string

	// Reply is the raw model reply for parse failures.
	Reply string

	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("review %s failed: %v", e.Stage, e.Cause)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}
