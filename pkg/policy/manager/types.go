package manager

import (
	"time"

	"mercator-hq/auditor/pkg/policy"
)

// ReloadTrigger says what started a load attempt.
type ReloadTrigger int

const (
	// TriggerManual is an explicit Load call (startup, CLI, reload endpoint).
	TriggerManual ReloadTrigger = iota

	// TriggerFileEvent is a debounced filesystem notification.
	TriggerFileEvent

	// TriggerPoll is a poll tick for remote sources.
	TriggerPoll
)

// String returns a string representation of the trigger.
func (t ReloadTrigger) String() string {
	switch t {
	case TriggerManual:
		return "manual"
	case TriggerFileEvent:
		return "file_event"
	case TriggerPoll:
		return "poll"
	default:
		return "unknown"
	}
}

// ReloadEvent describes one completed load attempt.
type ReloadEvent struct {
	// Trigger is what started the attempt.
	Trigger ReloadTrigger

	// Changed is true when a new table was installed.
	Changed bool

	// Version is the installed table version, or the previous one when
	// nothing changed.
	Version string

	// Rows is the number of rows in the installed table.
	Rows int

	// Report is the parse report of the attempt, nil when the source never
	// returned a document.
	Report *policy.LoadReport

	// Err is the failure, nil on success or when the source was unchanged.
	Err error

	// Duration is how long the attempt took.
	Duration time.Duration

	// Timestamp is when the attempt finished.
	Timestamp time.Time
}

// Status is a point-in-time summary for the policy endpoint and CLI.
type Status struct {
	Version     string             `json:"version,omitempty"`
	Source      string             `json:"source"`
	Rows        int                `json:"rows"`
	LoadedAt    time.Time          `json:"loaded_at,omitempty"`
	LastAttempt time.Time          `json:"last_attempt,omitempty"`
	LastError   string             `json:"last_error,omitempty"`
	Report      *policy.LoadReport `json:"report,omitempty"`
}
