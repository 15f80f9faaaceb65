// Package audit runs the full audit of one ticket: fetch the ticket
// context, evaluate it against the current decision grid, derive the
// confidence label, optionally ask for a second opinion, and forward the
// resulting record to the configured sinks.
//
// The engine never fails; everything that can fail here is I/O. A missing
// grid or a failed ticket fetch aborts the audit with an error. Review and
// sink failures do not: the verdict stands, review errors are written to the
// record's Error field and sink errors are returned in Result.SinkErrors.
package audit
