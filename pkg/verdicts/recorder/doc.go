// Package recorder writes verdict records asynchronously.
//
// Record places the record on a buffered channel and returns; a single
// worker goroutine stores records in order. When the buffer is full Record
// waits up to the configured write timeout and then drops the record with a
// *verdicts.RecorderError. Close drains the buffer before returning, so a
// graceful shutdown loses nothing that was accepted.
package recorder
