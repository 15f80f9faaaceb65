// Package sink forwards verdict records after an audit.
//
// A Sink receives every record the audit service produces. SheetsSink
// appends the record as a row to a spreadsheet through an HTTP proxy (for
// example an Apps Script web app guarded by a shared secret); StoreSink
// hands it to the asynchronous verdict recorder. Multi fans a record out to
// several sinks and reports each failure without stopping the others.
//
// Sink failures never change a verdict; the audit service logs them,
// counts them and returns them alongside the result.
package sink
