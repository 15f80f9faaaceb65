// Package logging provides structured logging with PII redaction.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - JSON and text output
//   - Redaction of customer data found in support conversations
//   - Context-aware logging with request, audit and ticket identifiers
//   - Configurable log levels (debug, info, warn, error)
//
// # Usage
//
//	logger, err := logging.New(logging.ConfigFrom(cfg.Telemetry.Logging))
//	if err != nil {
//	    return err
//	}
//	logger.Install() // slog.Default() now redacts too
//
//	ctx = logging.WithTicketID(ctx, "48213")
//	logger.InfoContext(ctx, "audit complete", "category", "Compliant")
//
// # PII Redaction
//
// When RedactPII is enabled every record passes through a redacting
// handler:
//
//   - Emails: jane@example.com → [email]
//   - Card numbers: 4111 1111 1111 1111 → ****-****-****-****
//   - Phone numbers: (415) 555-0100 → ***-***-****
//   - Bearer tokens, API keys and passwords
//
// Values stored under keys such as "token", "secret" or "password" are
// masked regardless of their content.
package logging
