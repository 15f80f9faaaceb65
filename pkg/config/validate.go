package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTicket(&cfg.Ticket)...)
	errs = append(errs, validatePolicy(&cfg.Policy)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateVerdicts(&cfg.Verdicts)...)
	errs = append(errs, validateSinks(&cfg.Sinks)...)
	errs = append(errs, validateProviders(cfg.Providers)...)
	errs = append(errs, validateReview(&cfg.Review, cfg.Providers)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates HTTP server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}

	timeouts := map[string]time.Duration{
		"server.read_timeout":     cfg.ReadTimeout,
		"server.write_timeout":    cfg.WriteTimeout,
		"server.idle_timeout":     cfg.IdleTimeout,
		"server.shutdown_timeout": cfg.ShutdownTimeout,
		"server.request_timeout":  cfg.RequestTimeout,
	}
	for _, field := range sortedKeys(timeouts) {
		if timeouts[field] < 0 {
			errs = append(errs, FieldError{
				Field:   field,
				Message: "timeout must be positive",
			})
		}
	}

	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_body_bytes",
			Message: "max body bytes must be non-negative",
		})
	}

	if cfg.CORS.MaxAge < 0 {
		errs = append(errs, FieldError{
			Field:   "server.cors.max_age",
			Message: "max age must be non-negative",
		})
	}

	return errs
}

// validateTicket validates ticket API configuration. The ticket client is
// optional, so an empty base URL is allowed.
func validateTicket(cfg *TicketConfig) []FieldError {
	var errs []FieldError

	if cfg.BaseURL != "" {
		if err := validateHTTPURL(cfg.BaseURL); err != nil {
			errs = append(errs, FieldError{
				Field:   "ticket.base_url",
				Message: err.Error(),
			})
		}
		if cfg.APIToken != "" && cfg.Email == "" {
			errs = append(errs, FieldError{
				Field:   "ticket.email",
				Message: "email is required when an API token is set",
			})
		}
	}

	if cfg.MaxRetries < 0 || cfg.MaxRetries > 10 {
		errs = append(errs, FieldError{
			Field:   "ticket.max_retries",
			Message: "max retries must be between 0 and 10",
		})
	}
	if cfg.PageSize < 1 || cfg.PageSize > 100 {
		errs = append(errs, FieldError{
			Field:   "ticket.page_size",
			Message: "page size must be between 1 and 100",
		})
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "ticket.timeout",
			Message: "timeout must be positive",
		})
	}

	return errs
}

// validatePolicy validates grid source configuration.
func validatePolicy(cfg *PolicyConfig) []FieldError {
	var errs []FieldError

	switch cfg.Source {
	case "file":
		if cfg.File.Path == "" {
			errs = append(errs, FieldError{
				Field:   "policy.file.path",
				Message: "file path is required when source is 'file'",
			})
		}
	case "http":
		if cfg.HTTP.URL == "" {
			errs = append(errs, FieldError{
				Field:   "policy.http.url",
				Message: "URL is required when source is 'http'",
			})
		} else if err := validateHTTPURL(cfg.HTTP.URL); err != nil {
			errs = append(errs, FieldError{
				Field:   "policy.http.url",
				Message: err.Error(),
			})
		}
		if f := cfg.HTTP.Format; f != "" && f != "json" && f != "yaml" {
			errs = append(errs, FieldError{
				Field:   "policy.http.format",
				Message: fmt.Sprintf("invalid format %q: must be 'json' or 'yaml'", f),
			})
		}
	case "s3":
		if cfg.S3.Bucket == "" {
			errs = append(errs, FieldError{
				Field:   "policy.s3.bucket",
				Message: "bucket is required when source is 's3'",
			})
		}
		if cfg.S3.Key == "" {
			errs = append(errs, FieldError{
				Field:   "policy.s3.key",
				Message: "key is required when source is 's3'",
			})
		}
	case "git":
		if cfg.Git.Repository == "" {
			errs = append(errs, FieldError{
				Field:   "policy.git.repository",
				Message: "repository is required when source is 'git'",
			})
		}
		if cfg.Git.Path == "" {
			errs = append(errs, FieldError{
				Field:   "policy.git.path",
				Message: "path is required when source is 'git'",
			})
		}
		switch cfg.Git.Auth.Type {
		case "none", "":
		case "token":
			if cfg.Git.Auth.Token == "" {
				errs = append(errs, FieldError{
					Field:   "policy.git.auth.token",
					Message: "token is required when auth type is 'token'",
				})
			}
		case "ssh":
			if cfg.Git.Auth.SSHKeyPath == "" {
				errs = append(errs, FieldError{
					Field:   "policy.git.auth.ssh_key_path",
					Message: "SSH key path is required when auth type is 'ssh'",
				})
			}
		default:
			errs = append(errs, FieldError{
				Field:   "policy.git.auth.type",
				Message: fmt.Sprintf("invalid auth type %q: must be 'token', 'ssh', or 'none'", cfg.Git.Auth.Type),
			})
		}
		if cfg.Git.Clone.Depth < 0 {
			errs = append(errs, FieldError{
				Field:   "policy.git.clone.depth",
				Message: "depth must be non-negative",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "policy.source",
			Message: fmt.Sprintf("invalid source %q: must be 'file', 'http', 's3', or 'git'", cfg.Source),
		})
	}

	if cfg.Watch && cfg.Source != "file" && cfg.PollInterval < time.Second {
		errs = append(errs, FieldError{
			Field:   "policy.poll_interval",
			Message: "poll interval must be at least 1s",
		})
	}

	return errs
}

// validateAudit validates audit pipeline configuration.
func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		errs = append(errs, FieldError{
			Field:   "audit.timezone",
			Message: fmt.Sprintf("unknown timezone %q", cfg.Timezone),
		})
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.timeout",
			Message: "timeout must be positive",
		})
	}

	return errs
}

// validateVerdicts validates verdict storage configuration.
func validateVerdicts(cfg *VerdictsConfig) []FieldError {
	var errs []FieldError

	// If storage is disabled, skip validation
	if !cfg.Enabled {
		return errs
	}

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "verdicts.sqlite.path",
				Message: "SQLite path is required when backend is 'sqlite'",
			})
		}
		if cfg.SQLite.Driver != "sqlite3" && cfg.SQLite.Driver != "sqlite" {
			errs = append(errs, FieldError{
				Field:   "verdicts.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q: must be 'sqlite3' or 'sqlite'", cfg.SQLite.Driver),
			})
		}
	case "postgres":
		if cfg.Postgres.Host == "" {
			errs = append(errs, FieldError{
				Field:   "verdicts.postgres.host",
				Message: "PostgreSQL host is required when backend is 'postgres'",
			})
		}
		if cfg.Postgres.Port < 1 || cfg.Postgres.Port > 65535 {
			errs = append(errs, FieldError{
				Field:   "verdicts.postgres.port",
				Message: "PostgreSQL port must be between 1 and 65535",
			})
		}
		if cfg.Postgres.Database == "" {
			errs = append(errs, FieldError{
				Field:   "verdicts.postgres.database",
				Message: "PostgreSQL database is required when backend is 'postgres'",
			})
		}
		if cfg.Postgres.User == "" {
			errs = append(errs, FieldError{
				Field:   "verdicts.postgres.user",
				Message: "PostgreSQL user is required when backend is 'postgres'",
			})
		}
		validSSLModes := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
		if !validSSLModes[cfg.Postgres.SSLMode] {
			errs = append(errs, FieldError{
				Field:   "verdicts.postgres.ssl_mode",
				Message: fmt.Sprintf("invalid SSL mode %q: must be 'disable', 'require', 'verify-ca', or 'verify-full'", cfg.Postgres.SSLMode),
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "verdicts.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'sqlite', 'postgres', or 'memory'", cfg.Backend),
		})
	}

	if cfg.Recorder.AsyncBuffer < 1 {
		errs = append(errs, FieldError{
			Field:   "verdicts.recorder.async_buffer",
			Message: "async buffer must be at least 1",
		})
	}

	if cfg.Retention.Days > 3650 {
		errs = append(errs, FieldError{
			Field:   "verdicts.retention.days",
			Message: "retention days exceeds reasonable limit (3650 days / 10 years)",
		})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{
			Field:   "verdicts.retention.max_records",
			Message: "max records must be non-negative",
		})
	}
	if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "verdicts.retention.prune_schedule",
			Message: fmt.Sprintf("invalid cron expression: %v", err),
		})
	}

	if cfg.Query.DefaultLimit > cfg.Query.MaxLimit {
		errs = append(errs, FieldError{
			Field:   "verdicts.query.default_limit",
			Message: "default limit exceeds max limit",
		})
	}

	return errs
}

// validateSinks validates sink configuration.
func validateSinks(cfg *SinksConfig) []FieldError {
	var errs []FieldError

	if !cfg.Sheets.Enabled {
		return errs
	}
	if cfg.Sheets.URL == "" {
		errs = append(errs, FieldError{
			Field:   "sinks.sheets.url",
			Message: "URL is required when the sheets sink is enabled",
		})
	} else if err := validateHTTPURL(cfg.Sheets.URL); err != nil {
		errs = append(errs, FieldError{
			Field:   "sinks.sheets.url",
			Message: err.Error(),
		})
	}
	if cfg.Sheets.MaxRetries < 0 || cfg.Sheets.MaxRetries > 10 {
		errs = append(errs, FieldError{
			Field:   "sinks.sheets.max_retries",
			Message: "max retries must be between 0 and 10",
		})
	}

	return errs
}

// validateProviders validates provider configurations.
func validateProviders(providers map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	for _, name := range sortedKeys(providers) {
		provider := providers[name]
		prefix := fmt.Sprintf("providers.%s", name)

		if provider.Type != "openai" {
			errs = append(errs, FieldError{
				Field:   prefix + ".type",
				Message: fmt.Sprintf("unsupported provider type %q", provider.Type),
			})
		}

		if provider.BaseURL == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".base_url",
				Message: "base URL is required",
			})
		} else if err := validateHTTPURL(provider.BaseURL); err != nil {
			errs = append(errs, FieldError{
				Field:   prefix + ".base_url",
				Message: err.Error(),
			})
		}

		if provider.Timeout < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".timeout",
				Message: "timeout must be positive",
			})
		}

		if provider.MaxRetries < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".max_retries",
				Message: "max retries must be non-negative",
			})
		}
		if provider.MaxRetries > 10 {
			errs = append(errs, FieldError{
				Field:   prefix + ".max_retries",
				Message: "max retries exceeds reasonable limit (10)",
			})
		}
	}

	return errs
}

// validateReview validates review configuration against the configured providers.
func validateReview(cfg *ReviewConfig, providers map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return errs
	}
	if _, ok := providers[cfg.Provider]; !ok {
		errs = append(errs, FieldError{
			Field:   "review.provider",
			Message: fmt.Sprintf("provider %q is not configured", cfg.Provider),
		})
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		errs = append(errs, FieldError{
			Field:   "review.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}
	if cfg.MaxTokens < 1 {
		errs = append(errs, FieldError{
			Field:   "review.max_tokens",
			Message: "max tokens must be positive",
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		if p.Name == "" || p.Pattern == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d]", i),
				Message: "name and pattern are required",
			})
		}
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with '/'",
		})
	}

	return errs
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL format: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host, got %q", raw)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
