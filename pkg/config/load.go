package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "AUDITOR_"

// LoadConfig loads configuration from a YAML file at the specified path.
// ${VAR} references in the file are expanded from the environment before
// parsing. It applies default values, validates the configuration, and
// returns any errors. Use LoadConfigWithEnvOverrides to also apply
// AUDITOR_* variables.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration and applies defaults. It does not
// validate.
func Parse(data []byte) (*Config, error) {
	expanded := os.Expand(string(data), func(name string) string {
		// "$$" escapes a literal dollar sign.
		if name == "$" {
			return "$"
		}
		return os.Getenv(name)
	})

	cfg := newWithBoolDefaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention AUDITOR_SECTION_FIELD (e.g., AUDITOR_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
//
// An empty path skips the file and starts from defaults.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		cfg, err = Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)
	envBool("SERVER_CORS_ENABLED", &cfg.Server.CORS.Enabled)
	envList("SERVER_CORS_ALLOWED_ORIGINS", &cfg.Server.CORS.AllowedOrigins)

	// Ticket overrides
	envString("TICKET_BASE_URL", &cfg.Ticket.BaseURL)
	envString("TICKET_EMAIL", &cfg.Ticket.Email)
	envString("TICKET_API_TOKEN", &cfg.Ticket.APIToken)
	envDuration("TICKET_TIMEOUT", &cfg.Ticket.Timeout)
	envInt("TICKET_MAX_RETRIES", &cfg.Ticket.MaxRetries)
	envInt64("TICKET_FIELDS_EXPERIENCE_TYPE", &cfg.Ticket.Fields.ExperienceType)
	envInt64("TICKET_FIELDS_BOOKING_REF", &cfg.Ticket.Fields.BookingRef)

	// Policy overrides
	envString("POLICY_SOURCE", &cfg.Policy.Source)
	envString("POLICY_FILE_PATH", &cfg.Policy.File.Path)
	envString("POLICY_HTTP_URL", &cfg.Policy.HTTP.URL)
	envString("POLICY_S3_BUCKET", &cfg.Policy.S3.Bucket)
	envString("POLICY_S3_KEY", &cfg.Policy.S3.Key)
	envString("POLICY_S3_REGION", &cfg.Policy.S3.Region)
	envString("POLICY_S3_ENDPOINT", &cfg.Policy.S3.Endpoint)
	envString("POLICY_GIT_REPOSITORY", &cfg.Policy.Git.Repository)
	envString("POLICY_GIT_BRANCH", &cfg.Policy.Git.Branch)
	envString("POLICY_GIT_PATH", &cfg.Policy.Git.Path)
	envString("POLICY_GIT_AUTH_TOKEN", &cfg.Policy.Git.Auth.Token)
	envBool("POLICY_WATCH", &cfg.Policy.Watch)
	envDuration("POLICY_POLL_INTERVAL", &cfg.Policy.PollInterval)
	envBool("POLICY_STRICT", &cfg.Policy.Strict)

	// Audit overrides
	envString("AUDIT_TIMEZONE", &cfg.Audit.Timezone)

	// Verdict storage overrides
	envBool("VERDICTS_ENABLED", &cfg.Verdicts.Enabled)
	envString("VERDICTS_BACKEND", &cfg.Verdicts.Backend)
	envString("VERDICTS_SQLITE_PATH", &cfg.Verdicts.SQLite.Path)
	envString("VERDICTS_SQLITE_DRIVER", &cfg.Verdicts.SQLite.Driver)
	envString("VERDICTS_POSTGRES_HOST", &cfg.Verdicts.Postgres.Host)
	envInt("VERDICTS_POSTGRES_PORT", &cfg.Verdicts.Postgres.Port)
	envString("VERDICTS_POSTGRES_DATABASE", &cfg.Verdicts.Postgres.Database)
	envString("VERDICTS_POSTGRES_USER", &cfg.Verdicts.Postgres.User)
	envString("VERDICTS_POSTGRES_PASSWORD", &cfg.Verdicts.Postgres.Password)
	envString("VERDICTS_POSTGRES_SSL_MODE", &cfg.Verdicts.Postgres.SSLMode)
	envInt("VERDICTS_RETENTION_DAYS", &cfg.Verdicts.Retention.Days)

	// Sink overrides
	envBool("SINKS_SHEETS_ENABLED", &cfg.Sinks.Sheets.Enabled)
	envString("SINKS_SHEETS_URL", &cfg.Sinks.Sheets.URL)
	envString("SINKS_SHEETS_SECRET", &cfg.Sinks.Sheets.Secret)

	// Review overrides
	envBool("REVIEW_ENABLED", &cfg.Review.Enabled)
	envString("REVIEW_PROVIDER", &cfg.Review.Provider)
	envString("REVIEW_MODEL", &cfg.Review.Model)

	// Provider overrides for configured providers, plus openai so that a
	// key-only environment can enable reviews.
	names := []string{"openai"}
	for name := range cfg.Providers {
		if name != "openai" {
			names = append(names, name)
		}
	}
	for _, name := range names {
		applyProviderEnvOverrides(cfg, name)
	}

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_REDACT_PII", &cfg.Telemetry.Logging.RedactPII)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
}

// applyProviderEnvOverrides applies AUDITOR_PROVIDERS_<NAME>_* overrides.
// A provider that only exists in the environment is created when an API key
// or base URL is supplied.
func applyProviderEnvOverrides(cfg *Config, name string) {
	prefix := "PROVIDERS_" + strings.ToUpper(name) + "_"

	provider, exists := cfg.Providers[name]
	changed := false

	if val := os.Getenv(EnvPrefix + prefix + "BASE_URL"); val != "" {
		provider.BaseURL = val
		changed = true
	}
	if val := os.Getenv(EnvPrefix + prefix + "API_KEY"); val != "" {
		provider.APIKey = val
		changed = true
	}
	if val := os.Getenv(EnvPrefix + prefix + "TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			provider.Timeout = d
			changed = true
		}
	}

	if !exists && !changed {
		return
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	if provider.Type == "" {
		provider.Type = DefaultProviderType
	}
	if provider.Timeout == 0 {
		provider.Timeout = DefaultProviderTimeout
	}
	if provider.MaxRetries == 0 {
		provider.MaxRetries = DefaultProviderMaxRetries
	}
	cfg.Providers[name] = provider
}

func envString(key string, dst *string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envInt64(key string, dst *int64) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			*dst = i
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

// envList splits a comma separated value.
func envList(key string, dst *[]string) {
	val := os.Getenv(EnvPrefix + key)
	if val == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}
