package config

import "time"

// Config is the root configuration structure for the auditor.
// It contains every configuration section for the HTTP service, the ticket
// system, the decision grid, verdict storage, sinks and telemetry.
type Config struct {
	// Server contains HTTP API server configuration including listen address,
	// timeouts and CORS.
	Server ServerConfig `yaml:"server"`

	// Ticket contains configuration for the ticket system API client.
	Ticket TicketConfig `yaml:"ticket"`

	// Policy contains configuration for loading the decision grid including
	// its source, watch mode and strictness.
	Policy PolicyConfig `yaml:"policy"`

	// Audit contains settings for the audit pipeline itself.
	Audit AuditConfig `yaml:"audit"`

	// Verdicts contains configuration for verdict record storage, recording,
	// retention and export.
	Verdicts VerdictsConfig `yaml:"verdicts"`

	// Sinks contains configuration for forwarding verdicts to external systems.
	Sinks SinksConfig `yaml:"sinks"`

	// Review contains configuration for the optional LLM second opinion.
	Review ReviewConfig `yaml:"review"`

	// Providers contains configuration for LLM providers used by Review.
	// Keys are provider names (e.g., "openai").
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Telemetry contains configuration for logging, metrics and health checks.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP API server.
type ServerConfig struct {
	// ListenAddress is the address and port for the server to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8090", "0.0.0.0:8090").
	// Default: "127.0.0.1:8090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 15s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Audits that fetch tickets and call a reviewer need headroom.
	// Default: 60s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RequestTimeout bounds the handling of a single API request.
	// Default: 45s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxBodyBytes limits the size of request bodies.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration. The ticket
	// sidebar widget calls the API from the ticket system's origin.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins for CORS requests.
	// Example: ["https://acme.zendesk.com"]
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods for CORS requests.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed HTTP headers for CORS requests.
	// Default: ["Authorization", "Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the maximum age (in seconds) for preflight request cache.
	// Default: 3600 (1 hour)
	MaxAge int `yaml:"max_age"`
}

// TicketConfig contains configuration for the ticket system API.
type TicketConfig struct {
	// BaseURL is the ticket system API root.
	// Example: "https://acme.zendesk.com"
	// Required for ticket-id audits.
	BaseURL string `yaml:"base_url"`

	// Email is the agent account used for API token authentication.
	Email string `yaml:"email"`

	// APIToken is the API token for Email (supports env vars).
	// Example: "${TICKET_API_TOKEN}"
	APIToken string `yaml:"api_token"`

	// Timeout is the maximum duration of a single API request.
	// Default: 15s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries for transient failures.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`

	// PageSize is the number of comments requested per page.
	// Default: 100
	PageSize int `yaml:"page_size"`

	// Fields maps ticket custom fields to audit inputs.
	Fields TicketFieldsConfig `yaml:"fields"`
}

// TicketFieldsConfig identifies the custom fields read from a ticket.
type TicketFieldsConfig struct {
	// ExperienceType is the custom field id holding the experience type label
	// (e.g., "Social Media Partnered").
	ExperienceType int64 `yaml:"experience_type"`

	// BookingRef is the custom field id holding the booking reference.
	// When unset or empty, the ticket id is used.
	BookingRef int64 `yaml:"booking_ref"`
}

// PolicyConfig contains configuration for the decision grid.
type PolicyConfig struct {
	// Source selects where the grid is loaded from.
	// Options: "file", "http", "s3", "git"
	// Default: "file"
	Source string `yaml:"source"`

	// File configures the local file source.
	File FilePolicyConfig `yaml:"file"`

	// HTTP configures the static URL source.
	HTTP HTTPPolicyConfig `yaml:"http"`

	// S3 configures the object storage source.
	S3 S3PolicyConfig `yaml:"s3"`

	// Git configures the Git repository source.
	Git GitPolicyConfig `yaml:"git"`

	// Watch enables automatic reloading. File sources use filesystem
	// notifications; other sources are polled every PollInterval.
	// Default: false
	Watch bool `yaml:"watch"`

	// PollInterval is the reload interval for non-file sources.
	// Default: 5m
	PollInterval time.Duration `yaml:"poll_interval"`

	// Strict rejects a grid that has any quarantined rows instead of loading
	// the valid subset.
	// Default: false
	Strict bool `yaml:"strict"`
}

// FilePolicyConfig configures the local file grid source.
type FilePolicyConfig struct {
	// Path is the grid document (.json, .yaml or .yml).
	// Default: "./grid.json"
	Path string `yaml:"path"`
}

// HTTPPolicyConfig configures the static URL grid source.
type HTTPPolicyConfig struct {
	// URL is the grid document location.
	URL string `yaml:"url"`

	// Format overrides the document format ("json" or "yaml").
	// Default: inferred from the URL path
	Format string `yaml:"format"`

	// Headers are sent with every request (supports env vars in values).
	Headers map[string]string `yaml:"headers"`

	// Timeout for a single fetch.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// S3PolicyConfig configures the object storage grid source.
type S3PolicyConfig struct {
	// Bucket is the bucket holding the grid.
	Bucket string `yaml:"bucket"`

	// Key is the object key of the grid document.
	Key string `yaml:"key"`

	// Region is the AWS region of the bucket.
	// Default: "us-east-1"
	Region string `yaml:"region"`

	// Endpoint is an optional custom endpoint (for S3-compatible services).
	Endpoint string `yaml:"endpoint"`

	// UsePathStyle forces path-style addressing, required by most
	// S3-compatible services.
	// Default: false
	UsePathStyle bool `yaml:"use_path_style"`
}

// GitPolicyConfig configures Git-based grid loading.
type GitPolicyConfig struct {
	// Repository URL (HTTPS or SSH).
	// Example: "https://github.com/company/dss-grid.git"
	Repository string `yaml:"repository"`

	// Branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path of the grid document within the repository.
	// Default: "grid.json"
	Path string `yaml:"path"`

	// Auth configures Git authentication.
	Auth GitAuthConfig `yaml:"auth"`

	// Timeout for clone and pull operations.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// Clone configures repository cloning.
	Clone GitCloneConfig `yaml:"clone"`
}

// GitAuthConfig configures Git authentication.
type GitAuthConfig struct {
	// Type: "token", "ssh", "none"
	// Default: "none"
	Type string `yaml:"type"`

	// Token for HTTPS authentication (supports env vars).
	// Required when Type is "token".
	Token string `yaml:"token"`

	// SSHKeyPath for SSH authentication.
	// Required when Type is "ssh".
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase for encrypted SSH keys (supports env vars).
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// GitCloneConfig configures repository cloning.
type GitCloneConfig struct {
	// Depth for shallow clones (0 = full clone).
	// Default: 1
	Depth int `yaml:"depth"`

	// LocalPath where the repository is cloned.
	// Default: system temp directory
	LocalPath string `yaml:"local_path"`

	// CleanOnStart removes the local clone before cloning.
	// Default: false
	CleanOnStart bool `yaml:"clean_on_start"`
}

// AuditConfig contains settings for the audit pipeline.
type AuditConfig struct {
	// Timezone is the IANA zone used for the audit date column.
	// Default: "UTC"
	Timezone string `yaml:"timezone"`

	// Timeout bounds a whole audit including ticket fetch, review and sinks.
	// Default: 40s
	Timeout time.Duration `yaml:"timeout"`
}

// VerdictsConfig contains configuration for verdict record storage.
type VerdictsConfig struct {
	// Enabled controls whether verdict records are stored.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend specifies the storage backend.
	// Options: "sqlite", "postgres", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Postgres contains PostgreSQL-specific configuration.
	Postgres PostgresConfig `yaml:"postgres"`

	// Recorder contains async recorder configuration.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`

	// Query contains query configuration.
	Query QueryConfig `yaml:"query"`

	// Export contains export configuration.
	Export ExportConfig `yaml:"export"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/verdicts.db"
	Path string `yaml:"path"`

	// Driver selects the SQLite driver.
	// Options: "sqlite3" (mattn/go-sqlite3, cgo), "sqlite" (modernc.org/sqlite, pure Go)
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// PostgresConfig contains PostgreSQL-specific configuration.
type PostgresConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `yaml:"host"`

	// Port is the PostgreSQL server port.
	// Default: 5432
	Port int `yaml:"port"`

	// Database is the name of the database to use.
	Database string `yaml:"database"`

	// User is the PostgreSQL user for authentication.
	User string `yaml:"user"`

	// Password is the PostgreSQL password (supports env vars).
	Password string `yaml:"password"`

	// SSLMode controls SSL/TLS connection mode.
	// Options: "disable", "require", "verify-ca", "verify-full"
	// Default: "require"
	SSLMode string `yaml:"ssl_mode"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`
}

// RecorderConfig contains async recorder configuration.
type RecorderConfig struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout is the timeout for writing a record to storage.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RetentionConfig contains retention policy configuration.
type RetentionConfig struct {
	// Days is the number of days to retain verdict records.
	// A negative value keeps records forever.
	// Default: 365
	Days int `yaml:"days"`

	// PruneSchedule is a cron expression for scheduling pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`

	// MaxRecords is the maximum number of records to keep.
	// 0 means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// ArchivePath is a directory that receives a JSON copy of every record
	// before it is pruned. Empty disables archiving.
	ArchivePath string `yaml:"archive_path"`
}

// QueryConfig contains query configuration.
type QueryConfig struct {
	// DefaultLimit is the number of records returned when no limit is given.
	// Default: 100
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit is the maximum number of records in a single query.
	// Default: 10000
	MaxLimit int `yaml:"max_limit"`

	// Timeout is the query execution timeout.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// ExportConfig contains export configuration.
type ExportConfig struct {
	// JSONPretty enables pretty-printing for JSON exports.
	// Default: true
	JSONPretty bool `yaml:"json_pretty"`

	// CSVIncludeHeader includes a header row in CSV exports.
	// Default: true
	CSVIncludeHeader bool `yaml:"csv_include_header"`

	// MaxExportSize is the maximum number of records per export.
	// Default: 1000000
	MaxExportSize int `yaml:"max_export_size"`
}

// SinksConfig contains configuration for verdict sinks.
type SinksConfig struct {
	// Sheets forwards every verdict to a spreadsheet proxy.
	Sheets SheetsConfig `yaml:"sheets"`
}

// SheetsConfig configures the spreadsheet proxy sink.
type SheetsConfig struct {
	// Enabled controls whether verdicts are sent to the spreadsheet.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// URL is the spreadsheet proxy endpoint (e.g., an Apps Script web app).
	URL string `yaml:"url"`

	// Secret is sent in SecretHeader with every request (supports env vars).
	Secret string `yaml:"secret"`

	// SecretHeader is the header carrying Secret.
	// Default: "X-Auditor-Secret"
	SecretHeader string `yaml:"secret_header"`

	// Timeout for a single request.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries on 5xx responses.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`
}

// ReviewConfig configures the LLM second opinion on verdicts.
type ReviewConfig struct {
	// Enabled controls whether verdicts are reviewed.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Provider is the key in Providers used for reviews.
	// Default: "openai"
	Provider string `yaml:"provider"`

	// Model is the model name sent to the provider.
	// Default: "gpt-4o-mini"
	Model string `yaml:"model"`

	// Temperature for review completions.
	// Default: 0
	Temperature float64 `yaml:"temperature"`

	// MaxTokens caps the review reply.
	// Default: 300
	MaxTokens int `yaml:"max_tokens"`

	// MaxConversationChars truncates the conversation quoted in the prompt.
	// Default: 6000
	MaxConversationChars int `yaml:"max_conversation_chars"`

	// Timeout for a single review.
	// Default: 20s
	Timeout time.Duration `yaml:"timeout"`
}

// ProviderConfig contains configuration for a single LLM provider.
type ProviderConfig struct {
	// Type selects the adapter.
	// Options: "openai" (any OpenAI-compatible chat completions API)
	// Default: "openai"
	Type string `yaml:"type"`

	// BaseURL is the base URL for the provider's API endpoint.
	// Example: "https://api.openai.com/v1"
	BaseURL string `yaml:"base_url"`

	// APIKey is the authentication key for the provider (supports env vars).
	APIKey string `yaml:"api_key"`

	// Timeout is the maximum duration for requests to this provider.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the maximum number of retry attempts for failed requests.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII enables automatic PII redaction in logs.
	// Conversation text routinely carries customer emails, phone numbers
	// and card numbers.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns contains custom PII redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom PII redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "mercator"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "auditor"
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets defines histogram buckets for audit duration (seconds).
	// Default: [0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health check endpoints are enabled.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout is the timeout for individual component health checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
