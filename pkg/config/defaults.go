package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8090"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultRequestTimeout  = 45 * time.Second
	DefaultMaxBodyBytes    = int64(1048576) // 1MB

	// CORS defaults
	DefaultCORSEnabled = true
	DefaultCORSMaxAge  = 3600 // 1 hour

	// Ticket defaults
	DefaultTicketTimeout    = 15 * time.Second
	DefaultTicketMaxRetries = 3
	DefaultTicketPageSize   = 100

	// Policy defaults
	DefaultPolicySource       = "file"
	DefaultPolicyFilePath     = "./grid.json"
	DefaultPolicyHTTPTimeout  = 10 * time.Second
	DefaultPolicyS3Region     = "us-east-1"
	DefaultPolicyGitBranch    = "main"
	DefaultPolicyGitPath      = "grid.json"
	DefaultPolicyGitTimeout   = 30 * time.Second
	DefaultPolicyGitDepth     = 1
	DefaultPolicyPollInterval = 5 * time.Minute

	// Audit defaults
	DefaultAuditTimezone = "UTC"
	DefaultAuditTimeout  = 40 * time.Second

	// Verdict storage defaults
	DefaultVerdictsEnabled              = true
	DefaultVerdictsBackend              = "sqlite"
	DefaultVerdictsSQLitePath           = "data/verdicts.db"
	DefaultVerdictsSQLiteDriver         = "sqlite3"
	DefaultVerdictsSQLiteMaxOpenConns   = 10
	DefaultVerdictsSQLiteMaxIdleConns   = 5
	DefaultVerdictsSQLiteWALMode        = true
	DefaultVerdictsSQLiteBusyTimeout    = 5 * time.Second
	DefaultVerdictsRecorderAsyncBuffer  = 1000
	DefaultVerdictsRecorderWriteTimeout = 5 * time.Second
	DefaultVerdictsRetentionDays        = 365
	DefaultVerdictsRetentionSchedule    = "0 3 * * *"
	DefaultVerdictsQueryDefaultLimit    = 100
	DefaultVerdictsQueryMaxLimit        = 10000
	DefaultVerdictsQueryTimeout         = 30 * time.Second
	DefaultVerdictsExportJSONPretty     = true
	DefaultVerdictsExportCSVHeader      = true
	DefaultVerdictsExportMaxSize        = 1000000
	DefaultPostgresPort                 = 5432
	DefaultPostgresSSLMode              = "require"
	DefaultPostgresMaxOpenConns         = 10

	// Sink defaults
	DefaultSheetsSecretHeader = "X-Auditor-Secret"
	DefaultSheetsTimeout      = 10 * time.Second
	DefaultSheetsMaxRetries   = 2

	// Review defaults
	DefaultReviewProvider             = "openai"
	DefaultReviewModel                = "gpt-4o-mini"
	DefaultReviewMaxTokens            = 300
	DefaultReviewMaxConversationChars = 6000
	DefaultReviewTimeout              = 20 * time.Second

	// Provider defaults
	DefaultProviderType       = "openai"
	DefaultProviderTimeout    = 60 * time.Second
	DefaultProviderMaxRetries = 3

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultLoggingRedactPII   = true
	DefaultMetricsEnabled     = true
	DefaultPrometheusPath     = "/metrics"
	DefaultMetricsNamespace   = "mercator"
	DefaultMetricsSubsystem   = "auditor"
	DefaultHealthEnabled      = true
	DefaultHealthLiveness     = "/health"
	DefaultHealthReadiness    = "/ready"
	DefaultHealthCheckTimeout = 5 * time.Second
)

// DefaultDurationBuckets are the audit duration histogram buckets in seconds.
var DefaultDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := newWithBoolDefaults()
	ApplyDefaults(cfg)
	return cfg
}

// newWithBoolDefaults returns a Config whose true-by-default booleans are set.
// YAML decoding into it only overwrites keys present in the document, so an
// explicit "false" survives while an absent key keeps its default.
func newWithBoolDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			CORS: CORSConfig{Enabled: DefaultCORSEnabled},
		},
		Verdicts: VerdictsConfig{
			Enabled: DefaultVerdictsEnabled,
			SQLite:  SQLiteConfig{WALMode: DefaultVerdictsSQLiteWALMode},
			Export: ExportConfig{
				JSONPretty:       DefaultVerdictsExportJSONPretty,
				CSVIncludeHeader: DefaultVerdictsExportCSVHeader,
			},
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{RedactPII: DefaultLoggingRedactPII},
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
			Health:  HealthConfig{Enabled: DefaultHealthEnabled},
		},
	}
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
// Booleans that default to true are set by Default and LoadConfig before
// decoding, since a zero bool cannot be told apart from an explicit false.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	applyCORSDefaults(&cfg.Server.CORS)

	// Ticket defaults
	if cfg.Ticket.Timeout == 0 {
		cfg.Ticket.Timeout = DefaultTicketTimeout
	}
	if cfg.Ticket.MaxRetries == 0 {
		cfg.Ticket.MaxRetries = DefaultTicketMaxRetries
	}
	if cfg.Ticket.PageSize == 0 {
		cfg.Ticket.PageSize = DefaultTicketPageSize
	}

	applyPolicyDefaults(&cfg.Policy)

	// Audit defaults
	if cfg.Audit.Timezone == "" {
		cfg.Audit.Timezone = DefaultAuditTimezone
	}
	if cfg.Audit.Timeout == 0 {
		cfg.Audit.Timeout = DefaultAuditTimeout
	}

	applyVerdictsDefaults(&cfg.Verdicts)

	// Sink defaults
	if cfg.Sinks.Sheets.SecretHeader == "" {
		cfg.Sinks.Sheets.SecretHeader = DefaultSheetsSecretHeader
	}
	if cfg.Sinks.Sheets.Timeout == 0 {
		cfg.Sinks.Sheets.Timeout = DefaultSheetsTimeout
	}
	if cfg.Sinks.Sheets.MaxRetries == 0 {
		cfg.Sinks.Sheets.MaxRetries = DefaultSheetsMaxRetries
	}

	// Review defaults
	if cfg.Review.Provider == "" {
		cfg.Review.Provider = DefaultReviewProvider
	}
	if cfg.Review.Model == "" {
		cfg.Review.Model = DefaultReviewModel
	}
	if cfg.Review.MaxTokens == 0 {
		cfg.Review.MaxTokens = DefaultReviewMaxTokens
	}
	if cfg.Review.MaxConversationChars == 0 {
		cfg.Review.MaxConversationChars = DefaultReviewMaxConversationChars
	}
	if cfg.Review.Timeout == 0 {
		cfg.Review.Timeout = DefaultReviewTimeout
	}

	// Provider defaults - applied to each provider
	for name, provider := range cfg.Providers {
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

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultHealthLiveness
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultHealthReadiness
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}

// applyCORSDefaults applies default values to CORS configuration.
func applyCORSDefaults(cors *CORSConfig) {
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = DefaultCORSMaxAge
	}
}

// applyPolicyDefaults applies default values to grid source configuration.
func applyPolicyDefaults(p *PolicyConfig) {
	if p.Source == "" {
		p.Source = DefaultPolicySource
	}
	if p.File.Path == "" {
		p.File.Path = DefaultPolicyFilePath
	}
	if p.HTTP.Timeout == 0 {
		p.HTTP.Timeout = DefaultPolicyHTTPTimeout
	}
	if p.S3.Region == "" {
		p.S3.Region = DefaultPolicyS3Region
	}
	if p.Git.Branch == "" {
		p.Git.Branch = DefaultPolicyGitBranch
	}
	if p.Git.Path == "" {
		p.Git.Path = DefaultPolicyGitPath
	}
	if p.Git.Timeout == 0 {
		p.Git.Timeout = DefaultPolicyGitTimeout
	}
	if p.Git.Clone.Depth == 0 {
		p.Git.Clone.Depth = DefaultPolicyGitDepth
	}
	if p.Git.Auth.Type == "" {
		p.Git.Auth.Type = "none"
	}
	if p.PollInterval == 0 {
		p.PollInterval = DefaultPolicyPollInterval
	}
}

// applyVerdictsDefaults applies default values to verdict storage configuration.
func applyVerdictsDefaults(v *VerdictsConfig) {
	if v.Backend == "" {
		v.Backend = DefaultVerdictsBackend
	}

	// SQLite defaults
	if v.SQLite.Path == "" {
		v.SQLite.Path = DefaultVerdictsSQLitePath
	}
	if v.SQLite.Driver == "" {
		v.SQLite.Driver = DefaultVerdictsSQLiteDriver
	}
	if v.SQLite.MaxOpenConns == 0 {
		v.SQLite.MaxOpenConns = DefaultVerdictsSQLiteMaxOpenConns
	}
	if v.SQLite.MaxIdleConns == 0 {
		v.SQLite.MaxIdleConns = DefaultVerdictsSQLiteMaxIdleConns
	}
	if v.SQLite.BusyTimeout == 0 {
		v.SQLite.BusyTimeout = DefaultVerdictsSQLiteBusyTimeout
	}

	// Postgres defaults
	if v.Postgres.Port == 0 {
		v.Postgres.Port = DefaultPostgresPort
	}
	if v.Postgres.SSLMode == "" {
		v.Postgres.SSLMode = DefaultPostgresSSLMode
	}
	if v.Postgres.MaxOpenConns == 0 {
		v.Postgres.MaxOpenConns = DefaultPostgresMaxOpenConns
	}

	// Recorder defaults
	if v.Recorder.AsyncBuffer == 0 {
		v.Recorder.AsyncBuffer = DefaultVerdictsRecorderAsyncBuffer
	}
	if v.Recorder.WriteTimeout == 0 {
		v.Recorder.WriteTimeout = DefaultVerdictsRecorderWriteTimeout
	}

	// Retention defaults
	if v.Retention.Days == 0 {
		v.Retention.Days = DefaultVerdictsRetentionDays
	}
	if v.Retention.PruneSchedule == "" {
		v.Retention.PruneSchedule = DefaultVerdictsRetentionSchedule
	}

	// Query defaults
	if v.Query.DefaultLimit == 0 {
		v.Query.DefaultLimit = DefaultVerdictsQueryDefaultLimit
	}
	if v.Query.MaxLimit == 0 {
		v.Query.MaxLimit = DefaultVerdictsQueryMaxLimit
	}
	if v.Query.Timeout == 0 {
		v.Query.Timeout = DefaultVerdictsQueryTimeout
	}

	if v.Export.MaxExportSize == 0 {
		v.Export.MaxExportSize = DefaultVerdictsExportMaxSize
	}
}
