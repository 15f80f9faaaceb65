package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auditor.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	t.Setenv("TEST_SHEETS_SECRET", "s3cret")

	path := writeConfig(t, `
server:
  listen_address: "0.0.0.0:9000"
  read_timeout: "20s"

policy:
  source: "http"
  http:
    url: "https://cdn.example.com/dss/grid.json"

verdicts:
  backend: "memory"
  export:
    json_pretty: false

sinks:
  sheets:
    enabled: true
    url: "https://script.example.com/exec"
    secret: "${TEST_SHEETS_SECRET}"

providers:
  openai:
    base_url: "https://api.openai.com/v1"
    api_key: "test-key-123"

review:
  enabled: true

telemetry:
  logging:
    level: "debug"
    format: "text"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9000" {
		t.Errorf("expected listen address %q, got %q", "0.0.0.0:9000", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 20*time.Second {
		t.Errorf("expected read timeout %v, got %v", 20*time.Second, cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("expected default write timeout, got %v", cfg.Server.WriteTimeout)
	}
	if cfg.Sinks.Sheets.Secret != "s3cret" {
		t.Errorf("expected expanded secret, got %q", cfg.Sinks.Sheets.Secret)
	}
	if cfg.Verdicts.Export.JSONPretty {
		t.Error("explicit json_pretty: false must survive defaults")
	}
	if !cfg.Verdicts.Export.CSVIncludeHeader {
		t.Error("absent csv_include_header should default to true")
	}
	if !cfg.Telemetry.Logging.RedactPII {
		t.Error("redact_pii should default to true")
	}

	openai := cfg.Providers["openai"]
	if openai.Type != "openai" || openai.Timeout != DefaultProviderTimeout {
		t.Errorf("provider defaults not applied: %+v", openai)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		if err == nil || !strings.Contains(err.Error(), "failed to read") {
			t.Errorf("expected read error, got %v", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "server: [unclosed"))
		if err == nil || !strings.Contains(err.Error(), "failed to parse") {
			t.Errorf("expected parse error, got %v", err)
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "policy:\n  source: ftp\n"))
		var verr ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if verr.Errors[0].Field != "policy.source" {
			t.Errorf("expected policy.source error, got %v", verr.Errors)
		}
	})
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
policy:
  source: "file"
  file:
    path: "./grid.yaml"
`)

	t.Setenv("AUDITOR_SERVER_LISTEN_ADDRESS", ":7000")
	t.Setenv("AUDITOR_POLICY_WATCH", "true")
	t.Setenv("AUDITOR_TICKET_FIELDS_EXPERIENCE_TYPE", "360001")
	t.Setenv("AUDITOR_SERVER_CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("AUDITOR_PROVIDERS_OPENAI_API_KEY", "env-key")
	t.Setenv("AUDITOR_PROVIDERS_OPENAI_BASE_URL", "https://llm.example.com/v1")
	t.Setenv("AUDITOR_VERDICTS_RETENTION_DAYS", "not-a-number")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != ":7000" {
		t.Errorf("listen address = %q", cfg.Server.ListenAddress)
	}
	if !cfg.Policy.Watch {
		t.Error("policy.watch override not applied")
	}
	if cfg.Ticket.Fields.ExperienceType != 360001 {
		t.Errorf("experience type field = %d", cfg.Ticket.Fields.ExperienceType)
	}
	if got := cfg.Server.CORS.AllowedOrigins; len(got) != 2 || got[1] != "https://b.example.com" {
		t.Errorf("allowed origins = %v", got)
	}
	if p, ok := cfg.Providers["openai"]; !ok || p.APIKey != "env-key" || p.MaxRetries != DefaultProviderMaxRetries {
		t.Errorf("env-only provider not created: %+v", p)
	}
	if cfg.Verdicts.Retention.Days != DefaultVerdictsRetentionDays {
		t.Errorf("unparsable override should be ignored, got %d", cfg.Verdicts.Retention.Days)
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("AUDITOR_VERDICTS_BACKEND", "memory")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}
	if cfg.Verdicts.Backend != "memory" {
		t.Errorf("backend = %q", cfg.Verdicts.Backend)
	}
}

func TestParse_DollarEscape(t *testing.T) {
	cfg, err := Parse([]byte(`
telemetry:
  logging:
    redact_patterns:
      - name: booking
        pattern: "BK-[0-9]+"
        replacement: "BK-$$1"
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := cfg.Telemetry.Logging.RedactPatterns[0].Replacement; got != "BK-$1" {
		t.Errorf("replacement = %q, want %q", got, "BK-$1")
	}
}
