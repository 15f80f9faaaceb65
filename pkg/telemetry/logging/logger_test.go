package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"mercator-hq/auditor/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "json", config: Config{Level: "info", Format: "json", RedactPII: true}},
		{name: "text", config: Config{Level: "debug", Format: "text"}},
		{name: "console", config: Config{Level: "WARN", Format: "console", RedactPII: true}},
		{name: "empty defaults", config: Config{}},
		{name: "invalid level", config: Config{Level: "loud"}, wantErr: true},
		{name: "invalid format", config: Config{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Writer = &bytes.Buffer{}
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger.Slog() == nil {
				t.Error("Slog() returned nil")
			}
		})
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.LoggingConfig{
		Level:          "debug",
		Format:         "text",
		AddSource:      true,
		RedactPII:      true,
		RedactPatterns: []config.RedactPattern{{Name: "ref", Pattern: "BK-[0-9]+", Replacement: "BK-***"}},
	})
	if cfg.Level != "debug" || cfg.Format != "text" || !cfg.AddSource || !cfg.RedactPII || len(cfg.RedactPatterns) != 1 {
		t.Errorf("ConfigFrom() = %+v", cfg)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		log     func(*Logger)
		wantLog bool
	}{
		{"debug", func(l *Logger) { l.Debug("msg") }, true},
		{"info", func(l *Logger) { l.Debug("msg") }, false},
		{"info", func(l *Logger) { l.Info("msg") }, true},
		{"warn", func(l *Logger) { l.Info("msg") }, false},
		{"warn", func(l *Logger) { l.Warn("msg") }, true},
		{"error", func(l *Logger) { l.Warn("msg") }, false},
		{"error", func(l *Logger) { l.Error("msg") }, true},
	}

	for _, tt := range tests {
		buf := &bytes.Buffer{}
		logger, err := New(Config{Level: tt.level, Writer: buf})
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		tt.log(logger)
		if got := buf.Len() > 0; got != tt.wantLog {
			t.Errorf("level %s: logged = %v, want %v", tt.level, got, tt.wantLog)
		}
	}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v\n%s", err, line)
	}
	return entry
}

func TestLogger_StructuredFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, _ := New(Config{Writer: buf})

	logger.Info("audit complete", "category", "Compliant", "score", 15)

	entry := decodeLine(t, buf)
	if entry["msg"] != "audit complete" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["category"] != "Compliant" {
		t.Errorf("category = %v", entry["category"])
	}
	if entry["score"] != float64(15) {
		t.Errorf("score = %v", entry["score"])
	}
}

func TestLogger_PIIRedaction(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, _ := New(Config{Writer: buf, RedactPII: true})

	logger.Info("customer wrote jane.doe@example.com",
		"api_token", "abcd1234efgh5678",
		"conversation", "call me at (415) 555-0100",
		"err", errors.New("auth failed for bob@example.com"),
	)

	out := buf.String()
	for _, leaked := range []string{"jane.doe@example.com", "abcd1234efgh5678", "555-0100", "bob@example.com"} {
		if strings.Contains(out, leaked) {
			t.Errorf("output leaked %q: %s", leaked, out)
		}
	}
	entry := decodeLine(t, buf)
	if entry["api_token"] != "abcd***" {
		t.Errorf("api_token = %v, want prefix mask", entry["api_token"])
	}
}

func TestLogger_RedactionDisabled(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, _ := New(Config{Writer: buf})

	logger.Info("msg", "email", "jane@example.com")
	if !strings.Contains(buf.String(), "jane@example.com") {
		t.Errorf("redaction should be off: %s", buf.String())
	}
}

func TestLogger_WithRedactsAttrs(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, _ := New(Config{Writer: buf, RedactPII: true})

	child := logger.With("requester", "jane@example.com")
	child.Info("msg")

	if strings.Contains(buf.String(), "jane@example.com") {
		t.Errorf("With() attrs were not redacted: %s", buf.String())
	}
}

func TestLogger_InstallRedactsDefault(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	buf := &bytes.Buffer{}
	logger, _ := New(Config{Writer: buf, RedactPII: true})
	logger.Install()

	slog.Default().With("component", "test").Info("msg", "secret", "hunter2-hunter2")

	out := buf.String()
	if strings.Contains(out, "hunter2-hunter2") {
		t.Errorf("default logger leaked secret: %s", out)
	}
	if !strings.Contains(out, `"component":"test"`) {
		t.Errorf("component attr missing: %s", out)
	}
}

func TestLogger_ContextMethods(t *testing.T) {
	ctx := WithTicketID(WithAuditID(context.Background(), "aud-1"), "48213")

	tests := []struct {
		name string
		log  func(*Logger)
	}{
		{"debug", func(l *Logger) { l.DebugContext(ctx, "msg") }},
		{"info", func(l *Logger) { l.InfoContext(ctx, "msg") }},
		{"warn", func(l *Logger) { l.WarnContext(ctx, "msg") }},
		{"error", func(l *Logger) { l.ErrorContext(ctx, "msg") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger, _ := New(Config{Level: "debug", Writer: buf})
			tt.log(logger)

			entry := decodeLine(t, buf)
			if entry["audit_id"] != "aud-1" || entry["ticket_id"] != "48213" {
				t.Errorf("context fields missing: %v", entry)
			}
		})
	}
}

func TestLogger_WithContext(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, _ := New(Config{Writer: buf})

	if logger.WithContext(context.Background()) != logger {
		t.Error("WithContext() without fields should return the same logger")
	}

	logger.WithContext(WithRequestID(context.Background(), "req-9")).Info("msg")
	if entry := decodeLine(t, buf); entry["request_id"] != "req-9" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
}

func TestLogger_TextFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, _ := New(Config{Format: "text", Writer: buf})
	logger.Info("hello", "k", "v")

	if !strings.Contains(buf.String(), "msg=hello") || !strings.Contains(buf.String(), "k=v") {
		t.Errorf("unexpected text output: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.input)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseLevel(%q) = %v, %v", tt.input, got, err)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    LogFormat
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"", FormatJSON, false},
		{"TEXT", FormatText, false},
		{"console", FormatConsole, false},
		{"xml", FormatJSON, true},
	}
	for _, tt := range tests {
		got, err := parseFormat(tt.input)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseFormat(%q) = %v, %v", tt.input, got, err)
		}
	}
}

func TestLogger_SlogCarriesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, _ := New(Config{Writer: buf, RedactPII: true})

	ctx := WithRequestID(context.Background(), "req-3")
	logger.Slog().With("component", "audit").InfoContext(ctx, "ticket audited")

	entry := decodeLine(t, buf)
	if entry["request_id"] != "req-3" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
	if entry["component"] != "audit" {
		t.Errorf("component = %v", entry["component"])
	}
}
