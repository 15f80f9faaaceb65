package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/telemetry/logging"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
})

func testCORS() config.CORSConfig {
	return config.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://acme.zendesk.com"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         3600,
	}
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		cfg        func() config.CORSConfig
		method     string
		origin     string
		preflight  bool
		wantCode   int
		wantOrigin string
		wantMaxAge string
	}{
		{
			name:       "allowed origin echoed",
			cfg:        testCORS,
			method:     http.MethodGet,
			origin:     "https://acme.zendesk.com",
			wantCode:   http.StatusOK,
			wantOrigin: "https://acme.zendesk.com",
		},
		{
			name:     "unknown origin gets no header",
			cfg:      testCORS,
			method:   http.MethodGet,
			origin:   "https://evil.example",
			wantCode: http.StatusOK,
		},
		{
			name: "wildcard",
			cfg: func() config.CORSConfig {
				c := testCORS()
				c.AllowedOrigins = []string{"*"}
				return c
			},
			method:     http.MethodPost,
			origin:     "https://any.example",
			wantCode:   http.StatusOK,
			wantOrigin: "*",
		},
		{
			name:       "preflight answered",
			cfg:        testCORS,
			method:     http.MethodOptions,
			origin:     "https://acme.zendesk.com",
			preflight:  true,
			wantCode:   http.StatusNoContent,
			wantOrigin: "https://acme.zendesk.com",
			wantMaxAge: "3600",
		},
		{
			name: "disabled passes through",
			cfg: func() config.CORSConfig {
				c := testCORS()
				c.Enabled = false
				return c
			},
			method:   http.MethodOptions,
			origin:   "https://acme.zendesk.com",
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/v1/audits", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", "POST")
			}
			w := httptest.NewRecorder()

			CORSMiddleware(tt.cfg())(okHandler).ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := w.Header().Get("Access-Control-Max-Age"); got != tt.wantMaxAge {
				t.Errorf("Access-Control-Max-Age = %q, want %q", got, tt.wantMaxAge)
			}
			if tt.preflight && w.Header().Get("Access-Control-Allow-Methods") != "GET, POST, OPTIONS" {
				t.Errorf("Access-Control-Allow-Methods = %q", w.Header().Get("Access-Control-Allow-Methods"))
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, nil))

	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	RecoveryMiddleware(logger)(panicking).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/audits", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Type != ErrorTypeServerError {
		t.Errorf("type = %q", resp.Error.Type)
	}
	if strings.Contains(resp.Error.Message, "boom") {
		t.Error("panic value leaked to the client")
	}
	if !strings.Contains(buf.String(), "panic in handler") {
		t.Errorf("panic not logged: %s", buf.String())
	}

	w = httptest.NewRecorder()
	RecoveryMiddleware(logger)(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Errorf("normal request changed: %d %q", w.Code, w.Body.String())
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.GetRequestID(r.Context())
	})

	tests := []struct {
		name     string
		incoming string
		reuse    bool
	}{
		{name: "generated", incoming: ""},
		{name: "client id reused", incoming: "widget-42", reuse: true},
		{name: "oversized id replaced", incoming: strings.Repeat("x", 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			RequestIDMiddleware(capture).ServeHTTP(w, req)

			header := w.Header().Get(RequestIDHeader)
			if header == "" || header != seen {
				t.Fatalf("header %q and context %q must match and be set", header, seen)
			}
			if tt.reuse && header != tt.incoming {
				t.Errorf("id = %q, want %q", header, tt.incoming)
			}
			if !tt.reuse && len(header) != 32 {
				t.Errorf("generated id %q should be 32 hex characters", header)
			}
		})
	}
}

func TestLoggingMiddleware(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := logging.New(logging.Config{Level: "debug", Writer: buf})
	if err != nil {
		t.Fatal(err)
	}

	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, ErrorTypeNotFound, "missing")
	})
	h := RequestIDMiddleware(LoggingMiddleware(logger.Slog())(notFound))

	req := httptest.NewRequest(http.MethodGet, "/v1/audits/nope", nil)
	req.Header.Set(RequestIDHeader, "req-7")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", entry["level"])
	}
	if entry["status"] != float64(http.StatusNotFound) {
		t.Errorf("status = %v", entry["status"])
	}
	if entry["request_id"] != "req-7" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
	if entry["path"] != "/v1/audits/nope" {
		t.Errorf("path = %v", entry["path"])
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	var deadline time.Time
	var ok bool
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
		<-r.Context().Done()
		if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
			WriteError(w, ErrorTypeGatewayTimeout, "timed out")
		}
	})

	w := httptest.NewRecorder()
	TimeoutMiddleware(10*time.Millisecond)(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if !ok || deadline.IsZero() {
		t.Fatal("request context has no deadline")
	}
	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", w.Code)
	}

	w = httptest.NewRecorder()
	TimeoutMiddleware(0)(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Errorf("disabled timeout status = %d", w.Code)
	}
}

func TestBodyLimitMiddleware(t *testing.T) {
	readAll := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				WriteError(w, ErrorTypeRequestTooLarge, err.Error())
				return
			}
			WriteError(w, ErrorTypeInvalidRequest, err.Error())
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name     string
		body     string
		chunked  bool
		wantCode int
	}{
		{name: "under limit", body: "{}", wantCode: http.StatusOK},
		{name: "declared too large", body: strings.Repeat("a", 32), wantCode: http.StatusRequestEntityTooLarge},
		{name: "streamed too large", body: strings.Repeat("a", 32), chunked: true, wantCode: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/audits", strings.NewReader(tt.body))
			if tt.chunked {
				req.ContentLength = -1
			}
			w := httptest.NewRecorder()
			BodyLimitMiddleware(16)(readAll).ServeHTTP(w, req)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
		})
	}
}

func TestStatusCode(t *testing.T) {
	tests := map[string]int{
		ErrorTypeInvalidRequest:     400,
		ErrorTypeNotFound:           404,
		ErrorTypeRequestTooLarge:    413,
		ErrorTypeServerError:        500,
		ErrorTypeBadGateway:         502,
		ErrorTypeServiceUnavailable: 503,
		ErrorTypeGatewayTimeout:     504,
		"anything else":             500,
	}
	for errorType, want := range tests {
		if got := StatusCode(errorType); got != want {
			t.Errorf("StatusCode(%q) = %d, want %d", errorType, got, want)
		}
	}
}
