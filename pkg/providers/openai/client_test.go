package openai

import (
	"context"
	"errors"
	"testing"

	testhelpers "mercator-hq/auditor/internal/providers"
	"mercator-hq/auditor/pkg/providers"
)

func newTestProvider(t *testing.T, mock *testhelpers.MockServer) *Provider {
	t.Helper()
	p, err := NewProvider(testhelpers.TestConfigWithURL("openai", "openai", mock.URL()+"/v1/"), nil, nil)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func userRequest(content string) *providers.CompletionRequest {
	return &providers.CompletionRequest{
		Model:    "gpt-4o-mini",
		Messages: []providers.Message{{Role: providers.RoleUser, Content: content}},
	}
}

func TestOpenAIProvider_SendCompletion(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()
	mock.SetResponse("/v1/chat/completions", testhelpers.Completion(`{"agrees": true}`, "gpt-4o-mini"))

	p := newTestProvider(t, mock)
	req := userRequest("Review this verdict")
	req.JSONResponse = true

	resp, err := p.SendCompletion(context.Background(), req)
	if err != nil {
		t.Fatalf("SendCompletion failed: %v", err)
	}
	if resp.Content != `{"agrees": true}` {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 30 {
		t.Errorf("total tokens = %d, want 30", resp.Usage.TotalTokens)
	}
	if resp.FinishReason != providers.FinishReasonStop {
		t.Errorf("finish reason = %q", resp.FinishReason)
	}

	sent, ok := mock.LastRequest()
	if !ok {
		t.Fatal("no request recorded")
	}
	if got := sent.Header.Get("Authorization"); got != "Bearer test-key" {
		t.Errorf("Authorization = %q", got)
	}
	var body OpenAIRequest
	if err := sent.JSON(&body); err != nil {
		t.Fatal(err)
	}
	if body.Temperature == nil || *body.Temperature != 0 {
		t.Errorf("temperature should be sent as an explicit 0, got %v", body.Temperature)
	}
	if body.ResponseFormat == nil || body.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %+v", body.ResponseFormat)
	}
	if body.N != 1 || len(body.Messages) != 1 || body.Messages[0].Content != "Review this verdict" {
		t.Errorf("request body = %+v", body)
	}
}

func TestOpenAIProvider_Errors(t *testing.T) {
	tests := []struct {
		name      string
		responses []testhelpers.MockResponse
		wantCalls int
		check     func(error) bool
	}{
		{
			name:      "auth",
			responses: []testhelpers.MockResponse{testhelpers.MockAuthError()},
			wantCalls: 1,
			check: func(err error) bool {
				var e *providers.AuthError
				return errors.As(err, &e)
			},
		},
		{
			name:      "rate limit",
			responses: []testhelpers.MockResponse{testhelpers.MockRateLimitError(3)},
			wantCalls: 1,
			check: func(err error) bool {
				var e *providers.RateLimitError
				return errors.As(err, &e) && e.RetryAfter.Seconds() == 3
			},
		},
		{
			name: "server error then success",
			responses: []testhelpers.MockResponse{
				testhelpers.MockServerError(),
				testhelpers.Completion("ok", "gpt-4o-mini"),
			},
			wantCalls: 2,
			check:     func(err error) bool { return err == nil },
		},
		{
			name:      "no choices",
			responses: []testhelpers.MockResponse{{StatusCode: 200, Body: map[string]interface{}{"id": "x", "choices": []interface{}{}}}},
			wantCalls: 1,
			check: func(err error) bool {
				var e *providers.ParseError
				return errors.As(err, &e)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testhelpers.NewMockServer()
			defer mock.Close()
			mock.SetResponse("/v1/chat/completions", tt.responses...)

			_, err := newTestProvider(t, mock).SendCompletion(context.Background(), userRequest("hi"))
			if !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
			if got := mock.GetRequestCount(); got != tt.wantCalls {
				t.Errorf("requests = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestOpenAIProvider_ValidateRequest(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()
	p := newTestProvider(t, mock)

	for _, req := range []*providers.CompletionRequest{
		nil,
		{Messages: []providers.Message{{Role: "user", Content: "x"}}},
		{Model: "gpt-4o-mini"},
	} {
		_, err := p.SendCompletion(context.Background(), req)
		var ve *providers.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("SendCompletion(%+v) error = %v, want ValidationError", req, err)
		}
	}
	if mock.GetRequestCount() != 0 {
		t.Error("invalid requests must not be sent")
	}
}

func TestOpenAIProvider_HealthCheck(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()
	mock.SetResponse("/v1/models", testhelpers.MockResponse{StatusCode: 200, Body: map[string]interface{}{"data": []interface{}{}}})

	p := newTestProvider(t, mock)
	if err := p.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
	if !p.IsHealthy() {
		t.Error("provider should be healthy")
	}
}

func TestNewProvider_Defaults(t *testing.T) {
	p, err := NewProvider(providers.ProviderConfig{Name: "openai"}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if p.GetConfig().BaseURL != DefaultBaseURL || p.GetType() != "openai" {
		t.Errorf("config = %+v", p.GetConfig())
	}

	if _, err := NewProvider(providers.ProviderConfig{}, nil, nil); err == nil {
		t.Error("missing name should fail")
	}
}

func TestNormalizeFinishReason(t *testing.T) {
	tests := map[string]string{
		"stop":           providers.FinishReasonStop,
		"length":         providers.FinishReasonLength,
		"content_filter": providers.FinishReasonContentFilter,
		"weird":          "weird",
	}
	for in, want := range tests {
		if got := normalizeFinishReason(in); got != want {
			t.Errorf("normalizeFinishReason(%q) = %q, want %q", in, got, want)
		}
	}
}
