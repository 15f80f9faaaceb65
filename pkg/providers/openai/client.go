package openai

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"mercator-hq/auditor/pkg/providers"
	"mercator-hq/auditor/pkg/telemetry/metrics"
)

// DefaultBaseURL is used when the configuration leaves base_url empty.
const DefaultBaseURL = "https://api.openai.com/v1"

// Provider is the OpenAI chat completions adapter.
type Provider struct {
	*providers.HTTPProvider
}

// NewProvider creates an OpenAI adapter. collector may be nil.
func NewProvider(config providers.ProviderConfig, collector *metrics.Collector, logger *slog.Logger) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "openai",
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Type == "" {
		config.Type = "openai"
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 10
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 5
	}

	p := &Provider{HTTPProvider: providers.NewHTTPProvider(config, collector, logger)}
	p.SetHealthURL(config.BaseURL + "/models")

	p.Logger().Debug("openai provider initialized", "base_url", config.BaseURL)
	return p, nil
}

// SendCompletion sends a chat completion request.
func (p *Provider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := p.send(ctx, req)
	tokens := 0
	if resp != nil {
		tokens = resp.Usage.TotalTokens
	}
	p.RecordCompletion(req.Model, start, tokens, err)
	if err != nil {
		return nil, err
	}

	p.Logger().Debug("completion request succeeded",
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
		"duration", time.Since(start),
	)
	return resp, nil
}

func (p *Provider) send(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	url := p.GetConfig().BaseURL + "/chat/completions"
	headers := map[string]string{"Content-Type": "application/json"}
	if key := p.GetConfig().APIKey; key != "" {
		headers["Authorization"] = "Bearer " + key
	}

	var openaiResp OpenAIResponse
	if err := p.DoJSONRequest(ctx, "POST", url, transformRequest(req), &openaiResp, headers); err != nil {
		return nil, err
	}

	resp, err := transformResponse(&openaiResp)
	if err != nil {
		return nil, &providers.ParseError{Provider: p.GetName(), Cause: err}
	}
	return resp, nil
}

func validateRequest(req *providers.CompletionRequest) error {
	if req == nil {
		return &providers.ValidationError{Field: "request", Message: "request cannot be nil"}
	}
	if req.Model == "" {
		return &providers.ValidationError{Field: "model", Message: "model is required"}
	}
	if len(req.Messages) == 0 {
		return &providers.ValidationError{Field: "messages", Message: "at least one message is required"}
	}
	return nil
}
