// Package openai implements the provider adapter for OpenAI-compatible
// chat completions APIs (OpenAI, Azure OpenAI proxies, vLLM, Ollama and
// similar servers exposing POST {base_url}/chat/completions).
//
// # Basic Usage
//
//	provider, err := openai.NewProvider(providers.ProviderConfig{
//	    Name:    "openai",
//	    Type:    "openai",
//	    BaseURL: "https://api.openai.com/v1",
//	    APIKey:  os.Getenv("OPENAI_API_KEY"),
//	}, collector, logger)
//	if err != nil {
//	    return err
//	}
//	defer provider.Close()
//
// # Request Transformation
//
// Messages are passed through unchanged. A request with JSONResponse set is
// sent with response_format {"type": "json_object"}; servers that ignore the
// field still work because the review parser extracts the first JSON object
// from free text.
//
// # Response Transformation
//
// Only the first choice is used. The finish reason is normalized to the
// providers constants and token usage is copied as reported.
//
// # Error Handling
//
//   - 401/403 -> AuthError
//   - 429 -> RateLimitError (includes retry-after)
//   - 400 -> ProviderError, not retried
//   - 5xx -> ProviderError, retried with backoff
//   - a 2xx body with no choices -> ParseError
package openai
