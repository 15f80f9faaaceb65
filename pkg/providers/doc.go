// Package providers is the text-generation layer used for verdict reviews.
//
// # Overview
//
// A Provider sends a chat completion request and returns the generated text
// in a provider-agnostic form. The auditor only needs single-shot
// completions: the review package builds one prompt per verdict and parses
// the JSON object in the reply.
//
// # Architecture
//
//  1. Provider interface - the contract adapters implement
//  2. HTTPProvider - shared HTTP client with retries, typed errors, health
//     tracking and request metrics
//  3. Adapters - openai, for any OpenAI-compatible chat completions API
//
// Adapters are constructed by the providerfactory package from the
// providers section of the configuration.
//
// # Retries
//
// HTTPProvider retries network failures and 5xx responses with exponential
// backoff (1s, 2s, 4s, ...) up to ProviderConfig.MaxRetries. Authentication
// failures (401/403), rate limits (429) and bad requests (400) are returned
// immediately as *AuthError, *RateLimitError and *ProviderError.
//
// # Health
//
// Three consecutive failed requests mark a provider unhealthy; the next
// success marks it healthy again. StartHealthChecker probes the provider in
// the background and backs off while it stays unhealthy.
//
// # Usage
//
//	provider, err := providerfactory.NewProvider("openai", cfg.Providers["openai"], collector, logger)
//	if err != nil {
//	    return err
//	}
//	defer provider.Close()
//
//	resp, err := provider.SendCompletion(ctx, &providers.CompletionRequest{
//	    Model:    "gpt-4o-mini",
//	    Messages: []providers.Message{{Role: providers.RoleUser, Content: prompt}},
//	})
package providers
