package review

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/engine"
	"mercator-hq/auditor/pkg/providers"
)

// truncationMarker replaces the dropped head of a long conversation.
const truncationMarker = "[earlier messages omitted]\n"

// systemPrompt is sent with every review.
const systemPrompt = `You review refund decisions made by customer support agents against a company refund policy grid.
You are given the policy row the auditor matched, the action the grid prescribes, the action the agent took, and the auditor's verdict.
Decide whether the verdict is correct for this conversation.
Reply with a single JSON object and nothing else: {"agrees": true or false, "rationale": "one or two sentences"}.`

// Opinion is the reviewer's judgement of a verdict.
type Opinion struct {
	Agrees    bool   `json:"agrees"`
	Rationale string `json:"rationale"`

	// Model is the model that produced the opinion.
	Model string `json:"model,omitempty"`
}

// Reviewer produces opinions through a provider.
type Reviewer struct {
	provider providers.Provider
	config   config.ReviewConfig
	logger   *slog.Logger
}

// NewReviewer creates a reviewer that sends completions to provider.
func NewReviewer(provider providers.Provider, cfg config.ReviewConfig, logger *slog.Logger) *Reviewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reviewer{
		provider: provider,
		config:   cfg,
		logger:   logger.With("component", "review", "provider", provider.GetName()),
	}
}

// Review asks the provider whether verdict is right for input. The call is
// bounded by the configured review timeout.
func (r *Reviewer) Review(ctx context.Context, input engine.AuditInput, verdict engine.Verdict) (*Opinion, error) {
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := r.provider.SendCompletion(ctx, r.Request(input, verdict))
	if err != nil {
		return nil, &Error{Stage: "request", Cause: err}
	}

	opinion, err := ParseOpinion(resp.Content)
	if err != nil {
		r.logger.Warn("review reply unusable", "error", err, "reply_length", len(resp.Content))
		return nil, &Error{Stage: "parse", Reply: resp.Content, Cause: err}
	}
	opinion.Model = resp.Model

	r.logger.Debug("verdict reviewed",
		"agrees", opinion.Agrees,
		"category", verdict.Category,
		"duration", time.Since(start),
	)
	return opinion, nil
}

// Request builds the completion request for a review.
func (r *Reviewer) Request(input engine.AuditInput, verdict engine.Verdict) *providers.CompletionRequest {
	return &providers.CompletionRequest{
		Model: r.config.Model,
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: systemPrompt},
			{Role: providers.RoleUser, Content: BuildPrompt(input, verdict, r.config.MaxConversationChars)},
		},
		Temperature:  r.config.Temperature,
		MaxTokens:    r.config.MaxTokens,
		JSONResponse: true,
	}
}

// BuildPrompt renders the user message for a review. The conversation keeps
// its last maxChars characters; zero or less keeps all of it.
func BuildPrompt(input engine.AuditInput, verdict engine.Verdict, maxChars int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Ticket subject: %s\n", input.Subject)
	fmt.Fprintf(&b, "Experience type: %s\n", orNone(input.ExperienceType))
	fmt.Fprintf(&b, "Messages in conversation: %d\n\n", input.ConversationCount)

	b.WriteString("Matched policy row:\n")
	if verdict.Matched() {
		fmt.Fprintf(&b, "  L1 reason: %s\n  L2 reason: %s\n", verdict.L1Reason, verdict.L2Reason)
		if verdict.Fallback {
			b.WriteString("  (fallback row, the conversation was empty)\n")
		}
	} else {
		b.WriteString("  none, no row matched the conversation\n")
	}
	fmt.Fprintf(&b, "Value tier: %s\n", verdict.Tier)
	fmt.Fprintf(&b, "Grid column: %s\n\n", orNone(verdict.ColumnHeader))

	fmt.Fprintf(&b, "Prescribed action: %s\n", orNone(verdict.ExpectedAction))
	fmt.Fprintf(&b, "Agent action: %s\n", orNone(verdict.ObservedAction))
	fmt.Fprintf(&b, "Auditor verdict: %s (%s)\n\n", verdict.Category, verdict.Outcome)

	b.WriteString("Conversation:\n")
	b.WriteString(tail(input.ConversationText, maxChars))
	b.WriteString("\n")
	return b.String()
}

// tail returns the last maxChars runes of s, prefixed with a marker when
// anything was dropped.
func tail(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	runes := []rune(s)
	return truncationMarker + string(runes[len(runes)-maxChars:])
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

// ParseOpinion extracts the first JSON object holding an "agrees" boolean
// from reply.
func ParseOpinion(reply string) (*Opinion, error) {
	data := []byte(reply)
	for offset := 0; offset < len(data); {
		i := bytes.IndexByte(data[offset:], '{')
		if i < 0 {
			break
		}
		start := offset + i

		var raw struct {
			Agrees    *bool  `json:"agrees"`
			Rationale string `json:"rationale"`
		}
		dec := json.NewDecoder(bytes.NewReader(data[start:]))
		if err := dec.Decode(&raw); err == nil && raw.Agrees != nil {
			return &Opinion{Agrees: *raw.Agrees, Rationale: strings.TrimSpace(raw.Rationale)}, nil
		}
		offset = start + 1
	}
	return nil, errors.New(`no JSON object with an "agrees" field in reply`)
}
