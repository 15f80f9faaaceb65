package review

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testhelpers "mercator-hq/auditor/internal/providers"
	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/engine"
	"mercator-hq/auditor/pkg/policy"
	"mercator-hq/auditor/pkg/providers"
	"mercator-hq/auditor/pkg/providers/openai"
)

// fakeProvider returns a canned reply and remembers the last request.
type fakeProvider struct {
	reply string
	err   error
	last  *providers.CompletionRequest
	block bool
}

func (f *fakeProvider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	f.last = req
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &providers.CompletionResponse{Content: f.reply, Model: "fake-model"}, nil
}

func (f *fakeProvider) HealthCheck(context.Context) error   { return nil }
func (f *fakeProvider) GetName() string                     { return "fake" }
func (f *fakeProvider) GetType() string                     { return "fake" }
func (f *fakeProvider) IsHealthy() bool                     { return true }
func (f *fakeProvider) GetHealth() providers.ProviderHealth { return providers.ProviderHealth{IsHealthy: true} }
func (f *fakeProvider) Close() error                        { return nil }

func testVerdict() engine.Verdict {
	return engine.Verdict{
		Row:            &policy.Row{L1: "Cancellation", L2: "Weather"},
		RowIndex:       0,
		L1Reason:       "Cancellation",
		L2Reason:       "Weather",
		Tier:           engine.TierHigh,
		ColumnHeader:   "Partner Experience > $125",
		ExpectedAction: "Full refund",
		ObservedAction: "We issued a partial refund.",
		Outcome:        engine.OutcomeMoreSevere,
		Category:       engine.CategoryNonCompliant,
	}
}

func testInput() engine.AuditInput {
	return engine.AuditInput{
		ConversationText:  "The tour was cancelled due to a storm.\nWe issued a partial refund.",
		Subject:           "Tour cancelled",
		ExperienceType:    "Partner Experience",
		ConversationCount: 2,
	}
}

func testConfig() config.ReviewConfig {
	return config.ReviewConfig{Model: "gpt-4o-mini", MaxTokens: 300, MaxConversationChars: 6000, Timeout: time.Second}
}

func TestReviewer_Review(t *testing.T) {
	fake := &fakeProvider{reply: "Sure.\n```json\n{\"agrees\": false, \"rationale\": \" Weather cancellations get a full refund. \"}\n```"}
	r := NewReviewer(fake, testConfig(), nil)

	opinion, err := r.Review(context.Background(), testInput(), testVerdict())
	require.NoError(t, err)
	assert.False(t, opinion.Agrees)
	assert.Equal(t, "Weather cancellations get a full refund.", opinion.Rationale)
	assert.Equal(t, "fake-model", opinion.Model)

	require.NotNil(t, fake.last)
	assert.Equal(t, "gpt-4o-mini", fake.last.Model)
	assert.Equal(t, 300, fake.last.MaxTokens)
	assert.True(t, fake.last.JSONResponse)
	require.Len(t, fake.last.Messages, 2)
	assert.Equal(t, providers.RoleSystem, fake.last.Messages[0].Role)
	assert.Contains(t, fake.last.Messages[1].Content, "Prescribed action: Full refund")
	assert.Contains(t, fake.last.Messages[1].Content, "Auditor verdict: Non-Compliant (More Severe)")
}

func TestReviewer_Errors(t *testing.T) {
	t.Run("provider failure", func(t *testing.T) {
		cause := &providers.AuthError{Provider: "fake", Message: "bad key"}
		_, err := NewReviewer(&fakeProvider{err: cause}, testConfig(), nil).Review(context.Background(), testInput(), testVerdict())

		var re *Error
		require.ErrorAs(t, err, &re)
		assert.Equal(t, "request", re.Stage)
		var ae *providers.AuthError
		assert.ErrorAs(t, err, &ae)
	})

	t.Run("unparseable reply", func(t *testing.T) {
		_, err := NewReviewer(&fakeProvider{reply: "I think it is fine"}, testConfig(), nil).Review(context.Background(), testInput(), testVerdict())

		var re *Error
		require.ErrorAs(t, err, &re)
		assert.Equal(t, "parse", re.Stage)
		assert.Equal(t, "I think it is fine", re.Reply)
	})

	t.Run("timeout", func(t *testing.T) {
		cfg := testConfig()
		cfg.Timeout = 10 * time.Millisecond
		_, err := NewReviewer(&fakeProvider{block: true}, cfg, nil).Review(context.Background(), testInput(), testVerdict())
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestParseOpinion(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantErr   bool
		agrees    bool
		rationale string
	}{
		{name: "bare object", reply: `{"agrees": true, "rationale": "ok"}`, agrees: true, rationale: "ok"},
		{name: "prose around", reply: `Here you go: {"agrees": false, "rationale": "no"} thanks`, rationale: "no"},
		{name: "nested", reply: `{"review": {"agrees": true, "rationale": "inner"}}`, agrees: true, rationale: "inner"},
		{name: "skips objects without agrees", reply: `{"x": 1} {"agrees": true}`, agrees: true},
		{name: "braces in prose", reply: `use {curly} then {"agrees": false, "rationale": "r"}`, rationale: "r"},
		{name: "agrees not boolean", reply: `{"agrees": "yes"}`, wantErr: true},
		{name: "no object", reply: "agrees", wantErr: true},
		{name: "empty", reply: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOpinion(tt.reply)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.agrees, got.Agrees)
			assert.Equal(t, tt.rationale, got.Rationale)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t,
			BuildPrompt(testInput(), testVerdict(), 6000),
			BuildPrompt(testInput(), testVerdict(), 6000))
	})

	t.Run("no match", func(t *testing.T) {
		v := engine.Verdict{RowIndex: -1, L1Reason: engine.UnknownReason, L2Reason: engine.UnknownReason, Tier: engine.TierUnknown}
		prompt := BuildPrompt(engine.AuditInput{}, v, 0)
		assert.Contains(t, prompt, "none, no row matched")
		assert.Contains(t, prompt, "Prescribed action: (none)")
	})

	t.Run("truncates to the most recent text", func(t *testing.T) {
		in := testInput()
		in.ConversationText = strings.Repeat("é", 50) + "THE END"
		prompt := BuildPrompt(in, testVerdict(), 10)
		assert.Contains(t, prompt, truncationMarker+"ééé"+"THE END\n")
		assert.NotContains(t, prompt, "éééé"+"THE END")
	})
}

func TestReviewer_WithOpenAIProvider(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()
	mock.SetResponse("/v1/chat/completions", testhelpers.Completion(`{"agrees": true, "rationale": "Matches the grid."}`, "gpt-4o-mini"))

	provider, err := openai.NewProvider(testhelpers.TestConfigWithURL("openai", "openai", mock.URL()+"/v1"), nil, nil)
	require.NoError(t, err)
	defer provider.Close()

	opinion, err := NewReviewer(provider, testConfig(), nil).Review(context.Background(), testInput(), testVerdict())
	require.NoError(t, err)
	assert.True(t, opinion.Agrees)
	assert.Equal(t, "Matches the grid.", opinion.Rationale)
	assert.Equal(t, 1, mock.GetRequestCount())
}
