package ticket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mercator-hq/auditor/pkg/config"
)

func TestExtractObservedAction(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"absent", "Thanks for reaching out, we rebooked you.", ""},
		{"empty", "", ""},
		{"single sentence", "We issued a partial refund of $50 to the customer.", "We issued a partial refund of $50 to the customer."},
		{"second sentence", "Sorry about that! A full refund was processed today. Anything else?", "A full refund was processed today."},
		{"case insensitive", "hello\nREFUND DENIED per policy\nbye", "REFUND DENIED per policy"},
		{"no terminator", "Customer asked for a refund", "Customer asked for a refund"},
		{"question", "Can I get a refund? Please advise.", "Can I get a refund?"},
		{"first occurrence wins", "No refund yet. Partial refund issued.", "No refund yet."},
		{"refunded", "I have refunded 50%.", "I have refunded 50%."},
		{"decimal before", "Paid $12.50 then a partial refund. Thanks", "Paid $12.50 then a partial refund."},
		{"decimal after", "A refund of $300.00 was sent. Bye", "A refund of $300.00 was sent."},
		{"decimal at end", "Full refund of $300.00", "Full refund of $300.00"},
		{"period after amount", "We sent a refund of $20. Thanks", "We sent a refund of $20."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractObservedAction(tt.text))
		})
	}
}

func TestBuildContext(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tk := &Ticket{
		ID:      48213,
		Subject: "  Booking 4821 refund request ",
		CustomFields: []CustomField{
			{ID: 100, Value: "Social Media Partnered"},
			{ID: 200, Value: "BK-99812"},
		},
	}
	comments := []Comment{
		{ID: 2, Body: "We issued a partial refund of $50 to the customer.", CreatedAt: base.Add(time.Hour)},
		{ID: 1, Body: "<p>html</p>", PlainBody: "My tour was cancelled.", CreatedAt: base},
	}

	got := BuildContext(tk, comments, config.TicketFieldsConfig{ExperienceType: 100, BookingRef: 200})

	assert.Equal(t, "48213", got.TicketID)
	assert.Equal(t, "BK-99812", got.BookingRef)
	assert.Equal(t, "Booking 4821 refund request", got.Subject)
	assert.Equal(t, "Social Media Partnered", got.ExperienceType)
	assert.Equal(t, "My tour was cancelled.\nWe issued a partial refund of $50 to the customer.", got.ConversationText)
	assert.Equal(t, 2, got.ConversationCount)
	assert.Equal(t, "We issued a partial refund of $50 to the customer.", got.ObservedAction)
	assert.Equal(t, int64(2), comments[0].ID, "input slice must not be reordered")

	input := got.Input()
	assert.Equal(t, got.ConversationText, input.ConversationText)
	assert.Equal(t, got.ObservedAction, input.ObservedActionText)
	assert.Equal(t, 2, input.ConversationCount)
}

func TestBuildContext_Defaults(t *testing.T) {
	got := BuildContext(&Ticket{ID: 7}, nil, config.TicketFieldsConfig{BookingRef: 200})
	assert.Equal(t, "7", got.BookingRef, "booking ref falls back to the ticket id")
	assert.Empty(t, got.ExperienceType)
	assert.Empty(t, got.ConversationText)
	assert.Zero(t, got.ConversationCount)
}

func TestBuildContext_NFC(t *testing.T) {
	decomposed := "cafe\u0301 refund"
	got := BuildContext(&Ticket{ID: 1}, []Comment{{Body: decomposed}}, config.TicketFieldsConfig{})
	assert.Equal(t, "caf\u00e9 refund", got.ConversationText)
}

func TestTicketField(t *testing.T) {
	tk := &Ticket{CustomFields: []CustomField{
		{ID: 1, Value: "text"},
		{ID: 2, Value: 42.0},
		{ID: 3, Value: true},
		{ID: 4, Value: []any{"a", nil, "b"}},
		{ID: 5, Value: nil},
		{ID: 6, Value: map[string]any{"x": 1}},
	}}
	tests := map[int64]string{1: "text", 2: "42", 3: "true", 4: "a, b", 5: "", 6: "", 0: "", 99: ""}
	for id, want := range tests {
		assert.Equal(t, want, tk.Field(id), "field %d", id)
	}
}

func TestCommentText(t *testing.T) {
	assert.Equal(t, "plain", Comment{Body: "<b>html</b>", PlainBody: "plain"}.Text())
	assert.Equal(t, "<b>html</b>", Comment{Body: "<b>html</b>"}.Text())
}
