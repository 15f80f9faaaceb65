package ticket

import (
	"strconv"
	"strings"
	"time"

	"mercator-hq/auditor/pkg/engine"
)

// Ticket is the subset of a support ticket the auditor reads.
type Ticket struct {
	ID           int64         `json:"id"`
	Subject      string        `json:"subject"`
	Description  string        `json:"description"`
	Status       string        `json:"status"`
	CustomFields []CustomField `json:"custom_fields"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// CustomField is one custom field value. Value is whatever the API sent:
// a string, number, bool, list or null.
type CustomField struct {
	ID    int64 `json:"id"`
	Value any   `json:"value"`
}

// Field returns the custom field with id rendered as text, or "" when the
// field is absent or null. List values are joined with ", ".
func (t *Ticket) Field(id int64) string {
	if id == 0 {
		return ""
	}
	for _, f := range t.CustomFields {
		if f.ID == id {
			return fieldText(f.Value)
		}
	}
	return ""
}

func fieldText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := fieldText(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

// Comment is one message in a ticket conversation.
type Comment struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"author_id"`
	Body      string    `json:"body"`
	PlainBody string    `json:"plain_body"`
	Public    bool      `json:"public"`
	CreatedAt time.Time `json:"created_at"`
}

// Text returns the plain body when present, otherwise the body.
func (c Comment) Text() string {
	if c.PlainBody != "" {
		return c.PlainBody
	}
	return c.Body
}

// Context is the audit view of a ticket.
type Context struct {
	TicketID          string `json:"ticket_id"`
	BookingRef        string `json:"booking_ref"`
	Subject           string `json:"subject"`
	ExperienceType    string `json:"experience_type"`
	ConversationText  string `json:"conversation_text"`
	ConversationCount int    `json:"conversation_count"`
	ObservedAction    string `json:"observed_action"`
}

// Input converts the context into the engine's input record.
func (c *Context) Input() engine.AuditInput {
	return engine.AuditInput{
		ConversationText:   c.ConversationText,
		Subject:            c.Subject,
		ExperienceType:     c.ExperienceType,
		ObservedActionText: c.ObservedAction,
		ConversationCount:  c.ConversationCount,
	}
}
