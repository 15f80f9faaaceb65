package verdicts

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultLimit is the number of records returned when Query.Limit is 0.
	DefaultLimit = 100

	// MaxLimit is the largest Query.Limit accepted by Validate.
	MaxLimit = 10000
)

// SortFields maps the accepted SortBy values to column names.
var SortFields = map[string]string{
	"audited_at":  "audited_at",
	"audit_date":  "audit_date",
	"ticket_id":   "ticket_id",
	"booking_ref": "booking_ref",
	"category":    "category",
	"match_score": "match_score",
}

// Validate checks a query. maxLimit of 0 means MaxLimit.
func Validate(q *Query, maxLimit int) error {
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	if q.Limit < 0 {
		return NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > maxLimit {
		return NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", maxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}
	if q.SortBy != "" {
		if _, ok := SortFields[q.SortBy]; !ok {
			return NewQueryError(q, fmt.Errorf("invalid sort field: %s", q.SortBy))
		}
	}
	switch strings.ToLower(q.SortOrder) {
	case "", "asc", "desc":
	default:
		return NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}
	if q.Since != nil && q.Until != nil && q.Since.After(*q.Until) {
		return NewQueryError(q, fmt.Errorf("since must not be after until"))
	}
	return nil
}

// OrderBy returns the column and direction for q, applying defaults.
// Unknown values fall back to the defaults so callers that skip Validate
// never build SQL from user input.
func (q *Query) OrderBy() (column, direction string) {
	column = "audited_at"
	if c, ok := SortFields[q.SortBy]; ok {
		column = c
	}
	direction = "DESC"
	if strings.EqualFold(q.SortOrder, "asc") {
		direction = "ASC"
	}
	return column, direction
}

// Matches reports whether r satisfies the filters of q.
func (q *Query) Matches(r *Record) bool {
	if q.Since != nil && r.AuditedAt.Before(*q.Since) {
		return false
	}
	if q.Until != nil && r.AuditedAt.After(*q.Until) {
		return false
	}
	if q.TicketID != "" && r.TicketID != q.TicketID {
		return false
	}
	if q.BookingRef != "" && r.BookingRef != q.BookingRef {
		return false
	}
	if q.Category != "" && r.Category != q.Category {
		return false
	}
	if q.ValueTier != "" && r.ValueTier != q.ValueTier {
		return false
	}
	if q.Outcome != "" && r.Outcome != q.Outcome {
		return false
	}
	return true
}

// ParseTime reads a time filter given as an RFC 3339 timestamp or a
// YYYY-MM-DD date (UTC). With endOfDay a date covers the whole day, so an
// "until" of 2026-06-01 includes records audited at 23:59. The empty string
// returns nil.
func ParseTime(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("%q is neither RFC 3339 nor YYYY-MM-DD", raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
