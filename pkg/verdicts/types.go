package verdicts

import (
	"context"
	"io"
	"strconv"
	"time"
)

// Record is the persisted result of one audit. Records are written once and
// never updated.
type Record struct {
	// Identity
	ID         string `json:"id"`          // UUID v4
	TicketID   string `json:"ticket_id"`   // Empty for widget-supplied input
	BookingRef string `json:"booking_ref"` // Booking or reference identifier

	// Timestamps
	AuditDate string    `json:"audit_date"` // YYYY-MM-DD in the configured timezone
	AuditedAt time.Time `json:"audited_at"` // UTC

	// Verdict
	Category       string `json:"category"`
	ValueTier      string `json:"value_tier"`
	L1Reason       string `json:"l1_reason"`
	L2Reason       string `json:"l2_reason"`
	ColumnKey      string `json:"column_key"`
	ColumnHeader   string `json:"column_header"`
	ExperienceType string `json:"experience_type"`
	Outcome        string `json:"outcome"`
	ExpectedAction string `json:"expected_action"`
	ObservedAction string `json:"observed_action"`
	Explanation    string `json:"explanation"`
	Confidence     string `json:"confidence"` // "Low", "Medium" or "High"

	// Match details
	MatchScore    int    `json:"match_score"`
	Fallback      bool   `json:"fallback"`
	PolicyVersion string `json:"policy_version"` // Digest of the decision grid

	// Second opinion, absent when review is disabled or failed
	ReviewAgrees    *bool  `json:"review_agrees,omitempty"`
	ReviewRationale string `json:"review_rationale,omitempty"`

	// Error holds a review failure. The verdict itself is still valid.
	Error string `json:"error,omitempty"`
}

// Header returns the spreadsheet column names in row order.
func Header() []string {
	return []string{
		"Booking Ref", "Audit Date", "Category", "Value Tier",
		"L1 Reason", "L2 Reason", "Column Key", "Column Header",
		"Experience Type", "Outcome", "Expected Action", "Observed Action",
		"Explanation", "Confidence",
		"Ticket ID", "Match Score", "Fallback", "Policy Version",
		"Review Agrees", "Review Rationale", "Error", "ID", "Audited At",
	}
}

// Row flattens the record in Header order.
func (r *Record) Row() []string {
	agrees := ""
	if r.ReviewAgrees != nil {
		agrees = strconv.FormatBool(*r.ReviewAgrees)
	}
	audited := ""
	if !r.AuditedAt.IsZero() {
		audited = r.AuditedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		r.BookingRef, r.AuditDate, r.Category, r.ValueTier,
		r.L1Reason, r.L2Reason, r.ColumnKey, r.ColumnHeader,
		r.ExperienceType, r.Outcome, r.ExpectedAction, r.ObservedAction,
		r.Explanation, r.Confidence,
		r.TicketID, strconv.Itoa(r.MatchScore), strconv.FormatBool(r.Fallback), r.PolicyVersion,
		agrees, r.ReviewRationale, r.Error, r.ID, audited,
	}
}

// Query contains filters and pagination for retrieving records.
// Zero-valued fields do not filter.
type Query struct {
	// Time range filters on AuditedAt, both ends inclusive
	Since *time.Time `json:"since,omitempty"`
	Until *time.Time `json:"until,omitempty"`

	TicketID   string `json:"ticket_id,omitempty"`
	BookingRef string `json:"booking_ref,omitempty"`
	Category   string `json:"category,omitempty"`
	ValueTier  string `json:"value_tier,omitempty"`
	Outcome    string `json:"outcome,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`  // 0 means the backend default
	Offset int `json:"offset,omitempty"` // Records to skip

	// Sorting
	SortBy    string `json:"sort_by,omitempty"`    // One of SortFields, default "audited_at"
	SortOrder string `json:"sort_order,omitempty"` // "asc" or "desc", default "desc"
}

// Storage persists verdict records. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store persists a record. Storing an ID twice is an error.
	Store(ctx context.Context, record *Record) error

	// Get returns one record or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// Query returns the records matching q.
	Query(ctx context.Context, q *Query) ([]*Record, error)

	// QueryStream returns matching records one at a time. Both channels are
	// closed when the stream ends; at most one error is sent.
	QueryStream(ctx context.Context, q *Query) (<-chan *Record, <-chan error, error)

	// Count returns the number of matching records, ignoring pagination.
	Count(ctx context.Context, q *Query) (int64, error)

	// Delete removes the matching records, ignoring pagination, and returns
	// how many were removed.
	Delete(ctx context.Context, q *Query) (int64, error)

	// Close releases resources held by the backend.
	Close() error
}

// Exporter writes records in a specific file format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
	ExportStream(ctx context.Context, records <-chan *Record, w io.Writer) error
}
