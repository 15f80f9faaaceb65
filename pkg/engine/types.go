package engine

import "mercator-hq/auditor/pkg/policy"

// ThresholdUSD separates the low and high value tiers. Amounts equal to the
// threshold are low.
const ThresholdUSD = 125.0

// ValueTier is the monetary bucket derived from conversation text.
type ValueTier string

const (
	// TierLow is an amount at or below ThresholdUSD.
	TierLow ValueTier = "<=125"

	// TierHigh is an amount above ThresholdUSD.
	TierHigh ValueTier = ">125"

	// TierUnknown means no USD amount was found.
	TierUnknown ValueTier = "unknown"
)

// String returns the tier label.
func (t ValueTier) String() string { return string(t) }

// AuditInput is everything the engine needs to judge one ticket.
type AuditInput struct {
	// ConversationText is every message body, oldest first, newline separated.
	ConversationText string `json:"conversation_text"`

	// Subject is the ticket subject line.
	Subject string `json:"subject"`

	// ExperienceType is the free-text partner/channel label of the booking.
	ExperienceType string `json:"experience_type"`

	// ObservedActionText describes the action the agent actually took.
	ObservedActionText string `json:"observed_action"`

	// ConversationCount is the number of messages in the conversation.
	ConversationCount int `json:"conversation_count"`
}

// SeverityLevel ranks a refund action from 1 (full refund) to 5 (no refund).
type SeverityLevel int

const (
	SeverityFullRefund          SeverityLevel = 1
	SeverityPartialRefund       SeverityLevel = 2
	SeverityFullWalletCredit    SeverityLevel = 3
	SeverityPartialWalletCredit SeverityLevel = 4
	SeverityNoRefund            SeverityLevel = 5

	// SeverityDefault is assigned to text that matches no known action.
	// It shares its value with SeverityFullWalletCredit.
	SeverityDefault SeverityLevel = 3
)

// Outcome is the result of comparing an observed action to the prescribed one.
type Outcome string

const (
	// OutcomeMatch means both actions have the same severity.
	OutcomeMatch Outcome = "Match"

	// OutcomeLessSevere means the observed action was more generous than
	// prescribed (over-refunded).
	OutcomeLessSevere Outcome = "Less Severe"

	// OutcomeMoreSevere means the observed action was less generous than
	// prescribed (under-refunded).
	OutcomeMoreSevere Outcome = "More Severe"
)

// Category is the compliance classification of an audit.
type Category string

const (
	CategoryCompliant    Category = "Compliant"
	CategoryNonCompliant Category = "Non-Compliant"

	// CategoryRuleMissing is assigned whenever no action is prescribed for
	// the selected cell, regardless of the severity comparison.
	CategoryRuleMissing Category = "Non-Compliant (Rule Missing)"
)

// Categories returns every category in report order.
func Categories() []Category {
	return []Category{CategoryCompliant, CategoryNonCompliant, CategoryRuleMissing}
}

// UnknownReason is reported for L1 and L2 when no grid row matched.
const UnknownReason = "Unknown"

// Match is the row selected by FindBestMatch.
type Match struct {
	// Index is the position of the row in the table.
	Index int

	// Row is a copy of the matched row.
	Row policy.Row

	// Score is the keyword and title score. It is 0 for fallback matches.
	Score int

	// Fallback is true when the row was chosen by the empty-conversation
	// fallback rather than by scoring.
	Fallback bool
}

// Verdict is the engine's result for one audit. It is built once and never
// modified.
type Verdict struct {
	// Row is the matched row, or nil when nothing matched.
	Row *policy.Row `json:"row,omitempty"`

	// RowIndex is the table position of Row, or -1.
	RowIndex int `json:"row_index"`

	// L1Reason and L2Reason are the row titles, or UnknownReason.
	L1Reason string `json:"l1_reason"`
	L2Reason string `json:"l2_reason"`

	MatchScore int  `json:"match_score"`
	Fallback   bool `json:"fallback"`

	Tier         ValueTier        `json:"value_tier"`
	Column       policy.ColumnKey `json:"column_key"`
	ColumnHeader string           `json:"column_header"`

	ExperienceType string `json:"experience_type"`

	ExpectedAction string        `json:"expected_action"`
	ObservedAction string        `json:"observed_action"`
	ExpectedLevel  SeverityLevel `json:"expected_level"`
	ObservedLevel  SeverityLevel `json:"observed_level"`

	Outcome  Outcome  `json:"outcome"`
	Category Category `json:"category"`

	// Explanation quotes the first 150 characters of both actions.
	Explanation string `json:"explanation"`
}

// Matched reports whether a grid row was selected.
func (v *Verdict) Matched() bool {
	return v.Row != nil
}
