package engine

import "mercator-hq/auditor/pkg/policy"

// Evaluate runs the full pipeline for one audit: tier, match, column and
// verdict. A nil or empty table yields an unmatched verdict.
func Evaluate(table *policy.Table, input AuditInput) Verdict {
	tier := ClassifyTier(input.ConversationText)
	column := SelectColumn(input.ExperienceType, tier)

	var matched *Match
	if m, ok := FindBestMatch(table, input); ok {
		matched = &m
	}

	return BuildVerdict(input, matched, tier, column, input.ObservedActionText)
}
