package engine

import (
	"fmt"

	"mercator-hq/auditor/pkg/policy"
)

// explanationLimit is the number of characters quoted from each action.
const explanationLimit = 150

// BuildVerdict assembles the verdict for a match (nil when nothing matched)
// and the selected column.
func BuildVerdict(input AuditInput, match *Match, tier ValueTier, column policy.ColumnKey, observed string) Verdict {
	v := Verdict{
		RowIndex:       -1,
		L1Reason:       UnknownReason,
		L2Reason:       UnknownReason,
		Tier:           tier,
		Column:         column,
		ColumnHeader:   column.Header(),
		ExperienceType: input.ExperienceType,
		ObservedAction: observed,
	}

	if match != nil {
		row := match.Row.Clone()
		v.Row = &row
		v.RowIndex = match.Index
		v.MatchScore = match.Score
		v.Fallback = match.Fallback
		v.L1Reason = orUnknown(row.L1)
		v.L2Reason = orUnknown(row.L2)
		v.ExpectedAction = row.Action(column)
	}

	v.ExpectedLevel = Rank(v.ExpectedAction)
	v.ObservedLevel = Rank(observed)
	v.Outcome = CompareLevels(v.ExpectedLevel, v.ObservedLevel)
	v.Category = categorize(v.ExpectedAction, v.Outcome)
	v.Explanation = Explain(v.ExpectedAction, observed)

	return v
}

func categorize(expected string, outcome Outcome) Category {
	if expected == "" {
		return CategoryRuleMissing
	}
	if outcome == OutcomeMoreSevere {
		return CategoryNonCompliant
	}
	return CategoryCompliant
}

// Explain renders the standard explanation line.
func Explain(expected, observed string) string {
	return fmt.Sprintf(`DSS expects: "%s". Actual: "%s".`, truncate(expected, explanationLimit), truncate(observed, explanationLimit))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func orUnknown(s string) string {
	if s == "" {
		return UnknownReason
	}
	return s
}
