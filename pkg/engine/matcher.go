package engine

import (
	"strings"

	"mercator-hq/auditor/pkg/policy"
)

// Score weights.
const (
	KeywordScore = 10
	TitleScore   = 5
)

// FindBestMatch selects the grid row that best describes the conversation.
//
// Each row earns KeywordScore for every keyword found in the lower-cased
// conversation and subject, plus TitleScore each for its L1 and L2 text.
// Empty keywords and titles never score. The highest score wins and ties
// keep the earlier row, so table order matters.
//
// When no row scores, a row is returned only for an empty conversation
// (ConversationCount == 0): the first row marked as a fallback, with
// Match.Fallback set. Otherwise ok is false.
func FindBestMatch(table *policy.Table, input AuditInput) (Match, bool) {
	if table.Len() == 0 {
		return Match{}, false
	}

	haystack := strings.ToLower(input.ConversationText + " " + input.Subject)

	best, bestScore := -1, 0
	for i := 0; i < table.Len(); i++ {
		if score := ScoreRow(table.Row(i), haystack); score > bestScore {
			best, bestScore = i, score
		}
	}

	if best >= 0 {
		return Match{Index: best, Row: table.Row(best).Clone(), Score: bestScore}, true
	}

	if input.ConversationCount != 0 {
		return Match{}, false
	}
	for i := 0; i < table.Len(); i++ {
		if row := table.Row(i); row.IsFallback() {
			return Match{Index: i, Row: row.Clone(), Fallback: true}, true
		}
	}
	return Match{}, false
}

// ScoreRow scores a single row against an already lower-cased haystack.
func ScoreRow(row policy.Row, haystack string) int {
	score := 0
	for _, kw := range row.Keywords {
		if containsFold(haystack, kw) {
			score += KeywordScore
		}
	}
	if containsFold(haystack, row.L1) {
		score += TitleScore
	}
	if containsFold(haystack, row.L2) {
		score += TitleScore
	}
	return score
}

func containsFold(haystack, needle string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	return needle != "" && strings.Contains(haystack, needle)
}
