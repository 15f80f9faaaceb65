package engine

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"mercator-hq/auditor/pkg/policy"
)

// TestClassifyTierProperties checks the threshold boundary over generated amounts.
func TestClassifyTierProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("whole dollar amounts at or below the threshold are low", prop.ForAll(
		func(a int, prefix string) bool {
			return ClassifyTier(fmt.Sprintf("%s $%d refunded", prefix, a)) == TierLow
		},
		gen.IntRange(0, 125),
		gen.AlphaString(),
	))

	properties.Property("whole dollar amounts above the threshold are high", prop.ForAll(
		func(a int, prefix string) bool {
			return ClassifyTier(fmt.Sprintf("%s $%d refunded", prefix, a)) == TierHigh
		},
		gen.IntRange(126, 1_000_000),
		gen.AlphaString(),
	))

	properties.Property("cent amounts follow the threshold", prop.ForAll(
		func(a float64) bool {
			text := fmt.Sprintf("charged $%.2f", a)
			amount, _ := FirstAmount(text)
			want := TierHigh
			if amount <= ThresholdUSD {
				want = TierLow
			}
			return ClassifyTier(text) == want
		},
		gen.Float64Range(0, 1000),
	))

	properties.Property("text without a currency pattern is unknown", prop.ForAll(
		func(s string) bool {
			return ClassifyTier(s) == TierUnknown
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// TestFindBestMatchProperties checks ordering and fallback rules.
func TestFindBestMatchProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("equal scores resolve to the earliest row", prop.ForAll(
		func(kw string, copies int) bool {
			rows := make([]policy.Row, copies)
			for i := range rows {
				rows[i] = policy.Row{L1: fmt.Sprintf("row-%d", i), L2: "x", Keywords: []string{kw}}
			}
			m, ok := FindBestMatch(newTable(rows...), AuditInput{ConversationText: "zz " + kw + " zz", ConversationCount: 1})
			return ok && m.Index == 0
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 }),
		gen.IntRange(2, 8),
	))

	properties.Property("non-empty conversations never fall back", prop.ForAll(
		func(count int) bool {
			table := newTable(policy.Row{L1: "Other", L2: "Unknown", Keywords: []string{"qqqq"}})
			_, ok := FindBestMatch(table, AuditInput{ConversationText: "1234", ConversationCount: count})
			return !ok
		},
		gen.IntRange(1, 100),
	))

	properties.Property("matching is deterministic", prop.ForAll(
		func(text, kw1, kw2 string) bool {
			table := newTable(
				policy.Row{L1: "a", L2: "b", Keywords: []string{kw1}},
				policy.Row{L1: "c", L2: "d", Keywords: []string{kw2}},
			)
			input := AuditInput{ConversationText: text, ConversationCount: 1}
			m1, ok1 := FindBestMatch(table, input)
			m2, ok2 := FindBestMatch(table, input)
			return ok1 == ok2 && reflect.DeepEqual(m1, m2)
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// TestVerdictProperties checks category invariants of the full pipeline.
func TestVerdictProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("an empty prescribed action is always rule missing", prop.ForAll(
		func(observed string, colIdx int) bool {
			col := policy.Columns()[colIdx]
			m := &Match{Row: policy.Row{L1: "a", L2: "b", Actions: map[policy.ColumnKey]string{}}}
			return BuildVerdict(AuditInput{}, m, TierLow, col, observed).Category == CategoryRuleMissing
		},
		gen.AnyString(),
		gen.IntRange(0, 7),
	))

	properties.Property("evaluation is repeatable", prop.ForAll(
		func(text, experience, observed string, count int) bool {
			input := AuditInput{
				ConversationText:   text,
				ExperienceType:     experience,
				ObservedActionText: observed,
				ConversationCount:  count,
			}
			return reflect.DeepEqual(Evaluate(endToEndTable(), input), Evaluate(endToEndTable(), input))
		},
		gen.AnyString(),
		gen.OneConstOf("Partnered", "Non-Partnered", "Social Media Partnered", "Social Media Non-Partnered", ""),
		gen.AnyString(),
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}
