package engine

import "strings"

// severityPhrases is checked in order; the first phrase found decides.
var severityPhrases = []struct {
	level   SeverityLevel
	phrases []string
}{
	{SeverityFullRefund, []string{"full refund", "refund to original", "refund (original method)"}},
	{SeverityPartialRefund, []string{"partial refund", "% refund"}},
	{SeverityFullWalletCredit, []string{"full wallet credit", "wallet credit full"}},
	{SeverityPartialWalletCredit, []string{"partial wallet credit", "credit to wallet partial"}},
	{SeverityNoRefund, []string{"no refund", "deny refund", "no action"}},
}

// Rank places an action description on the severity scale. Unrecognized
// text ranks SeverityDefault.
func Rank(actionText string) SeverityLevel {
	t := strings.ToLower(actionText)
	for _, group := range severityPhrases {
		for _, p := range group.phrases {
			if strings.Contains(t, p) {
				return group.level
			}
		}
	}
	return SeverityDefault
}

// Compare ranks both actions and reports how the actual one relates to the
// expected one.
func Compare(expected, actual string) Outcome {
	return CompareLevels(Rank(expected), Rank(actual))
}

// CompareLevels compares two severity levels. A higher actual level is a
// less generous action and so more severe for the customer.
func CompareLevels(expected, actual SeverityLevel) Outcome {
	switch {
	case actual == expected:
		return OutcomeMatch
	case actual > expected:
		return OutcomeMoreSevere
	default:
		return OutcomeLessSevere
	}
}
