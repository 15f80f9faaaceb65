package engine

import (
	"regexp"
	"strconv"
	"strings"
)

// amountPattern finds "$1,234.56" (symbol form) or "1,234.56 USD" (code form).
// RE2 alternation is leftmost-first, so the symbol form wins when both could
// start at the same position.
var amountPattern = regexp.MustCompile(
	`\$(?P<symbol>\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?)` +
		`|(?P<code>\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?)\s*(?i:usd)`,
)

// ClassifyTier buckets the first USD amount found in text.
func ClassifyTier(text string) ValueTier {
	amount, ok := FirstAmount(text)
	if !ok {
		return TierUnknown
	}
	if amount <= ThresholdUSD {
		return TierLow
	}
	return TierHigh
}

// FirstAmount returns the leftmost USD amount in text with thousands
// separators removed.
func FirstAmount(text string) (float64, bool) {
	m := amountPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}

	raw := m[amountPattern.SubexpIndex("symbol")]
	if raw == "" {
		raw = m[amountPattern.SubexpIndex("code")]
	}

	amount, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}
