package engine

import (
	"strings"

	"mercator-hq/auditor/pkg/policy"
)

// SelectColumn maps an experience type label and value tier to a grid column.
//
// Rules are tried in order and the first that applies wins:
//
//  1. "partnered", or a label containing "partnered" but neither "social"
//     nor a non-partnered spelling.
//  2. "non-partnered" or "nonpartnered", exactly or contained, without
//     "social".
//  3. Labels containing "social" and "partnered" but not "non".
//  4. Labels containing "social" and a non-partnered spelling.
//  5. Anything else selects the Partnered column for the tier.
//
// For rules 1 to 4 an unknown tier selects the high column. The default
// rule selects the high column only for TierHigh.
func SelectColumn(experienceType string, tier ValueTier) policy.ColumnKey {
	t := strings.ToLower(strings.TrimSpace(experienceType))

	social := strings.Contains(t, "social")
	partnered := strings.Contains(t, "partnered")
	nonPartnered := strings.Contains(t, "non-partnered") || strings.Contains(t, "nonpartnered")

	switch {
	case t == "partnered" || (partnered && !social && !nonPartnered):
		return pick(tier, policy.PartneredLow, policy.PartneredHigh)
	case t == "non-partnered" || t == "nonpartnered" || (nonPartnered && !social):
		return pick(tier, policy.NonPartneredLow, policy.NonPartneredHigh)
	case social && partnered && !strings.Contains(t, "non"):
		return pick(tier, policy.SocialPartneredLow, policy.SocialPartneredHigh)
	case social && nonPartnered:
		return pick(tier, policy.SocialNonPartneredLow, policy.SocialNonPartneredHigh)
	}

	if tier == TierHigh {
		return policy.PartneredHigh
	}
	return policy.PartneredLow
}

func pick(tier ValueTier, low, high policy.ColumnKey) policy.ColumnKey {
	if tier == TierLow {
		return low
	}
	return high
}
