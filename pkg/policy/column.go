package policy

import "strings"

// ColumnKey identifies one of the eight prescribed-action columns of the grid.
// The string value is the column's wire name in grid documents and records.
type ColumnKey string

const (
	// PartneredLow is the Partnered column for bookings at or below the threshold.
	PartneredLow ColumnKey = "partnered_low"
	// PartneredHigh is the Partnered column for bookings above the threshold.
	PartneredHigh ColumnKey = "partnered_high"
	// NonPartneredLow is the Non-Partnered column at or below the threshold.
	NonPartneredLow ColumnKey = "non_partnered_low"
	// NonPartneredHigh is the Non-Partnered column above the threshold.
	NonPartneredHigh ColumnKey = "non_partnered_high"
	// SocialPartneredLow is the Social Media Partnered column at or below the threshold.
	SocialPartneredLow ColumnKey = "social_partnered_low"
	// SocialPartneredHigh is the Social Media Partnered column above the threshold.
	SocialPartneredHigh ColumnKey = "social_partnered_high"
	// SocialNonPartneredLow is the Social Media Non-Partnered column at or below the threshold.
	SocialNonPartneredLow ColumnKey = "social_non_partnered_low"
	// SocialNonPartneredHigh is the Social Media Non-Partnered column above the threshold.
	SocialNonPartneredHigh ColumnKey = "social_non_partnered_high"
)

// columnOrder is the canonical column order used for headers and exports.
var columnOrder = []ColumnKey{
	PartneredLow,
	PartneredHigh,
	NonPartneredLow,
	NonPartneredHigh,
	SocialPartneredLow,
	SocialPartneredHigh,
	SocialNonPartneredLow,
	SocialNonPartneredHigh,
}

var columnHeaders = map[ColumnKey]string{
	PartneredLow:           "Partnered ≤ USD 125",
	PartneredHigh:          "Partnered > USD 125",
	NonPartneredLow:        "Non-Partnered ≤ USD 125",
	NonPartneredHigh:       "Non-Partnered > USD 125",
	SocialPartneredLow:     "Social Media Partnered ≤ USD 125",
	SocialPartneredHigh:    "Social Media Partnered > USD 125",
	SocialNonPartneredLow:  "Social Media Non-Partnered ≤ USD 125",
	SocialNonPartneredHigh: "Social Media Non-Partnered > USD 125",
}

// headerIndex maps normalized header text back to its column.
var headerIndex = func() map[string]ColumnKey {
	idx := make(map[string]ColumnKey, len(columnHeaders))
	for key, header := range columnHeaders {
		idx[normalizeHeader(header)] = key
	}
	return idx
}()

// Columns returns all column keys in canonical order.
func Columns() []ColumnKey {
	out := make([]ColumnKey, len(columnOrder))
	copy(out, columnOrder)
	return out
}

// Header returns the human-readable header for the column, or "" for an
// unrecognized key.
func (k ColumnKey) Header() string {
	return columnHeaders[k]
}

// Valid reports whether k is one of the eight known columns.
func (k ColumnKey) Valid() bool {
	_, ok := columnHeaders[k]
	return ok
}

// String returns the wire name.
func (k ColumnKey) String() string {
	return string(k)
}

// ParseColumnKey resolves a grid document key to a column. It accepts the
// wire name (case-insensitive, '-' or ' ' in place of '_') or the column
// header, where "<=" may stand in for "≤".
func ParseColumnKey(s string) (ColumnKey, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", false
	}

	wire := strings.ToLower(trimmed)
	wire = strings.NewReplacer("-", "_", " ", "_").Replace(wire)
	if key := ColumnKey(wire); key.Valid() {
		return key, true
	}

	if key, ok := headerIndex[normalizeHeader(trimmed)]; ok {
		return key, true
	}
	return "", false
}

// normalizeHeader folds case, whitespace runs and the "<=" spelling so that
// headers exported from spreadsheets resolve to the same column.
func normalizeHeader(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "<=", "≤")
	return strings.Join(strings.Fields(s), " ")
}
