package policy

import (
	"regexp"
	"time"
)

// Row is one scenario of the decision grid.
type Row struct {
	// L1 is the scenario family (e.g. "Cancel before start").
	L1 string `json:"L1" yaml:"L1"`

	// L2 is the sub-scenario within the family.
	L2 string `json:"L2" yaml:"L2"`

	// Keywords are free-form matching hints, in document order.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// Actions holds the prescribed refund action text per column.
	// A missing entry means no action is prescribed for that column.
	Actions map[ColumnKey]string `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// fallbackWords marks rows authored as the catch-all for empty conversations.
var fallbackWords = regexp.MustCompile(`(?i)\b(unknown|default|other)\b`)

// Action returns the prescribed action for col, or "" when none is set.
func (r Row) Action(col ColumnKey) string {
	if r.Actions == nil {
		return ""
	}
	return r.Actions[col]
}

// IsFallback reports whether L1 or L2 contains one of the words "unknown",
// "default" or "other".
func (r Row) IsFallback() bool {
	return fallbackWords.MatchString(r.L1) || fallbackWords.MatchString(r.L2)
}

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	out := Row{L1: r.L1, L2: r.L2}
	if r.Keywords != nil {
		out.Keywords = make([]string, len(r.Keywords))
		copy(out.Keywords, r.Keywords)
	}
	if r.Actions != nil {
		out.Actions = make(map[ColumnKey]string, len(r.Actions))
		for k, v := range r.Actions {
			out.Actions[k] = v
		}
	}
	return out
}

// Metadata describes where a table came from.
type Metadata struct {
	// Version identifies the grid revision (commit SHA, ETag, or content digest).
	Version string

	// Source names the policy source that produced the grid.
	Source string

	// LoadedAt is when the grid was parsed.
	LoadedAt time.Time
}

// Table is an immutable, ordered decision grid.
type Table struct {
	rows []Row
	meta Metadata
}

// NewTable builds a table from rows, preserving their order. The rows are
// copied, so later changes by the caller do not affect the table.
func NewTable(rows []Row, meta Metadata) *Table {
	copied := make([]Row, len(rows))
	for i, row := range rows {
		copied[i] = row.Clone()
	}
	if meta.LoadedAt.IsZero() {
		meta.LoadedAt = time.Now().UTC()
	}
	return &Table{rows: copied, meta: meta}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Row returns the row at index i. The returned value shares its Keywords
// slice and Actions map with the table; callers must treat them as read-only.
func (t *Table) Row(i int) Row {
	return t.rows[i]
}

// Rows returns a deep copy of every row in table order.
func (t *Table) Rows() []Row {
	if t == nil {
		return nil
	}
	out := make([]Row, len(t.rows))
	for i, row := range t.rows {
		out[i] = row.Clone()
	}
	return out
}

// Version returns the grid revision.
func (t *Table) Version() string { return t.meta.Version }

// Source returns the name of the source that produced the grid.
func (t *Table) Source() string { return t.meta.Source }

// LoadedAt returns when the grid was parsed.
func (t *Table) LoadedAt() time.Time { return t.meta.LoadedAt }

// Metadata returns the table metadata.
func (t *Table) Metadata() Metadata { return t.meta }
