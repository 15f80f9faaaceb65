package storage

import "fmt"

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// schema returns the DDL for d. Statements are separated so drivers that
// refuse multi-statement Exec (lib/pq with parameters, sqlmock) still work.
func schema(d *dialect) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS verdicts (
    id TEXT PRIMARY KEY,
    ticket_id TEXT NOT NULL DEFAULT '',
    booking_ref TEXT NOT NULL DEFAULT '',

    audit_date TEXT NOT NULL,
    audited_at %[1]s NOT NULL,

    category TEXT NOT NULL,
    value_tier TEXT NOT NULL,
    l1_reason TEXT NOT NULL DEFAULT '',
    l2_reason TEXT NOT NULL DEFAULT '',
    column_key TEXT NOT NULL DEFAULT '',
    column_header TEXT NOT NULL DEFAULT '',
    experience_type TEXT NOT NULL DEFAULT '',
    outcome TEXT NOT NULL DEFAULT '',
    expected_action TEXT NOT NULL DEFAULT '',
    observed_action TEXT NOT NULL DEFAULT '',
    explanation TEXT NOT NULL DEFAULT '',
    confidence TEXT NOT NULL DEFAULT '',

    match_score INTEGER NOT NULL DEFAULT 0,
    fallback BOOLEAN NOT NULL DEFAULT FALSE,
    policy_version TEXT NOT NULL DEFAULT '',

    review_agrees BOOLEAN,
    review_rationale TEXT NOT NULL DEFAULT '',
    error TEXT NOT NULL DEFAULT ''
)`, d.timestampType),
		`CREATE INDEX IF NOT EXISTS idx_verdicts_audited_at ON verdicts(audited_at)`,
		`CREATE INDEX IF NOT EXISTS idx_verdicts_ticket_id ON verdicts(ticket_id)`,
		`CREATE INDEX IF NOT EXISTS idx_verdicts_category ON verdicts(category)`,
		`CREATE INDEX IF NOT EXISTS idx_verdicts_booking_ref ON verdicts(booking_ref)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, d.timestampType),
	}
}

const (
	insertSchemaVersion = `INSERT INTO schema_version (version) VALUES (?) ON CONFLICT DO NOTHING`
	getSchemaVersion    = `SELECT MAX(version) FROM schema_version`
)

// recordColumns lists the verdicts columns in scan order.
const recordColumns = `id, ticket_id, booking_ref, audit_date, audited_at,
    category, value_tier, l1_reason, l2_reason, column_key, column_header,
    experience_type, outcome, expected_action, observed_action, explanation,
    confidence, match_score, fallback, policy_version,
    review_agrees, review_rationale, error`
