// Package policy defines the decision grid that audits are evaluated against.
//
// A grid is a flat, ordered list of scenario rows. Each row names a scenario
// family (L1) and sub-scenario (L2), carries free-form matching keywords, and
// prescribes a refund action for each of eight columns. A column is the cross
// product of the customer's experience type (Partnered, Non-Partnered, Social
// Media Partnered, Social Media Non-Partnered) and the booking value tier
// (at most USD 125, or above it).
//
// # Loading
//
// Grids arrive as JSON or YAML documents from a policy source (see the source
// subpackage). Parse decodes the document, validates every row against an
// embedded JSON Schema, and builds an immutable Table:
//
//	table, report, err := policy.Parse(data, policy.FormatJSON, policy.Metadata{Source: "file"})
//	if err != nil {
//	    return err
//	}
//	for _, issue := range report.Quarantined {
//	    log.Printf("row %d rejected: %s", issue.Index, issue.Reason)
//	}
//
// Rows that fail the schema are quarantined and excluded from the table. Rows
// with an empty L1 or L2 are kept, since they can still match on keywords,
// and are reported as warnings.
//
// # Row order
//
// Table order is significant. The matcher keeps the earliest row on score
// ties, so Parse and NewTable preserve document order exactly.
//
// # Thread Safety
//
// A Table is never mutated after construction and may be shared by any
// number of concurrent audits.
package policy
