// Package engine decides whether the refund action taken on a support ticket
// complies with the decision grid.
//
// Evaluate runs four steps in a fixed order:
//
//  1. ClassifyTier reads the first USD amount in the conversation and buckets
//     it against ThresholdUSD.
//  2. FindBestMatch scores every grid row against the conversation and
//     subject and picks the highest scoring row.
//  3. SelectColumn maps the experience type and tier to one of the eight
//     grid columns.
//  4. BuildVerdict compares the prescribed action in that cell with the
//     observed action and assigns a compliance category.
//
// # Usage
//
//	table, _, err := policy.Parse(data, policy.FormatJSON, policy.Metadata{})
//	if err != nil {
//	    return err
//	}
//	v := engine.Evaluate(table, engine.AuditInput{
//	    ConversationText:   "We issued a partial refund of $50 to the customer.",
//	    Subject:            "Booking 4821 refund request",
//	    ExperienceType:     "Non-Partnered",
//	    ObservedActionText: "partial refund of $50 to the customer",
//	    ConversationCount:  1,
//	})
//	fmt.Println(v.Category) // Compliant
//
// # Determinism
//
// The engine performs no I/O and reads no global state. The same table and
// input always produce an identical Verdict, and a Table may be shared by
// any number of goroutines calling Evaluate concurrently.
//
// A missing match or an unreadable amount is never an error. They surface as
// a nil Verdict.Row, the "Unknown" reasons, TierUnknown, and the
// CategoryRuleMissing category.
package engine
