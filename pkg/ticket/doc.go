// Package ticket reads support tickets and turns them into audit input.
//
// Client talks to a Zendesk-compatible REST API using API token basic auth
// ("email/token" as the user name). GetTicket reads
// /api/v2/tickets/{id}.json and ListComments follows the next_page links of
// /api/v2/tickets/{id}/comments.json. Failures are typed: *NotFoundError,
// *AuthError and *APIError.
//
// BuildContext is pure and can be used without a client, for example when
// the ticket UI widget posts the conversation directly:
//
//	tctx := ticket.BuildContext(t, comments, cfg.Ticket.Fields)
//	verdict := engine.Evaluate(table, tctx.Input())
package ticket
