// Auditor checks how support agents resolved refund tickets against a
// decision grid of prescribed actions.
//
// Each audit selects the grid row that best matches the conversation,
// picks the column for the booking's partner type and value tier, and
// compares the prescribed action with the action the agent took.
//
// Usage:
//
//	# Start the audit API with the default configuration
//	auditor run
//
//	# Start with a custom configuration file
//	auditor run --config /etc/auditor/config.yaml
//
//	# Audit one ticket from the command line
//	auditor audit --ticket 4821
//
//	# Audit caller-supplied input
//	auditor audit --input conversation.json --format json
//
//	# Validate a decision grid
//	auditor policy lint --file grid.json
//
//	# Export stored verdicts
//	auditor verdicts export --format csv --output verdicts.csv
package main

func main() {
	Execute()
}
