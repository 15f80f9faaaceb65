package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/auditor/pkg/audit"
	"mercator-hq/auditor/pkg/cli"
	"mercator-hq/auditor/pkg/engine"
)

var auditFlags struct {
	ticketID   string
	input      string
	bookingRef string
	format     string
	noSinks    bool
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit one ticket",
	Long: `Audit a single ticket against the configured decision grid.

Either fetch the ticket from the ticket system with --ticket, or supply the
conversation yourself with --input. The input file holds the same JSON as
the "input" form of POST /v1/audits:

  {
    "input": {
      "conversation_text": "We issued a partial refund of $50.",
      "subject": "Booking 4821 refund request",
      "experience_type": "Non-Partnered",
      "conversation_count": 1
    },
    "booking_ref": "BK-4821"
  }

The verdict is stored and forwarded to the configured sinks unless
--no-sinks is set.

Examples:
  # Audit a ticket from the ticket system
  auditor audit --ticket 4821

  # Audit input from a file, printing JSON
  auditor audit --input conversation.json --format json

  # Read input from stdin without recording the verdict
  cat conversation.json | auditor audit --input - --no-sinks`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVarP(&auditFlags.ticketID, "ticket", "t", "", "ticket ID to fetch and audit")
	auditCmd.Flags().StringVarP(&auditFlags.input, "input", "i", "", "JSON input file, or - for stdin")
	auditCmd.Flags().StringVar(&auditFlags.bookingRef, "booking-ref", "", "booking reference for --input audits")
	auditCmd.Flags().StringVar(&auditFlags.format, "format", "text", "output format: text, json")
	auditCmd.Flags().BoolVar(&auditFlags.noSinks, "no-sinks", false, "do not store or forward the verdict")
}

func runAudit(cmd *cobra.Command, args []string) error {
	if (auditFlags.ticketID == "") == (auditFlags.input == "") {
		return cli.NewConfigError("ticket", "exactly one of --ticket or --input must be specified")
	}
	format, err := cli.ParseFormat(auditFlags.format)
	if err != nil {
		return err
	}

	var req audit.Request
	if auditFlags.input != "" {
		if req, err = readAuditRequest(auditFlags.input, cmd.InOrStdin()); err != nil {
			return err
		}
		if auditFlags.bookingRef != "" {
			req.BookingRef = auditFlags.bookingRef
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	a, err := newApp(ctx, cfg, logger, appOptions{skipSinks: auditFlags.noSinks})
	if err != nil {
		return cli.NewCommandError("audit", err)
	}
	defer a.Close()

	if err := a.policy.Load(ctx); err != nil {
		return cli.NewCommandError("audit", err)
	}

	var result *audit.Result
	if auditFlags.ticketID != "" {
		result, err = a.service.AuditTicket(ctx, auditFlags.ticketID)
	} else {
		result, err = a.service.AuditInput(ctx, req)
	}
	if err != nil {
		return cli.NewCommandError("audit", err)
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), auditReport{result})
}

func readAuditRequest(path string, stdin io.Reader) (audit.Request, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return audit.Request{}, cli.NewConfigError("input", err.Error())
		}
		defer f.Close()
		r = f
	}

	var req audit.Request
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return audit.Request{}, cli.NewConfigError("input", fmt.Sprintf("invalid audit input: %v", err))
	}
	return req, nil
}

// auditReport prints an audit result for a terminal.
type auditReport struct {
	*audit.Result
}

// MarshalJSON keeps the JSON output identical to POST /v1/audits.
func (r auditReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Result)
}

func (r auditReport) RenderText(w io.Writer) error {
	rec := r.Record
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s  %s\n", categoryMark(rec.Category), rec.Category)
	fmt.Fprintf(&sb, "  Booking:     %s\n", rec.BookingRef)
	if rec.TicketID != "" {
		fmt.Fprintf(&sb, "  Ticket:      %s\n", rec.TicketID)
	}
	fmt.Fprintf(&sb, "  Scenario:    %s / %s (score %d)\n", rec.L1Reason, rec.L2Reason, rec.MatchScore)
	fmt.Fprintf(&sb, "  Column:      %s\n", rec.ColumnHeader)
	fmt.Fprintf(&sb, "  Value tier:  %s\n", rec.ValueTier)
	fmt.Fprintf(&sb, "  Expected:    %s\n", orDash(rec.ExpectedAction))
	fmt.Fprintf(&sb, "  Observed:    %s\n", orDash(rec.ObservedAction))
	fmt.Fprintf(&sb, "  Outcome:     %s\n", rec.Outcome)
	fmt.Fprintf(&sb, "  Confidence:  %s\n", rec.Confidence)
	if rec.Explanation != "" {
		fmt.Fprintf(&sb, "  Explanation: %s\n", rec.Explanation)
	}
	if rec.ReviewAgrees != nil {
		fmt.Fprintf(&sb, "  Review:      agrees=%t %s\n", *rec.ReviewAgrees, rec.ReviewRationale)
	}
	if rec.Error != "" {
		fmt.Fprintf(&sb, "  Review error: %s\n", rec.Error)
	}
	for _, f := range r.SinkErrors {
		fmt.Fprintf(&sb, "  ! sink %s failed: %s\n", f.Sink, f.Error)
	}
	fmt.Fprintf(&sb, "  Record:      %s (grid %s)\n", rec.ID, rec.PolicyVersion)

	_, err := io.WriteString(w, sb.String())
	return err
}

func categoryMark(category string) string {
	if category == string(engine.CategoryCompliant) {
		return "✓"
	}
	return "✗"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
