package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/auditor/pkg/cli"
	"mercator-hq/auditor/pkg/policy"
	"mercator-hq/auditor/pkg/policy/source"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect and validate decision grids",
	Long: `Inspect and validate decision grids.

A grid is a JSON or YAML list of scenario rows. Each row has L1 and L2
titles, optional matching keywords, and a prescribed action per column.`,
}

var lintFlags struct {
	file   string
	strict bool
	format string
}

var policyLintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate a grid file",
	Long: `Validate a decision grid file.

Rows that are not objects or fail the row schema are quarantined and would
be left out of the active grid. Accepted rows with non-fatal problems
(unknown columns, duplicate keywords) are reported as warnings.

Exit status is 3 when any row is quarantined, or with --strict when any
warning is reported.

Examples:
  # Lint a grid
  auditor policy lint --file grid.json

  # Fail on warnings too
  auditor policy lint --file grid.yaml --strict

  # JSON output for CI/CD
  auditor policy lint --file grid.json --format json`,
	RunE: lintPolicy,
}

var showFlags struct {
	format string
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the grid from the configured source",
	Long: `Fetch the decision grid from the configured policy source and print its
rows and version.

Examples:
  auditor policy show
  auditor policy show --config prod.yaml --format json`,
	RunE: showPolicy,
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyLintCmd, policyShowCmd)

	policyLintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "grid file to validate (.json, .yaml, .yml)")
	policyLintCmd.Flags().BoolVar(&lintFlags.strict, "strict", false, "treat warnings as errors")
	policyLintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")

	policyShowCmd.Flags().StringVar(&showFlags.format, "format", "text", "output format: text, json")
}

// lintResult is the output of policy lint.
type lintResult struct {
	File    string             `json:"file"`
	Format  policy.Format      `json:"format"`
	Version string             `json:"version,omitempty"`
	Valid   bool               `json:"valid"`
	Error   string             `json:"error,omitempty"`
	Report  *policy.LoadReport `json:"report,omitempty"`
}

func (r lintResult) problems(strict bool) int {
	if r.Report == nil {
		return 0
	}
	n := len(r.Report.Quarantined)
	if strict {
		n += len(r.Report.Warnings)
	}
	return n
}

func (r lintResult) RenderText(w io.Writer) error {
	mark := "✓"
	if !r.Valid {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s (%s)\n", mark, r.File, r.Format)
	if r.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", r.Error)
	}
	if r.Report == nil {
		return nil
	}
	fmt.Fprintf(w, "  rows: %d accepted of %d\n", r.Report.Accepted, r.Report.Total)
	if r.Version != "" {
		fmt.Fprintf(w, "  version: %s\n", r.Version)
	}
	for _, issue := range r.Report.Quarantined {
		fmt.Fprintf(w, "  quarantined: %s\n", issue)
	}
	for _, issue := range r.Report.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", issue)
	}
	return nil
}

func lintPolicy(cmd *cobra.Command, args []string) error {
	if lintFlags.file == "" {
		return cli.NewConfigError("file", "--file must be specified")
	}
	format, err := cli.ParseFormat(lintFlags.format)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(lintFlags.file)
	if err != nil {
		return cli.NewCommandError("policy lint", fmt.Errorf("failed to read grid: %w", err))
	}

	result := lintResult{File: lintFlags.file, Format: policy.FormatFromPath(lintFlags.file)}
	table, report, parseErr := policy.Parse(data, result.Format, policy.Metadata{Source: "file:" + lintFlags.file})
	result.Report = report
	if parseErr != nil {
		result.Error = parseErr.Error()
	} else {
		result.Version = table.Version()
	}
	problems := result.problems(lintFlags.strict)
	result.Valid = parseErr == nil && problems == 0

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), result); err != nil {
		return err
	}

	switch {
	case errors.Is(parseErr, policy.ErrNoRows):
		return &cli.FindingsError{Command: "policy lint", Count: max(problems, 1)}
	case parseErr != nil:
		return cli.NewCommandError("policy lint", parseErr)
	case problems > 0:
		return &cli.FindingsError{Command: "policy lint", Count: problems}
	}
	return nil
}

// gridView is the output of policy show.
type gridView struct {
	Source   string             `json:"source"`
	Version  string             `json:"version"`
	LoadedAt time.Time          `json:"loaded_at"`
	Rows     []policy.Row       `json:"rows"`
	Report   *policy.LoadReport `json:"report"`
}

func (g gridView) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "Source:  %s\n", g.Source)
	fmt.Fprintf(w, "Version: %s\n", g.Version)
	fmt.Fprintf(w, "Rows:    %d accepted of %d\n\n", g.Report.Accepted, g.Report.Total)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tL1\tL2\tKEYWORDS\tACTIONS")
	for i, row := range g.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d/%d\n", i, row.L1, row.L2,
			strings.Join(row.Keywords, ", "), len(row.Actions), len(policy.Columns()))
	}
	return tw.Flush()
}

func showPolicy(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(showFlags.format)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	src, err := source.New(ctx, cfg.Policy)
	if err != nil {
		return cli.NewConfigError("policy", err.Error())
	}
	table, report, err := source.Load(ctx, src)
	if err != nil {
		return cli.NewCommandError("policy show", err)
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), gridView{
		Source:   src.Describe(),
		Version:  table.Version(),
		LoadedAt: table.LoadedAt(),
		Rows:     table.Rows(),
		Report:   report,
	})
}
