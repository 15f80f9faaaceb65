package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/auditor/pkg/cli"
	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/policy/source"
	"mercator-hq/auditor/pkg/server"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the audit API server",
	Long: `Start the audit API server with the specified configuration.

The server loads the decision grid, optionally watches it for changes, and
serves audits, stored verdicts, grid status and health probes over HTTP.

Examples:
  # Start with default config
  auditor run

  # Start with custom config
  auditor run --config /etc/auditor/config.yaml

  # Override listen address
  auditor run --listen 0.0.0.0:8080

  # Validate config and grid without starting the server
  auditor run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config and grid without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if runFlags.dryRun {
		return dryRun(commandContext(cmd), out, cfg)
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	a, err := newApp(ctx, cfg, logger, appOptions{})
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("shutdown finished with errors", "error", err)
		}
	}()

	if err := a.policy.Load(ctx); err != nil {
		// The server still starts; audits return 503 until a grid loads.
		logger.Warn("initial grid load failed", "error", err)
	}

	if cfg.Policy.Watch {
		go func() {
			if err := a.policy.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("grid watch stopped", "error", err)
			}
		}()
	}

	if a.pruner != nil {
		if err := a.pruner.Start(ctx); err != nil {
			return cli.NewConfigError("verdicts.retention.prune_schedule", err.Error())
		}
	}

	srv := server.NewServer(cfg, server.Deps{
		Auditor:  a.service,
		Policy:   a.policy,
		Verdicts: a.storage,
		Health:   a.healthChecker(),
		Metrics:  a.collector,
		Logger:   logger,
		Version:  versionInfo(),
	})

	printBanner(out, cfg, a)

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

// dryRun validates the configuration and fetches the grid once.
func dryRun(ctx context.Context, out io.Writer, cfg *config.Config) error {
	fmt.Fprintln(out, "✓ Configuration valid")

	src, err := source.New(ctx, cfg.Policy)
	if err != nil {
		return cli.NewConfigError("policy", err.Error())
	}
	table, report, err := source.Load(ctx, src)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("grid load failed: %w", err))
	}
	fmt.Fprintf(out, "✓ Grid loaded from %s (%d of %d rows, version %s)\n",
		src.Describe(), report.Accepted, report.Total, table.Version())
	if n := len(report.Quarantined); n > 0 {
		fmt.Fprintf(out, "! %d row(s) quarantined; run 'auditor policy lint' for details\n", n)
	}
	return nil
}

func printBanner(w io.Writer, cfg *config.Config, a *app) {
	fmt.Fprintf(w, "Auditor %s\n", Version)
	fmt.Fprintf(w, "  Listen:   %s\n", cfg.Server.ListenAddress)

	status := a.policy.Status()
	if status.Version != "" {
		fmt.Fprintf(w, "  Grid:     %s (%d rows, %s)\n", status.Source, status.Rows, status.Version)
	} else {
		fmt.Fprintf(w, "  Grid:     %s (not loaded)\n", status.Source)
	}

	verdictBackend := "disabled"
	if cfg.Verdicts.Enabled {
		verdictBackend = cfg.Verdicts.Backend
	}
	fmt.Fprintf(w, "  Verdicts: %s\n", verdictBackend)

	tickets := "not configured"
	if a.tickets != nil {
		tickets = cfg.Ticket.BaseURL
	}
	fmt.Fprintf(w, "  Tickets:  %s\n", tickets)

	if cfg.Review.Enabled {
		fmt.Fprintf(w, "  Review:   %s (%s)\n", cfg.Review.Provider, cfg.Review.Model)
	}
	if cfg.Sinks.Sheets.Enabled {
		fmt.Fprintln(w, "  Sheets:   enabled")
	}
}
