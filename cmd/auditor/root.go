package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/auditor/pkg/cli"
	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/telemetry/logging"
)

const defaultConfigFile = "config.yaml"

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "auditor",
	Short: "Auditor - refund ticket compliance checks against a decision grid",
	Long: `Auditor compares the refund action a support agent took on a ticket with
the action prescribed by a decision grid.

For every audit it:
  - Matches the conversation to the best grid row
  - Selects the column for the partner type and USD value tier
  - Ranks prescribed and observed actions by severity
  - Classifies the ticket as Compliant or Non-Compliant

Verdicts are stored for querying and export, and can be forwarded to a
spreadsheet or second-checked by an LLM reviewer.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the status for its error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the configuration file with AUDITOR_* overrides. A
// missing default config.yaml means built-in defaults; a missing file named
// with --config is an error.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == defaultConfigFile && !rootCmd.PersistentFlags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// newLogger builds the process logger from the telemetry section and
// installs it as the slog default.
func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	logCfg := logging.ConfigFrom(cfg.Telemetry.Logging)
	logCfg.Writer = w
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return logger.Install().Slog(), nil
}

// commandContext returns the command context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
