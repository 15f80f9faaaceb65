/*
Package cli provides helpers shared by the auditor command: output
formatting, exit codes, progress reporting and signal handling.

Output Formatting:

Commands accept --format text|json. Results that implement TextRenderer
print their own terminal layout; everything else is printed with %v:

	format, err := cli.ParseFormat(flags.format)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), result)

Exit Codes:

ExitCode maps command errors to process status: 2 for ConfigError, 3 for
FindingsError, 1 for anything else.

Progress Reporting:

	progress := cli.NewProgressReporter(os.Stderr, "records")
	progress.Start(total)
	progress.Update(n)
	progress.Finish()

Signal Handling:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()
*/
package cli
