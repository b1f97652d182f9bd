/*
Package cli provides the helpers shared by the sovereign command.

Output Formatting:

Command results render as text, JSON or CSV. Values that implement Table
render as rows under CSV and as aligned columns under text:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, check); err != nil {
		return err
	}

Progress Reporting:

Audit exports report how many entries have been written:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(total)
	progress.Update(written)
	progress.Finish()

Exit Codes:

ExitCode maps governance errors to process exit codes so scripts can tell
a denial from a missing record or a bad configuration.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()
*/
package cli
