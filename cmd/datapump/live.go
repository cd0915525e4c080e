package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Poll the input directory and ingest new files indefinitely",
	Long: `Live mode polls the input directory on an interval, newest files
first, with a per-cycle scan limit. A watermark tracks how far ingestion
has progressed so a restart does not reprocess disposed files; with
state persistence enabled the watermark survives restarts.`,
	Args: cobra.NoArgs,
	RunE: runLive,
}

func runLive(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := bootstrap(ctx, cmd, "live")
	if a != nil {
		defer a.Close()
	}
	if err != nil {
		return err
	}

	err = a.pipe.RunLive(ctx)
	if errors.Is(err, context.Canceled) {
		// Operator shutdown, not a failure.
		return nil
	}
	return err
}
