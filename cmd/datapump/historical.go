package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var historicalCmd = &cobra.Command{
	Use:   "historical",
	Short: "Drain the input directory backlog once and exit",
	Long: `Historical mode processes every settled file in the input directory
once, oldest first and without a scan limit, then exits. Use it to
backfill an archive before switching to live mode.`,
	Args: cobra.NoArgs,
	RunE: runHistorical,
}

func runHistorical(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := bootstrap(ctx, cmd, "historical")
	if a != nil {
		defer a.Close()
	}
	if err != nil {
		return err
	}

	summary, err := a.pipe.RunHistorical(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return err
	}

	if summary.Retained > 0 {
		return fmt.Errorf("backlog pass left %d of %d files unprocessed", summary.Retained, summary.Files)
	}
	return nil
}
