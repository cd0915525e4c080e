package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldline/datapump/internal/infrastructure/config"
)

// errConfig marks failures that are configuration problems rather than
// runtime ones; main maps it to its own exit code.
var errConfig = errors.New("invalid configuration")

// Command-line flags. Flags override both the config file and the
// environment.
var (
	flagConfig     string
	flagInput      string
	flagTimestamp  int64
	flagAPIKey     string
	flagMoveFailed bool
)

var rootCmd = &cobra.Command{
	Use:   "datapump",
	Short: "CSV to time-series store ingestion pipeline",
	Long: `Datapump watches a directory for exported measurement CSV files and
ingests their datapoints into a remote time-series store.

Files are the work queue: a file is deleted once every datapoint it
holds was accepted by the store, quarantined when it cannot be parsed,
and left in place when delivery was incomplete so a later pass retries.

Examples:
  datapump live --input /data/incoming                 # Poll indefinitely
  datapump historical --input /data/backlog            # Drain once and exit
  datapump live -c /etc/datapump/config.yaml -t 1690000000`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVarP(&flagInput, "input", "i", "", "input directory to watch for *.csv files")
	rootCmd.PersistentFlags().Int64VarP(&flagTimestamp, "timestamp", "t", 0, "ignore files modified at or before this Unix timestamp")
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "store API key (prefer DATAPUMP_STORE_API_KEY)")
	rootCmd.PersistentFlags().BoolVar(&flagMoveFailed, "move-failed", false, "quarantine unparseable files into a failed/ subdirectory")

	rootCmd.AddCommand(liveCmd)
	rootCmd.AddCommand(historicalCmd)
}

// buildConfig layers file, environment and command-line flags, then
// validates the result. Any failure here is a config error.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadOptional(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}

	flags := cmd.Flags()
	if flagInput != "" {
		cfg.Input.Dir = flagInput
	}
	if flags.Changed("timestamp") {
		cfg.Input.StartTimestamp = flagTimestamp
	}
	if flagAPIKey != "" {
		cfg.Store.APIKey = flagAPIKey
	}
	if flags.Changed("move-failed") {
		cfg.Input.MoveFailed = flagMoveFailed
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}

	return cfg, nil
}
