// Datapump ingests measurement CSV files into a remote time-series
// store.
//
// It watches an input directory for exported CSV files, parses each one
// into per-series datapoint runs, registers unknown series with the
// store, and delivers the points in bounded batches. Files are deleted
// once their data is safely stored and quarantined when they cannot be
// parsed, so the directory itself is the work queue.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
)

// Process exit codes. Config problems get their own code so wrapper
// scripts can tell a bad deployment from a runtime failure.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// Cancel the root context on interrupt signals (Ctrl+C, SIGTERM) so
	// the live loop can finish its current file and persist state.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		os.Exit(exitOK)
	}

	fmt.Fprintf(os.Stderr, "datapump: %v\n", err)
	if errors.Is(err, errConfig) {
		os.Exit(exitConfig)
	}
	os.Exit(exitRuntime)
}
