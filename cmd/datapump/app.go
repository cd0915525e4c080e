package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldline/datapump/internal/infrastructure/config"
	"github.com/fieldline/datapump/internal/infrastructure/logging"
	"github.com/fieldline/datapump/internal/infrastructure/mqtt"
	"github.com/fieldline/datapump/internal/infrastructure/seriesapi"
	"github.com/fieldline/datapump/internal/infrastructure/statestore"
	"github.com/fieldline/datapump/internal/infrastructure/telemetry"
	"github.com/fieldline/datapump/internal/pipeline"
	"github.com/fieldline/datapump/internal/processor"
	"github.com/fieldline/datapump/internal/registry"
	"github.com/fieldline/datapump/internal/scanner"
)

// app holds the wired pipeline and everything that needs closing on
// shutdown.
type app struct {
	cfg  *config.Config
	log  *logging.Logger
	pipe *pipeline.Pipeline

	closers []func()
}

// bootstrap wires the full pipeline for one run mode.
//
// Startup order matters: the store connection is verified before
// anything else so a bad URL or key fails fast, and the registry seed
// runs last since it needs the store, telemetry and retry budget in
// place. Optional subsystems (state, telemetry, events) fall back to
// their no-op implementations when disabled.
//
// On error the returned app may be partially built; the caller must
// still Close it.
func bootstrap(ctx context.Context, cmd *cobra.Command, mode string) (*app, error) {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return nil, err
	}

	log := logging.New(cfg.Logging, version, mode)
	log.Info("starting datapump",
		"version", version,
		"commit", commit,
		"input_dir", cfg.Input.Dir,
	)

	a := &app{cfg: cfg, log: log}

	store, err := seriesapi.Connect(ctx, cfg.Store)
	if err != nil {
		return a, fmt.Errorf("connecting to store: %w", err)
	}
	log.Info("store connected", "url", cfg.Store.URL)

	rec := telemetry.Recorder(telemetry.Nop{})
	if cfg.Telemetry.Enabled {
		tc, err := telemetry.Connect(ctx, cfg.Telemetry, mode)
		if err != nil {
			return a, fmt.Errorf("connecting telemetry: %w", err)
		}
		tc.SetOnError(func(err error) {
			log.Warn("telemetry write failed", "error", err)
		})
		a.closers = append(a.closers, func() {
			if err := tc.Close(); err != nil {
				log.Error("closing telemetry", "error", err)
			}
		})
		rec = tc
		log.Info("telemetry connected", "url", cfg.Telemetry.URL)
	}

	// Event publishing is best effort end to end: an unreachable broker
	// downgrades to no events rather than blocking ingestion.
	notify := mqtt.Notifier(mqtt.Nop{})
	if cfg.Events.Enabled {
		mc, err := mqtt.Connect(cfg.Events)
		if err != nil {
			log.Warn("event broker unavailable, continuing without events", "error", err)
		} else {
			mc.SetLogger(log)
			a.closers = append(a.closers, func() {
				if err := mc.Close(); err != nil {
					log.Error("closing event client", "error", err)
				}
			})
			notify = mc
			log.Info("event broker connected",
				"host", cfg.Events.Broker.Host,
				"topic", cfg.Events.Topic,
			)
		}
	}

	state := pipeline.State(pipeline.NopState{})
	if cfg.State.Enabled {
		st, err := statestore.Open(ctx, cfg.State)
		if err != nil {
			return a, fmt.Errorf("opening state store: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := st.Close(); err != nil {
				log.Error("closing state store", "error", err)
			}
		})
		state = st
		log.Info("state store opened", "path", st.Path())
	}

	reg := registry.New(store, rec, cfg.Store, log)
	if err := reg.Seed(ctx); err != nil {
		return a, fmt.Errorf("seeding series registry: %w", err)
	}

	scan := scanner.New(cfg.Input.Dir, cfg.GetQuietPeriod(), log)
	proc := processor.New(reg, store, rec, notify, cfg.Store.BatchMax, cfg.Input.MoveFailed, log)
	a.pipe = pipeline.New(scan, proc, state,
		cfg.GetPollInterval(), cfg.Live.ScanLimit, cfg.GetStartTime(), log)

	return a, nil
}

// Close shuts subsystems down in reverse startup order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
