package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fieldline/datapump/internal/infrastructure/logging"
	"github.com/fieldline/datapump/internal/processor"
	"github.com/fieldline/datapump/internal/scanner"
)

// State persists the live-mode watermark across restarts. The zero
// watermark (found=false) means no previous run is on record.
type State interface {
	Watermark(ctx context.Context) (time.Time, bool, error)
	SetWatermark(ctx context.Context, t time.Time) error
}

// NopState is a State that remembers nothing. Used when persistence is
// disabled; every restart then begins from the configured start time.
type NopState struct{}

func (NopState) Watermark(context.Context) (time.Time, bool, error) { return time.Time{}, false, nil }
func (NopState) SetWatermark(context.Context, time.Time) error      { return nil }

// Summary aggregates one processing pass.
type Summary struct {
	Files       int
	Points      int
	Deleted     int
	Quarantined int
	Retained    int
}

// Pipeline wires the scanner and processor into the two run modes.
type Pipeline struct {
	scan  *scanner.Scanner
	proc  *processor.Processor
	state State
	log   *logging.Logger

	pollInterval time.Duration
	scanLimit    int
	start        time.Time
}

// New creates a Pipeline.
//
// Parameters:
//   - scan: Directory scanner
//   - proc: File processor
//   - state: Watermark persistence, NopState when disabled
//   - pollInterval: Sleep between live-mode scan cycles
//   - scanLimit: Maximum files per live-mode cycle
//   - start: Files modified at or before this instant are never ingested
//   - log: Parent logger
func New(scan *scanner.Scanner, proc *processor.Processor, state State, pollInterval time.Duration, scanLimit int, start time.Time, log *logging.Logger) *Pipeline {
	return &Pipeline{
		scan:         scan,
		proc:         proc,
		state:        state,
		log:          log.With("component", "pipeline"),
		pollInterval: pollInterval,
		scanLimit:    scanLimit,
		start:        start,
	}
}

// RunHistorical processes the backlog once, oldest first, and returns a
// summary of the pass. There is no scan limit; the pass covers every
// settled file newer than the configured start time.
func (p *Pipeline) RunHistorical(ctx context.Context) (Summary, error) {
	files, err := p.scan.List(p.start, 0, false)
	if err != nil {
		return Summary{}, fmt.Errorf("scanning backlog: %w", err)
	}

	p.log.Info("historical pass starting", "files", len(files))
	results := p.proc.ProcessFiles(ctx, files)
	summary := summarize(results)

	p.log.Info("historical pass complete",
		"files", summary.Files,
		"points", summary.Points,
		"deleted", summary.Deleted,
		"quarantined", summary.Quarantined,
		"retained", summary.Retained,
	)

	return summary, ctx.Err()
}

// RunLive polls the input directory until the context is cancelled.
//
// Each cycle scans newest-first up to the scan limit, processes what it
// finds, then advances and persists the watermark. The watermark only
// moves past files whose disposition completed, so a retained file is
// revisited on the next cycle rather than silently skipped.
func (p *Pipeline) RunLive(ctx context.Context) error {
	watermark := p.start
	if persisted, found, err := p.state.Watermark(ctx); err != nil {
		return fmt.Errorf("loading watermark: %w", err)
	} else if found && persisted.After(watermark) {
		watermark = persisted
		p.log.Info("resuming from persisted watermark", "watermark", watermark)
	}

	p.log.Info("live mode starting", "poll_interval", p.pollInterval, "scan_limit", p.scanLimit)

	for {
		files, err := p.scan.List(watermark, p.scanLimit, true)
		if err != nil {
			p.log.Error("scan failed, retrying next cycle", "error", err)
		} else if len(files) > 0 {
			results := p.proc.ProcessFiles(ctx, files)
			summary := summarize(results)
			p.log.Info("cycle complete",
				"files", summary.Files,
				"points", summary.Points,
				"retained", summary.Retained,
			)

			advanced := AdvanceWatermark(watermark, files, results, p.scanLimit)
			if advanced.After(watermark) {
				watermark = advanced
				if err := p.state.SetWatermark(ctx, watermark); err != nil {
					p.log.Error("persisting watermark", "error", err)
				}
			}
		}

		select {
		case <-ctx.Done():
			p.log.Info("live mode stopping")
			return ctx.Err()
		case <-time.After(p.pollInterval):
		}
	}
}

// AdvanceWatermark computes the new watermark after one live cycle.
//
// The watermark moves to the largest modification time M such that
// every scanned file with modification time at or below M was disposed
// (deleted or quarantined). A retained file pins the watermark, and a
// cycle that hit the scan limit never advances it, since older
// qualifying files may have been cut off by the limit. The result is
// never earlier than the current watermark.
func AdvanceWatermark(current time.Time, files []scanner.FileInfo, results []processor.Result, scanLimit int) time.Time {
	if scanLimit > 0 && len(files) >= scanLimit {
		return current
	}

	disposed := make(map[string]bool, len(results))
	for _, r := range results {
		disposed[r.Path] = r.Disposed
	}

	ordered := make([]scanner.FileInfo, len(files))
	copy(ordered, files)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ModTime.Before(ordered[j].ModTime)
	})

	watermark := current
	for _, f := range ordered {
		if !disposed[f.Path] {
			break
		}
		if f.ModTime.After(watermark) {
			watermark = f.ModTime
		}
	}

	return watermark
}

// summarize folds per-file results into a Summary.
func summarize(results []processor.Result) Summary {
	s := Summary{Files: len(results)}
	for _, r := range results {
		s.Points += r.Points
		switch r.Disposition {
		case processor.DispositionDeleted:
			s.Deleted++
		case processor.DispositionQuarantined:
			s.Quarantined++
		default:
			s.Retained++
		}
	}
	return s
}
