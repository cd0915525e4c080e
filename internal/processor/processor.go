package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fieldline/datapump/internal/dispatch"
	"github.com/fieldline/datapump/internal/infrastructure/logging"
	"github.com/fieldline/datapump/internal/infrastructure/mqtt"
	"github.com/fieldline/datapump/internal/infrastructure/telemetry"
	"github.com/fieldline/datapump/internal/parser"
	"github.com/fieldline/datapump/internal/scanner"
)

// failedDirName is the quarantine subdirectory for unparseable files.
const failedDirName = "failed"

// File dispositions after a processing pass.
const (
	DispositionDeleted     = "deleted"
	DispositionQuarantined = "quarantined"
	DispositionRetained    = "retained"
)

// ErrDeliveryIncomplete indicates at least one batch from the file was
// lost in delivery. The file stays in place so a later pass can retry.
var ErrDeliveryIncomplete = errors.New("processor: delivery incomplete")

// Resolver maps a column's series key to the store series name.
type Resolver interface {
	Resolve(ctx context.Context, key parser.SeriesKey) (string, error)
}

// Result is the outcome of one file's processing pass.
//
// Disposed reports whether the file left the input directory (deleted
// or quarantined); the watermark may only advance past disposed files.
type Result struct {
	Path        string
	ModTime     time.Time
	Points      int
	Disposition string
	Disposed    bool
	Err         error
}

// Processor turns one scanned file into store insertions and disposes
// of the file afterwards.
type Processor struct {
	parser *parser.Parser
	reg    Resolver
	store  dispatch.Appender
	rec    telemetry.Recorder
	notify mqtt.Notifier
	log    *logging.Logger

	batchMax   int
	moveFailed bool
}

// New creates a Processor.
//
// Parameters:
//   - reg: Series resolver (the registry)
//   - store: Datapoint sink (the store client)
//   - rec: Telemetry counters, Nop when telemetry is disabled
//   - notify: Per-file event notifier, Nop when events are disabled
//   - batchMax: Dispatcher batch ceiling, 0 for the default
//   - moveFailed: Quarantine unparseable files instead of leaving them
//   - log: Parent logger
func New(reg Resolver, store dispatch.Appender, rec telemetry.Recorder, notify mqtt.Notifier, batchMax int, moveFailed bool, log *logging.Logger) *Processor {
	return &Processor{
		parser:     parser.New(log),
		reg:        reg,
		store:      store,
		rec:        rec,
		notify:     notify,
		log:        log.With("component", "processor"),
		batchMax:   batchMax,
		moveFailed: moveFailed,
	}
}

// Process parses one file and delivers its datapoints.
//
// Columns that fail to resolve are skipped with a warning; the rest of
// the file still flows. A parse failure returns parser.ErrMalformed. A
// lost batch returns ErrDeliveryIncomplete so the caller keeps the file
// for a retry, since part of its data never reached the store.
//
// Returns:
//   - int: Datapoints handed to the dispatcher
//   - error: parser.ErrMalformed or ErrDeliveryIncomplete (wrapped)
func (p *Processor) Process(ctx context.Context, path string) (int, error) {
	columns, err := p.parser.Parse(path)
	if err != nil {
		return 0, err
	}

	disp := dispatch.New(p.store, p.rec, p.batchMax, p.log)

	points := 0
	for _, col := range columns {
		if len(col.Points) == 0 {
			continue
		}

		name, err := p.reg.Resolve(ctx, col.Key)
		if err != nil {
			p.log.Warn("skipping unresolvable column",
				"path", path,
				"external_id", col.Key.ExternalID,
				"error", err,
			)
			continue
		}

		// Auto-flush failures surface through Lost below.
		_ = disp.Add(ctx, name, col.Points)
		points += len(col.Points)
	}

	_ = disp.Flush(ctx)

	if lost := disp.Lost(); lost > 0 {
		return points, fmt.Errorf("%w: %s lost %d batches", ErrDeliveryIncomplete, path, lost)
	}

	return points, nil
}

// ProcessFiles runs a processing pass over scanned files in order.
//
// Disposition per file:
//   - success: the file is deleted
//   - malformed: quarantined to the failed/ subdirectory when enabled,
//     otherwise left in place
//   - delivery incomplete: left in place for a later pass
//
// Telemetry counters are flushed and one event is published after each
// file. Context cancellation stops the pass between files; files not
// reached are absent from the results.
func (p *Processor) ProcessFiles(ctx context.Context, files []scanner.FileInfo) []Result {
	results := make([]Result, 0, len(files))

	for _, file := range files {
		if ctx.Err() != nil {
			break
		}

		points, err := p.Process(ctx, file.Path)
		result := Result{
			Path:    file.Path,
			ModTime: file.ModTime,
			Points:  points,
			Err:     err,
		}

		switch {
		case err == nil:
			result.Disposition, result.Disposed = p.remove(file.Path)
		case errors.Is(err, parser.ErrMalformed):
			result.Disposition, result.Disposed = p.quarantine(file.Path)
		default:
			result.Disposition = DispositionRetained
			p.log.Warn("keeping file after incomplete delivery", "path", file.Path, "error", err)
		}

		p.rec.Flush()
		p.publish(result)
		results = append(results, result)
	}

	return results
}

// remove deletes a fully processed file.
func (p *Processor) remove(path string) (string, bool) {
	if err := os.Remove(path); err != nil {
		p.log.Error("deleting processed file", "path", path, "error", err)
		return DispositionRetained, false
	}
	p.log.Info("processed file deleted", "path", path)
	return DispositionDeleted, true
}

// quarantine moves an unparseable file aside, or leaves it when the
// operator has quarantining disabled.
func (p *Processor) quarantine(path string) (string, bool) {
	if !p.moveFailed {
		p.log.Warn("keeping malformed file", "path", path)
		return DispositionRetained, false
	}

	dir := filepath.Join(filepath.Dir(path), failedDirName)
	if err := os.MkdirAll(dir, 0750); err != nil {
		p.log.Error("creating quarantine directory", "dir", dir, "error", err)
		return DispositionRetained, false
	}

	target := filepath.Join(dir, filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		p.log.Error("quarantining file", "path", path, "error", err)
		return DispositionRetained, false
	}

	p.log.Warn("malformed file quarantined", "path", path, "target", target)
	return DispositionQuarantined, true
}

// publish emits the per-file event. Publishing is best effort.
func (p *Processor) publish(result Result) {
	event := mqtt.FileEvent{
		Path:        result.Path,
		Points:      result.Points,
		Disposition: result.Disposition,
		Timestamp:   time.Now().UTC(),
	}
	if result.Err != nil {
		event.Error = result.Err.Error()
	}
	p.notify.FileProcessed(event)
}
