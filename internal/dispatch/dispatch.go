package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/fieldline/datapump/internal/infrastructure/logging"
	"github.com/fieldline/datapump/internal/infrastructure/seriesapi"
	"github.com/fieldline/datapump/internal/infrastructure/telemetry"
)

// ErrFlushFailed indicates a buffered batch could not be delivered. The
// buffer is cleared either way; the batch is gone.
var ErrFlushFailed = errors.New("dispatch: flush failed")

// DefaultBatchMax is the number of buffered series entries that triggers
// an automatic flush.
const DefaultBatchMax = 1000

// Appender is the slice of the store client the dispatcher depends on.
type Appender interface {
	InsertDatapoints(ctx context.Context, batch []seriesapi.SeriesDatapoints) error
}

// Dispatcher accumulates per-series datapoint runs and delivers them to
// the store in bounded batches.
//
// The unit of buffering is one series entry (a name plus its points for
// one file), not one datapoint. When the buffer reaches the batch
// ceiling an automatic flush runs before the next entry is accepted.
// A dispatcher belongs to one file's processing pass and is not safe
// for concurrent use.
type Dispatcher struct {
	store Appender
	rec   telemetry.Recorder
	log   *logging.Logger

	max  int
	buf  []seriesapi.SeriesDatapoints
	lost int
}

// New creates a Dispatcher flushing at max buffered entries. A max of
// zero or less falls back to DefaultBatchMax.
func New(store Appender, rec telemetry.Recorder, max int, log *logging.Logger) *Dispatcher {
	if max <= 0 {
		max = DefaultBatchMax
	}
	return &Dispatcher{
		store: store,
		rec:   rec,
		log:   log.With("component", "dispatch"),
		max:   max,
	}
}

// Add buffers one series entry, flushing first if the buffer is full.
//
// Empty runs are dropped without touching the buffer. When the
// capacity-triggered flush fails its error is returned, but the new
// entry is still buffered; the caller decides whether a lost batch
// fails the file.
func (d *Dispatcher) Add(ctx context.Context, name string, points []seriesapi.Datapoint) error {
	if len(points) == 0 {
		return nil
	}

	var flushErr error
	if len(d.buf) >= d.max {
		flushErr = d.Flush(ctx)
	}

	d.buf = append(d.buf, seriesapi.SeriesDatapoints{
		Name:       name,
		Datapoints: points,
	})

	return flushErr
}

// Flush delivers the buffered entries and clears the buffer.
//
// The buffer is cleared even when delivery fails, so a poisoned batch
// cannot wedge the pipeline; the failure is counted and reported via
// Lost. An empty buffer is a no-op.
func (d *Dispatcher) Flush(ctx context.Context) error {
	if len(d.buf) == 0 {
		return nil
	}

	batch := d.buf
	d.buf = nil

	if err := d.store.InsertDatapoints(ctx, batch); err != nil {
		d.lost++
		d.log.Error("dropping undeliverable batch", "entries", len(batch), "error", err)
		return fmt.Errorf("%w: %d entries: %w", ErrFlushFailed, len(batch), err)
	}

	for _, entry := range batch {
		d.rec.PointsIngested(entry.Name, len(entry.Datapoints))
	}

	return nil
}

// Buffered reports the number of series entries awaiting delivery.
func (d *Dispatcher) Buffered() int {
	return len(d.buf)
}

// Lost reports how many batches were dropped after failed delivery.
func (d *Dispatcher) Lost() int {
	return d.lost
}
