package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fieldline/datapump/internal/infrastructure/config"
	"github.com/fieldline/datapump/internal/infrastructure/logging"
	"github.com/fieldline/datapump/internal/infrastructure/seriesapi"
	"github.com/fieldline/datapump/internal/infrastructure/telemetry"
	"github.com/fieldline/datapump/internal/parser"
	"github.com/fieldline/datapump/internal/retry"
)

// autoDescription marks series the pipeline registered itself because
// the external identifier was not found in the store.
const autoDescription = "Auto-generated time series, external ID not found"

// API is the slice of the store client the registry depends on.
type API interface {
	ListSeries(ctx context.Context, cursor string, limit int) ([]seriesapi.Series, string, error)
	CreateSeries(ctx context.Context, series seriesapi.Series) error
}

// Registry maps external identifiers from column headers to the series
// names the store expects on datapoint insertion.
//
// The map is seeded once from the store's full series listing and then
// grows as unknown identifiers are auto-registered. Series in the store
// that carry no external identifier are invisible to the pipeline.
//
// Thread Safety:
//   - Resolve is safe for concurrent use; Seed is not and runs once at
//     startup before any file is processed.
type Registry struct {
	api API
	rec telemetry.Recorder
	log *logging.Logger

	pageSize int
	attempts int
	backoff  time.Duration

	mu    sync.RWMutex
	names map[string]string
}

// New creates a Registry over the given store API.
func New(api API, rec telemetry.Recorder, cfg config.StoreConfig, log *logging.Logger) *Registry {
	return &Registry{
		api:      api,
		rec:      rec,
		log:      log.With("component", "registry"),
		pageSize: cfg.PageSize,
		attempts: cfg.SeedAttempts,
		backoff:  time.Duration(cfg.SeedBackoff) * time.Second,
		names:    make(map[string]string),
	}
}

// Seed loads the store's existing series into the registry.
//
// The listing is paginated; each page fetch is retried with incremental
// backoff before the seed as a whole fails. A failed seed is fatal to
// startup, since resolving against an empty registry would re-register
// every series in the store.
func (r *Registry) Seed(ctx context.Context) error {
	cursor := ""
	loaded := 0
	skipped := 0

	for {
		var (
			items []seriesapi.Series
			next  string
		)
		err := retry.Do(ctx, r.attempts, r.backoff, func() error {
			var pageErr error
			items, next, pageErr = r.api.ListSeries(ctx, cursor, r.pageSize)
			if pageErr != nil {
				r.log.Warn("series listing page failed, retrying", "error", pageErr)
			}
			return pageErr
		})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSeedFailed, err)
		}

		for _, s := range items {
			extID := s.ExternalID()
			if extID == "" {
				skipped++
				continue
			}
			r.names[extID] = s.Name
			loaded++
		}

		if next == "" {
			break
		}
		cursor = next
	}

	r.log.Info("series registry seeded", "series", loaded, "without_external_id", skipped)
	return nil
}

// Resolve returns the store series name for a column key, registering a
// new series when the external identifier is unknown.
//
// Auto-registered series take the column's display name and carry the
// external identifier as metadata, so a later seed finds them again.
// Resolve is idempotent: concurrent calls for the same unknown
// identifier register it once.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - key: Series identity parsed from the column header
//
// Returns:
//   - string: Store series name to insert datapoints under
//   - error: ErrResolveFailed (wrapped) if registration fails
func (r *Registry) Resolve(ctx context.Context, key parser.SeriesKey) (string, error) {
	r.mu.RLock()
	name, ok := r.names[key.ExternalID]
	r.mu.RUnlock()
	if ok {
		return name, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another caller may have registered it between the two locks.
	if name, ok := r.names[key.ExternalID]; ok {
		return name, nil
	}

	series := seriesapi.NewSeries(key.Name, autoDescription, key.ExternalID)
	if err := r.api.CreateSeries(ctx, series); err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrResolveFailed, key.ExternalID, err)
	}

	r.names[key.ExternalID] = key.Name
	r.rec.SeriesRegistered(key.ExternalID)
	r.log.Info("registered new series", "external_id", key.ExternalID, "name", key.Name)

	return key.Name, nil
}

// Len reports the number of known series.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}
