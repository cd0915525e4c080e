// Package seriesapi is the HTTP client for the remote time-series store.
//
// The store is an opaque service; the pipeline depends on exactly three
// operations:
//
//   - ListSeries: cursor-paginated listing of every series, used to seed
//     the registry cache at startup
//   - CreateSeries: auto-registration of series whose external identifier
//     has not been seen before
//   - InsertDatapoints: bulk append of datapoints, one call per batch
//     flush, all-or-nothing
//
// Authentication is a static API key sent in the api-key header. The
// client performs no retries of its own; bounded retry for the startup
// seed lives in the registry, and everything else relies on file-level
// redelivery.
package seriesapi
