package seriesapi

import (
	"context"
	"fmt"
)

// Datapoint is one timestamped value.
// Timestamp is integer milliseconds since the Unix epoch.
type Datapoint struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// SeriesDatapoints pairs a series name with an ordered run of datapoints
// to append.
type SeriesDatapoints struct {
	Name       string      `json:"name"`
	Datapoints []Datapoint `json:"datapoints"`
}

// InsertDatapoints appends datapoints for multiple series in one call.
//
// The append is all-or-nothing from the caller's perspective: an error
// carries no partial-success information, so the whole batch must be
// treated as undelivered.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - batch: Series entries with their datapoint runs
//
// Returns:
//   - error: If the request fails
func (c *Client) InsertDatapoints(ctx context.Context, batch []SeriesDatapoints) error {
	if len(batch) == 0 {
		return nil
	}

	body := struct {
		Items []SeriesDatapoints `json:"items"`
	}{Items: batch}

	if err := c.postJSON(ctx, "/api/v1/timeseries/data", body, nil); err != nil {
		return fmt.Errorf("%w: %d series entries: %w", ErrInsertFailed, len(batch), err)
	}
	return nil
}
