package seriesapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// externalIDKey is the metadata attribute carrying the stable external
// identifier parsed from source column headers.
const externalIDKey = "externalID"

// Series describes a remotely-stored time series.
type Series struct {
	ID          int64             `json:"id,omitempty"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ExternalID returns the external identifier attribute, or "" when the
// series carries none.
func (s Series) ExternalID() string {
	return s.Metadata[externalIDKey]
}

// NewSeries builds a Series for auto-registration of an unknown external
// identifier.
func NewSeries(name, description, externalID string) Series {
	return Series{
		Name:        name,
		Description: description,
		Metadata:    map[string]string{externalIDKey: externalID},
	}
}

// seriesPage is the wire shape of one series listing page.
type seriesPage struct {
	Items      []Series `json:"items"`
	NextCursor string   `json:"nextCursor,omitempty"`
}

// ListSeries fetches one page of the store's series listing.
//
// Pagination is cursor-based: pass "" for the first page, then the
// returned cursor until it comes back empty.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - cursor: Opaque pagination cursor ("" for the first page)
//   - limit: Maximum items per page (0 lets the store pick)
//
// Returns:
//   - []Series: The page items
//   - string: Cursor for the next page ("" when exhausted)
//   - error: If the request fails
func (c *Client) ListSeries(ctx context.Context, cursor string, limit int) ([]Series, string, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	path := "/api/v1/timeseries"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page seriesPage
	if err := c.getJSON(ctx, path, &page); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrListFailed, err)
	}

	return page.Items, page.NextCursor, nil
}

// CreateSeries registers a new series with the store.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - series: Series to create (ID is assigned by the store)
//
// Returns:
//   - error: If the request fails
func (c *Client) CreateSeries(ctx context.Context, series Series) error {
	body := struct {
		Items []Series `json:"items"`
	}{Items: []Series{series}}

	if err := c.postJSON(ctx, "/api/v1/timeseries", body, nil); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrCreateFailed, series.Name, err)
	}
	return nil
}
