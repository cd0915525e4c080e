package seriesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fieldline/datapump/internal/infrastructure/config"
)

// Default timeouts for store operations.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultRequestTimeout = 30 * time.Second
)

// Client talks to the remote time-series store over its JSON HTTP API.
//
// The store exposes three operations the pipeline depends on: a paginated
// listing of all series, series creation, and a bulk datapoint append.
// Append calls are all-or-nothing; the response carries no partial-success
// information.
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines. The pipeline itself is single-threaded, so this is not
// load-bearing, but matches the rest of the infrastructure layer.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// Connect creates a store client and verifies connectivity.
//
// It performs the following:
//  1. Validates config (empty URL returns ErrConnectionFailed)
//  2. Creates an HTTP client
//  3. Verifies connectivity and credentials via GET /api/v1/status
//
// Parameters:
//   - ctx: Context for cancellation (used for the status check)
//   - cfg: Store configuration from config.yaml
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: If the store is unreachable or rejects the credential
func Connect(ctx context.Context, cfg config.StoreConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: no URL configured", ErrConnectionFailed)
	}

	c := &Client{
		url:    strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
	}

	statusCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	if err := c.HealthCheck(statusCtx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return c, nil
}

// HealthCheck verifies the store is reachable and the credential is accepted.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/api/v1/status", nil)
	if err != nil {
		return fmt.Errorf("store health check: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("store health check: %w", err)
	}
	defer resp.Body.Close()
	// Drain body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("store health check: status %d", resp.StatusCode)
	}

	return nil
}

// setHeaders applies authentication and content headers to a request.
func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
}

// postJSON marshals body and POSTs it to the given path, decoding the
// response into out when out is non-nil. Non-2xx responses are returned
// as errors carrying the status code and response text.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}

	if out == nil {
		// Drain body to allow connection reuse
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// getJSON GETs path and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// maxErrorBody caps how much of an error response body is read back
// into error messages.
const maxErrorBody = 4096
