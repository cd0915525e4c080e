package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/fieldline/datapump/internal/infrastructure/config"
)

// Default timeouts for telemetry operations.
const (
	defaultConnectTimeout = 10 * time.Second

	// millisecondsPerSecond converts seconds to milliseconds for the InfluxDB API.
	millisecondsPerSecond = 1000
)

// Recorder receives ingestion counters. The pipeline records against
// this interface so telemetry can be disabled (Nop) or faked in tests.
//
// Counter failures are never fatal to ingestion.
type Recorder interface {
	// SeriesRegistered records one auto-registered series.
	SeriesRegistered(externalID string)

	// PointsIngested records n delivered datapoints for a series.
	PointsIngested(externalID string, n int)

	// Flush pushes buffered counters. Called after each file completes.
	Flush()
}

// Nop is a Recorder that discards everything. Used when telemetry is
// disabled in config.
type Nop struct{}

func (Nop) SeriesRegistered(string)    {}
func (Nop) PointsIngested(string, int) {}
func (Nop) Flush()                     {}

// Client pushes ingestion counters to InfluxDB.
//
// Writes are non-blocking and batched by the underlying client; Flush
// forces delivery after each processed file. Write failures surface via
// the error callback and never interrupt ingestion.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	mode     string

	connected bool
	mu        sync.RWMutex

	// onError is called when async write errors occur.
	onError func(err error)
}

// Connect establishes a connection to the telemetry InfluxDB.
//
// It performs the following setup:
//  1. Creates the client with token authentication
//  2. Verifies connectivity with a ping
//  3. Configures the non-blocking write API with batching
//
// Parameters:
//   - ctx: Context for the connectivity check
//   - cfg: Telemetry configuration from config.yaml
//   - mode: Run mode ("live" or "historical"), tagged on every counter
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: If telemetry is disabled or connection fails
func Connect(ctx context.Context, cfg config.TelemetryConfig, mode string) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 10
	}

	// #nosec G115 -- values validated above to be positive
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushInterval)*millisecondsPerSecond),
	)

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)

	c := &Client{
		client:    client,
		writeAPI:  writeAPI,
		mode:      mode,
		connected: true,
	}

	// Async write failures are delivered on a channel; forward to the callback.
	errorsCh := writeAPI.Errors()
	go c.handleWriteErrors(errorsCh)

	return c, nil
}

// handleWriteErrors processes async write errors from the WriteAPI.
func (c *Client) handleWriteErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		c.mu.RLock()
		callback := c.onError
		c.mu.RUnlock()

		if callback != nil {
			callback(err)
		}
	}
}

// SeriesRegistered records one auto-registered series.
func (c *Client) SeriesRegistered(externalID string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"series_registered",
		map[string]string{
			"mode":        c.mode,
			"external_id": externalID,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// PointsIngested records n delivered datapoints for a series.
func (c *Client) PointsIngested(externalID string, n int) {
	if !c.IsConnected() || n <= 0 {
		return
	}

	point := write.NewPoint(
		"datapoints_ingested",
		map[string]string{
			"mode":        c.mode,
			"external_id": externalID,
		},
		map[string]interface{}{
			"count": n,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// Flush forces all buffered counters to be sent.
//
// Safe to call after Close() (no-op).
func (c *Client) Flush() {
	if c.writeAPI == nil {
		return
	}

	if !c.IsConnected() {
		return
	}

	c.writeAPI.Flush()
}

// Close gracefully shuts down the telemetry connection.
//
// It flushes any pending counters and closes the underlying client.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	c.writeAPI.Flush()
	c.client.Close()

	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// SetOnError sets a callback to be invoked when async write errors occur.
//
// Since writes are non-blocking, errors are delivered asynchronously.
// Use this callback to log write failures.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = callback
}
