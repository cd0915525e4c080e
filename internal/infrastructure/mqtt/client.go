package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/fieldline/datapump/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2
)

// Notifier publishes per-file ingestion events. The pipeline depends on
// this interface so event publishing can be disabled (Nop) or faked in
// tests.
type Notifier interface {
	// FileProcessed publishes one event describing a disposed file.
	FileProcessed(event FileEvent)
}

// FileEvent describes the outcome of processing one input file.
type FileEvent struct {
	Path        string    `json:"path"`
	Points      int       `json:"points"`
	Disposition string    `json:"disposition"` // deleted, quarantined, retained
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Nop is a Notifier that discards everything. Used when events are
// disabled in config.
type Nop struct{}

func (Nop) FileProcessed(FileEvent) {}

// Client publishes ingestion events to an MQTT broker.
//
// It wraps paho.mqtt.golang with connection management and automatic
// reconnection. Publish failures are logged by the caller and never
// interrupt ingestion.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client pahomqtt.Client
	cfg    config.EventsConfig

	connected bool
	mu        sync.RWMutex

	// logger for publish failure logging (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Connect establishes a connection to the MQTT broker.
//
// It performs the following setup:
//  1. Builds connection options from config (broker URL, auth)
//  2. Sets up auto-reconnect
//  3. Attempts initial connection with timeout
//
// Parameters:
//   - cfg: Events configuration from config.yaml
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: If events are disabled or the initial connection fails
func Connect(cfg config.EventsConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	opts := buildClientOptions(cfg)

	c := &Client{cfg: cfg}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.mu.Lock()
		c.connected = true
		c.mu.Unlock()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()

		c.loggerMu.RLock()
		log := c.logger
		c.loggerMu.RUnlock()
		if log != nil {
			log.Warn("event broker disconnected", "error", err)
		}
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	return c, nil
}

// buildClientOptions creates paho MQTT options from the events config.
func buildClientOptions(cfg config.EventsConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	brokerURL := fmt.Sprintf("tcp://%s:%d", cfg.Broker.Host, cfg.Broker.Port)
	opts.AddBroker(brokerURL)

	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	return opts
}

// FileProcessed publishes one file event to the configured topic.
//
// Events are best-effort: marshal or publish failures are logged and
// dropped.
func (c *Client) FileProcessed(event FileEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		c.logError("encoding file event", err)
		return
	}

	if err := c.publish(c.cfg.Topic, payload); err != nil {
		c.logError("publishing file event", err)
	}
}

// publish sends a payload to the given topic with the configured QoS.
func (c *Client) publish(topic string, payload []byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if c.cfg.QoS > maxQoS {
		return ErrInvalidQoS
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, byte(c.cfg.QoS), false, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// Close disconnects from the broker, allowing pending operations to finish.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	c.client.Disconnect(defaultDisconnectQuiesce)
	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// SetLogger sets an optional logger for publish failures.
func (c *Client) SetLogger(log Logger) {
	c.loggerMu.Lock()
	defer c.loggerMu.Unlock()
	c.logger = log
}

func (c *Client) logError(msg string, err error) {
	c.loggerMu.RLock()
	log := c.logger
	c.loggerMu.RUnlock()
	if log != nil {
		log.Error(msg, "error", err)
	}
}
