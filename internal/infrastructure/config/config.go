package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the datapump extractor.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Input     InputConfig     `yaml:"input"`
	Live      LiveConfig      `yaml:"live"`
	Store     StoreConfig     `yaml:"store"`
	State     StateConfig     `yaml:"state"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Events    EventsConfig    `yaml:"events"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// InputConfig describes the watch directory and file disposition policy.
type InputConfig struct {
	// Dir is the directory scanned for *.csv measurement files.
	Dir string `yaml:"dir"`

	// MoveFailed enables quarantine: failed files are moved into a
	// "failed" subdirectory instead of being left in place for retry.
	MoveFailed bool `yaml:"move_failed"`

	// QuietPeriod is the minimum file age in seconds before a file is
	// considered fully written and safe to read.
	QuietPeriod int `yaml:"quiet_period"`

	// StartTimestamp is the initial watermark as Unix seconds. Files with
	// a modification time at or before this are considered already processed.
	StartTimestamp int64 `yaml:"start_timestamp"`
}

// LiveConfig contains live-mode polling settings.
type LiveConfig struct {
	// PollInterval is the sleep between scan cycles in seconds.
	PollInterval int `yaml:"poll_interval"`

	// ScanLimit caps the number of files taken per scan cycle.
	ScanLimit int `yaml:"scan_limit"`
}

// StoreConfig contains remote time-series store connection settings.
type StoreConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`

	// BatchMax bounds the number of series entries in a single append call.
	BatchMax int `yaml:"batch_max"`

	// PageSize is the page size used when listing existing series at startup.
	PageSize int `yaml:"page_size"`

	// SeedAttempts bounds the startup series-listing retries.
	SeedAttempts int `yaml:"seed_attempts"`

	// SeedBackoff is the base backoff between seed retries in seconds.
	SeedBackoff int `yaml:"seed_backoff"`
}

// StateConfig contains watermark persistence settings.
type StateConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TelemetryConfig contains InfluxDB telemetry sink settings.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// EventsConfig contains MQTT file-event notification settings.
type EventsConfig struct {
	Enabled bool              `yaml:"enabled"`
	Broker  EventsBrokerConfig `yaml:"broker"`
	Auth    EventsAuthConfig  `yaml:"auth"`
	QoS     int               `yaml:"qos"`
	Topic   string            `yaml:"topic"`
}

// EventsBrokerConfig contains MQTT broker connection details.
type EventsBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
}

// EventsAuthConfig contains MQTT authentication credentials.
type EventsAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DATAPUMP_SECTION_KEY
// For example: DATAPUMP_STORE_API_KEY, DATAPUMP_INPUT_DIR
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOptional builds configuration for callers that layer their own
// overrides on top, such as command-line flags.
//
// When path is empty the file step is skipped and the result is
// defaults plus environment overrides. Unlike Load, no validation runs;
// the caller validates once its overrides are applied.
func LoadOptional(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// Default returns a Config with sensible defaults.
//
// The result is not valid on its own: the input directory and store
// credentials have no usable defaults and must come from the file,
// environment, or command line.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			QuietPeriod: 2,
		},
		Live: LiveConfig{
			PollInterval: 3,
			ScanLimit:    20,
		},
		Store: StoreConfig{
			BatchMax:     1000,
			PageSize:     1000,
			SeedAttempts: 10,
			SeedBackoff:  1,
		},
		State: StateConfig{
			Enabled: true,
			Path:    "./data/datapump.db",
		},
		Events: EventsConfig{
			Broker: EventsBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "datapump",
			},
			QoS:   1,
			Topic: "datapump/events/files",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: DATAPUMP_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATAPUMP_INPUT_DIR"); v != "" {
		cfg.Input.Dir = v
	}
	if v := os.Getenv("DATAPUMP_INPUT_START_TIMESTAMP"); v != "" {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Input.StartTimestamp = ts
		}
	}
	if v := os.Getenv("DATAPUMP_STORE_URL"); v != "" {
		cfg.Store.URL = v
	}
	if v := os.Getenv("DATAPUMP_STORE_API_KEY"); v != "" {
		cfg.Store.APIKey = v
	}
	if v := os.Getenv("DATAPUMP_STATE_PATH"); v != "" {
		cfg.State.Path = v
	}
	if v := os.Getenv("DATAPUMP_TELEMETRY_TOKEN"); v != "" {
		cfg.Telemetry.Token = v
	}
	if v := os.Getenv("DATAPUMP_EVENTS_USERNAME"); v != "" {
		cfg.Events.Auth.Username = v
	}
	if v := os.Getenv("DATAPUMP_EVENTS_PASSWORD"); v != "" {
		cfg.Events.Auth.Password = v
	}
}

// Validate checks the configuration for errors, including that the
// input directory actually exists.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// A missing watch directory must fail startup, not scan forever
	// against nothing.
	if c.Input.Dir == "" {
		errs = append(errs, "input.dir is required")
	} else if info, err := os.Stat(c.Input.Dir); err != nil {
		errs = append(errs, fmt.Sprintf("input.dir %q is not accessible: %v", c.Input.Dir, err))
	} else if !info.IsDir() {
		errs = append(errs, fmt.Sprintf("input.dir %q is not a directory", c.Input.Dir))
	}
	if c.Input.QuietPeriod < 0 {
		errs = append(errs, "input.quiet_period must not be negative")
	}

	if c.Live.PollInterval < 1 {
		errs = append(errs, "live.poll_interval must be at least 1 second")
	}
	if c.Live.ScanLimit < 1 {
		errs = append(errs, "live.scan_limit must be at least 1")
	}

	if c.Store.URL == "" {
		errs = append(errs, "store.url is required")
	}
	if c.Store.APIKey == "" {
		errs = append(errs, "store.api_key is required (set DATAPUMP_STORE_API_KEY environment variable)")
	}
	if c.Store.BatchMax < 1 {
		errs = append(errs, "store.batch_max must be at least 1")
	}
	if c.Store.SeedAttempts < 1 {
		errs = append(errs, "store.seed_attempts must be at least 1")
	}

	if c.State.Enabled && c.State.Path == "" {
		errs = append(errs, "state.path is required when state is enabled")
	}

	if c.Telemetry.Enabled && c.Telemetry.URL == "" {
		errs = append(errs, "telemetry.url is required when telemetry is enabled")
	}

	if c.Events.QoS < 0 || c.Events.QoS > 2 {
		errs = append(errs, "events.qos must be 0, 1, or 2")
	}
	if c.Events.Enabled && c.Events.Topic == "" {
		errs = append(errs, "events.topic is required when events are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetQuietPeriod returns the scanner quiet period as a Duration.
func (c *Config) GetQuietPeriod() time.Duration {
	return time.Duration(c.Input.QuietPeriod) * time.Second
}

// GetPollInterval returns the live-mode poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Live.PollInterval) * time.Second
}

// GetSeedBackoff returns the registry seed base backoff as a Duration.
func (c *Config) GetSeedBackoff() time.Duration {
	return time.Duration(c.Store.SeedBackoff) * time.Second
}

// GetStartTime returns the configured start watermark as a time.Time.
// The zero timestamp maps to the Unix epoch, which precedes any real file.
func (c *Config) GetStartTime() time.Time {
	return time.Unix(c.Input.StartTimestamp, 0)
}
