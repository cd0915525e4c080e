// Package config loads and validates the datapump configuration.
//
// Configuration is read from a YAML file, merged over hardcoded
// defaults, and finally overridden by DATAPUMP_* environment
// variables. Validation collects every problem into a single error so
// a misconfigured deployment fails fast with a full report.
//
// # Configuration
//
//	input:
//	  dir: "/data/incoming"      # watch directory (required)
//	  move_failed: false         # quarantine failed files under failed/
//	  quiet_period: 2            # seconds a file must be idle before reading
//	  start_timestamp: 0         # initial watermark, Unix seconds
//	live:
//	  poll_interval: 3           # seconds between scan cycles
//	  scan_limit: 20             # files per live scan cycle
//	store:
//	  url: "https://tsdb.example.com"
//	  api_key: ""                # set DATAPUMP_STORE_API_KEY instead
//	  batch_max: 1000            # series entries per append call
//	logging:
//	  level: "info"              # debug, info, warn, error
//	  format: "json"             # json, text
//	  output: "stdout"           # stdout, stderr
//
// # Security
//
// Never commit the store API key or MQTT credentials to the config
// file; supply them through the environment.
package config
