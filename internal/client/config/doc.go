// Package config loads runtime configuration for the erpadmin client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected by -c/-config or ERPADMIN_CLIENT_CONFIG.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string     base URL of the auth server
//	-s string     credential store driver: sqlite or redis
//	-p string     SQLite database path
//	-r string     Redis address
//	-lead dur     renewal lead time, e.g. 5m
//	-timeout dur  request timeout for gateway calls
//	-log string   log level: debug, info, warn, error
//	-m string     address for the Prometheus /metrics listener
//	-i int        online status check interval (seconds)
//
// # JSON schema
//
// Durations use timex.Duration, so they may be strings like "5m" or integer
// nanoseconds. Missing or empty fields keep their previous value:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "store_driver": "sqlite",
//	  "store_path": "/home/me/.config/erpadmin/session.db",
//	  "renewal_lead_time": "5m",
//	  "log_backend": "zerolog",
//	  "log_format": "json"
//	}
package config
