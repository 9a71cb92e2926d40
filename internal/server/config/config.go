// Package config handles configuration for the development auth server,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"time"

	"github.com/dmitrijs2005/erpadmin/internal/logging"
)

// EnvConfigPath names the environment variable holding the JSON config path.
const EnvConfigPath = "ERPADMIN_SERVER_CONFIG"

// Config holds runtime settings for the erpadmin development auth server.
//
// Fields:
//   - ListenAddr: bind address for the HTTP API.
//   - DatabasePath: SQLite file holding users and refresh tokens (":memory:" keeps them in RAM).
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - AdminUser / AdminPassword: account seeded on startup when missing.
type Config struct {
	ListenAddr                   string
	DatabasePath                 string
	SecretKey                    string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	AdminUser                    string
	AdminPassword                string
	LogLevel                     string
	LogBackend                   string
	LogFormat                    string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":8080"
	c.DatabasePath = ":memory:"
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 24 * time.Hour
	c.AdminUser = "admin"
	c.AdminPassword = "admin"
	c.LogLevel = "info"
	c.LogBackend = logging.BackendSlog
	c.LogFormat = logging.FormatJSON
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
