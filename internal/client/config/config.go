package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/erpadmin/internal/client/client"
	"github.com/dmitrijs2005/erpadmin/internal/client/repositories/credentials"
	"github.com/dmitrijs2005/erpadmin/internal/client/session"
	"github.com/dmitrijs2005/erpadmin/internal/logging"
)

const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"

	// EnvConfigPath names the environment variable holding the JSON config path.
	EnvConfigPath = "ERPADMIN_CLIENT_CONFIG"
)

// Config holds runtime settings for the erpadmin client.
type Config struct {
	ServerURL string

	StoreDriver    string
	StorePath      string
	RedisAddr      string
	RedisKeyPrefix string

	RenewalLeadTime    time.Duration
	MinRenewalInterval time.Duration
	RequestTimeout     time.Duration
	FallbackTokenTTL   time.Duration
	ProfileRetries     uint64

	LogLevel   string
	LogBackend string
	LogFormat  string

	MetricsAddr         string
	OnlineCheckInterval time.Duration
}

// DefaultStorePath is the SQLite file under the user's config directory.
func DefaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "erpadmin", "session.db")
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.StoreDriver = StoreSQLite
	c.StorePath = DefaultStorePath()
	c.RedisAddr = "127.0.0.1:6379"
	c.RedisKeyPrefix = credentials.DefaultRedisPrefix
	c.RenewalLeadTime = session.DefaultLeadTime
	c.MinRenewalInterval = 10 * time.Second
	c.RequestTimeout = session.DefaultRequestTimeout
	c.FallbackTokenTTL = session.DefaultFallbackTTL
	c.ProfileRetries = client.DefaultProfileRetries
	c.LogLevel = "info"
	c.LogBackend = logging.BackendSlog
	c.LogFormat = logging.FormatText
	c.MetricsAddr = ""
	c.OnlineCheckInterval = 3 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
