package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/erpadmin/internal/flagx"
)

var knownFlags = []string{"-a", "-s", "-p", "-r", "-lead", "-timeout", "-log", "-m", "-i"}

// parseFlags populates Config fields from command-line flags. os.Args is
// filtered with flagx.FilterArgs first so flags owned by other parsers
// (-c/-config) do not interfere. It panics on malformed values.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the auth server")
	fs.StringVar(&cfg.StoreDriver, "s", cfg.StoreDriver, "credential store driver (sqlite|redis)")
	fs.StringVar(&cfg.StorePath, "p", cfg.StorePath, "SQLite database path")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "Redis address")
	fs.DurationVar(&cfg.RenewalLeadTime, "lead", cfg.RenewalLeadTime, "renewal lead time")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "gateway request timeout")
	fs.StringVar(&cfg.LogLevel, "log", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.MetricsAddr, "m", cfg.MetricsAddr, "metrics listen address (empty disables)")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
