package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/erpadmin/internal/flagx"
	"github.com/dmitrijs2005/erpadmin/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	ServerURL           string         `json:"server_url"`
	StoreDriver         string         `json:"store_driver"`
	StorePath           string         `json:"store_path"`
	RedisAddr           string         `json:"redis_addr"`
	RedisKeyPrefix      string         `json:"redis_key_prefix"`
	RenewalLeadTime     timex.Duration `json:"renewal_lead_time"`
	MinRenewalInterval  timex.Duration `json:"min_renewal_interval"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	FallbackTokenTTL    timex.Duration `json:"fallback_token_ttl"`
	ProfileRetries      *uint64        `json:"profile_retries"`
	LogLevel            string         `json:"log_level"`
	LogBackend          string         `json:"log_backend"`
	LogFormat           string         `json:"log_format"`
	MetricsAddr         string         `json:"metrics_addr"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
}

// parseJson overlays cfg with the JSON file named by -c/-config or
// ERPADMIN_CLIENT_CONFIG. It panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	path := flagx.ConfigPath(EnvConfigPath)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}
	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.StoreDriver, jc.StoreDriver)
	setString(&cfg.StorePath, jc.StorePath)
	setString(&cfg.RedisAddr, jc.RedisAddr)
	setString(&cfg.RedisKeyPrefix, jc.RedisKeyPrefix)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogBackend, jc.LogBackend)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.MetricsAddr, jc.MetricsAddr)

	setDuration(&cfg.RenewalLeadTime, jc.RenewalLeadTime)
	setDuration(&cfg.MinRenewalInterval, jc.MinRenewalInterval)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.FallbackTokenTTL, jc.FallbackTokenTTL)
	setDuration(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)

	if jc.ProfileRetries != nil {
		cfg.ProfileRetries = *jc.ProfileRetries
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
