package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/erpadmin/internal/flagx"
	"github.com/dmitrijs2005/erpadmin/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for lifetimes, which allows parsing both string
// values such as "15m" and integer nanoseconds.
type JsonConfig struct {
	ListenAddr                   string         `json:"listen_addr"`
	DatabasePath                 string         `json:"database_path"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	AdminUser                    string         `json:"admin_user"`
	AdminPassword                string         `json:"admin_password"`
	LogLevel                     string         `json:"log_level"`
	LogBackend                   string         `json:"log_backend"`
	LogFormat                    string         `json:"log_format"`
}

// parseJson loads configuration values from a JSON file into config.
//
// The file path comes from the -c/-config flags or, failing that, from
// ERPADMIN_SERVER_CONFIG. Values present in the file replace the current
// ones; absent or empty values are left alone. If the file cannot be read or
// contains invalid JSON, the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.ConfigPath(EnvConfigPath)

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	overlay(&config.ListenAddr, c.ListenAddr)
	overlay(&config.DatabasePath, c.DatabasePath)
	overlay(&config.SecretKey, c.SecretKey)
	overlay(&config.AdminUser, c.AdminUser)
	overlay(&config.AdminPassword, c.AdminPassword)
	overlay(&config.LogLevel, c.LogLevel)
	overlay(&config.LogBackend, c.LogBackend)
	overlay(&config.LogFormat, c.LogFormat)

	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
