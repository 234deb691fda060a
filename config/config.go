// Package config holds the configuration surface for binaries embedding the
// APNs client: YAML as the base, environment variables as overrides,
// validated last.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

type APNSConfig struct {
	TeamID       string
	KeyID        string
	KeyFile      string
	Topic        string
	Development  bool
	TokenRefresh time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// Config defines the *single*, authoritative configuration.
type Config struct {
	APNS     APNSConfig
	Redis    RedisConfig
	CacheTTL time.Duration
}

// UpdateConfigWithEnvOverrides applies environment variables and final validation.
func UpdateConfigWithEnvOverrides(cfg *Config, logger *slog.Logger) (*Config, error) {
	logger.Debug("Applying environment variable overrides...")

	// 1. Apply Environment Overrides
	if val := os.Getenv("APNS_TEAM_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "APNS_TEAM_ID", "source", "env")
		cfg.APNS.TeamID = val
	}
	if val := os.Getenv("APNS_KEY_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "APNS_KEY_ID", "source", "env")
		cfg.APNS.KeyID = val
	}
	if val := os.Getenv("APNS_KEY_FILE"); val != "" {
		logger.Debug("Overriding config value", "key", "APNS_KEY_FILE", "source", "env")
		cfg.APNS.KeyFile = val
	}
	if val := os.Getenv("APNS_TOPIC"); val != "" {
		logger.Debug("Overriding config value", "key", "APNS_TOPIC", "source", "env")
		cfg.APNS.Topic = val
	}
	if val := os.Getenv("APNS_DEVELOPMENT"); val != "" {
		dev, _ := strconv.ParseBool(val)
		cfg.APNS.Development = dev
	}
	if val := os.Getenv("APNS_TOKEN_REFRESH"); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			logger.Debug("Overriding config value", "key", "APNS_TOKEN_REFRESH", "source", "env")
			cfg.APNS.TokenRefresh = d
		}
	}

	// Redis Overrides
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		cfg.Redis.Addr = val
		cfg.Redis.Enabled = true
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = db
		}
	}
	if val := os.Getenv("REDIS_ENABLED"); val != "" {
		enabled, _ := strconv.ParseBool(val)
		cfg.Redis.Enabled = enabled
	}

	// 2. Final Validation
	if cfg.APNS.TeamID == "" {
		return nil, fmt.Errorf("apns.team_id is required (set via YAML or APNS_TEAM_ID env var)")
	}
	if cfg.APNS.KeyID == "" {
		return nil, fmt.Errorf("apns.key_id is required (set via YAML or APNS_KEY_ID env var)")
	}
	if cfg.APNS.KeyFile == "" {
		return nil, fmt.Errorf("apns.key_file is required (set via YAML or APNS_KEY_FILE env var)")
	}
	if cfg.APNS.Topic == "" {
		return nil, fmt.Errorf("apns.topic is required (set via YAML or APNS_TOPIC env var)")
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}
