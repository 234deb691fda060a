package config

import (
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"
)

type YamlAPNSConfig struct {
	TeamID       string `yaml:"team_id"`
	KeyID        string `yaml:"key_id"`
	KeyFile      string `yaml:"key_file"`
	Topic        string `yaml:"topic"`
	Development  bool   `yaml:"development"`
	TokenRefresh string `yaml:"token_refresh"` // Go duration string, e.g. "30m"
}

type YamlRedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

// YamlConfig is the structure that mirrors the raw config.yaml file.
type YamlConfig struct {
	APNS     YamlAPNSConfig  `yaml:"apns"`
	Redis    YamlRedisConfig `yaml:"redis"`
	CacheTTL string          `yaml:"cache_ttl"`
}

// ParseYamlConfig unmarshals raw YAML bytes into a YamlConfig.
func ParseYamlConfig(data []byte) (*YamlConfig, error) {
	var cfg YamlConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml config: %w", err)
	}
	return &cfg, nil
}

// NewConfigFromYaml converts the YamlConfig into a clean, base Config struct.
func NewConfigFromYaml(baseCfg *YamlConfig, logger *slog.Logger) (*Config, error) {
	logger.Debug("Mapping YAML config to base config struct")

	cfg := &Config{
		APNS: APNSConfig{
			TeamID:      baseCfg.APNS.TeamID,
			KeyID:       baseCfg.APNS.KeyID,
			KeyFile:     baseCfg.APNS.KeyFile,
			Topic:       baseCfg.APNS.Topic,
			Development: baseCfg.APNS.Development,
		},
		Redis: RedisConfig{
			Addr:     baseCfg.Redis.Addr,
			Password: baseCfg.Redis.Password,
			DB:       baseCfg.Redis.DB,
			Enabled:  baseCfg.Redis.Enabled,
		},
	}

	if baseCfg.APNS.TokenRefresh != "" {
		d, err := time.ParseDuration(baseCfg.APNS.TokenRefresh)
		if err != nil {
			return nil, fmt.Errorf("bad apns.token_refresh: %w", err)
		}
		cfg.APNS.TokenRefresh = d
	}
	if baseCfg.CacheTTL != "" {
		d, err := time.ParseDuration(baseCfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("bad cache_ttl: %w", err)
		}
		cfg.CacheTTL = d
	}

	return cfg, nil
}
