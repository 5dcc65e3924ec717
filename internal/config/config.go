// Package config provides application configuration loading and management.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds configuration values loaded from file or environment
// variables.
type Config struct {
	RedisURL         string `mapstructure:"REDIS_URL"`
	FeedPageSize     int    `mapstructure:"FEED_PAGE_SIZE"`
	ProfileCacheSize int    `mapstructure:"PROFILE_CACHE_SIZE"`
	LogLevel         string `mapstructure:"LOG_LEVEL"`
	Env              string `mapstructure:"APP_ENV"`
}

// LoadConfig loads configuration from an optional config.yml plus the
// environment, with sane defaults for everything.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("FEED_PAGE_SIZE", 20)
	viper.SetDefault("PROFILE_CACHE_SIZE", 512)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("APP_ENV", "development")

	// The config file is optional; the environment can carry everything.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env != "" && env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if cfg.FeedPageSize <= 0 {
		cfg.FeedPageSize = 20
	}
	if cfg.ProfileCacheSize <= 0 {
		cfg.ProfileCacheSize = 512
	}
	return &cfg, nil
}
