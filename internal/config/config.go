package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Remote       RemoteConfig       `mapstructure:"remote"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Poll         PollConfig         `mapstructure:"poll"`
	Dashboard    DashboardConfig    `mapstructure:"dashboard"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
	Log          LogConfig          `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	TLS  struct {
		Enabled  bool   `mapstructure:"enabled"`
		CertFile string `mapstructure:"cert_file"`
		KeyFile  string `mapstructure:"key_file"`
	} `mapstructure:"tls"`
}

// RemoteConfig holds the upstream security API configuration
type RemoteConfig struct {
	// BaseURL is the root URL of the remote security API
	BaseURL string `mapstructure:"base_url"`
	// Timeout bounds every request to the remote API
	Timeout time.Duration `mapstructure:"timeout"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// PushChannel is the pub/sub channel carrying push events
	PushChannel string `mapstructure:"push_channel"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PollConfig holds the reconciliation polling configuration
type PollConfig struct {
	// Interval is the time between scheduled full fetches
	Interval time.Duration `mapstructure:"interval"`
}

// DashboardConfig holds dashboard aggregation configuration
type DashboardConfig struct {
	// TrendHistory is how many trend points are retained
	TrendHistory int `mapstructure:"trend_history"`
	// CacheTTL is how long the cached dashboard snapshot lives in Redis.
	// Zero disables caching.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// RateLimitingConfig holds rate limiting configuration
type RateLimitingConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	DefaultLimit  int    `mapstructure:"default_limit"`
	DefaultWindow string `mapstructure:"default_window"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set config file name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/guardview")

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Bind environment variables
	v.SetEnvPrefix("GUARDVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Remote.BaseURL == "" {
		return nil, fmt.Errorf("remote.base_url is required")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.tls.enabled", false)

	// Remote API defaults
	v.SetDefault("remote.base_url", "")
	v.SetDefault("remote.timeout", "10s")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.push_channel", "guardview:push")

	// Reconciliation defaults
	v.SetDefault("poll.interval", "30s")

	// Dashboard defaults
	v.SetDefault("dashboard.trend_history", 288)
	v.SetDefault("dashboard.cache_ttl", "5m")

	// Rate limiting defaults
	v.SetDefault("rate_limiting.enabled", true)
	v.SetDefault("rate_limiting.default_limit", 100)
	v.SetDefault("rate_limiting.default_window", "1m")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
