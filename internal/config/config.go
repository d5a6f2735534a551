// Package config provides Viper-based configuration management for collabctl
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete collabctl configuration
type Config struct {
	API       APIConfig       `mapstructure:"api" json:"api"`
	Session   SessionConfig   `mapstructure:"session" json:"session"`
	Server    ServerConfig    `mapstructure:"server" json:"server"`
	Cache     CacheConfig     `mapstructure:"cache" json:"cache"`
	Logging   LoggingConfig   `mapstructure:"logging" json:"logging"`
	Output    OutputConfig    `mapstructure:"output" json:"output"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" json:"telemetry"`

	// Source is the config file that was read, empty when defaults were used.
	Source string `mapstructure:"-" json:"-"`
}

// APIConfig contains backend connection settings
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url" json:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout" json:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit" json:"rate_limit"`
	Burst     int           `mapstructure:"burst" json:"burst"`
}

// SessionConfig contains session persistence and expiry settings
type SessionConfig struct {
	Store         string        `mapstructure:"store" json:"store"`
	Dir           string        `mapstructure:"dir" json:"dir"`
	RedisURL      string        `mapstructure:"redis_url" json:"redis_url,omitempty"`
	RedisPrefix   string        `mapstructure:"redis_prefix" json:"redis_prefix"`
	CheckInterval time.Duration `mapstructure:"check_interval" json:"check_interval"`
	ExpiryBuffer  time.Duration `mapstructure:"expiry_buffer" json:"expiry_buffer"`
}

// ServerConfig contains local console settings
type ServerConfig struct {
	Addr string `mapstructure:"addr" json:"addr"`
}

// CacheConfig contains query cache settings
type CacheConfig struct {
	TTL  time.Duration `mapstructure:"ttl" json:"ttl"`
	Size int           `mapstructure:"size" json:"size"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Colors bool `mapstructure:"colors" json:"colors"`
}

// TelemetryConfig contains OpenTelemetry settings
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled" json:"enabled"`
	Endpoint    string  `mapstructure:"endpoint" json:"endpoint"`
	ServiceName string  `mapstructure:"service_name" json:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio" json:"sample_ratio"`
}

// Session store kinds
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// LoadDotEnv loads variables from an optional .env file without overriding
// the existing environment.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from file and environment variables
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".collabctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/collabctl")
	}

	// COLLABCTL_API_BASE_URL overrides api.base_url
	v.SetEnvPrefix("COLLABCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Source = v.ConfigFileUsed()

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults configures default values
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:3000/api")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.rate_limit", 10.0)
	v.SetDefault("api.burst", 20)

	v.SetDefault("session.store", StoreFile)
	v.SetDefault("session.dir", defaultSessionDir())
	v.SetDefault("session.redis_url", "")
	v.SetDefault("session.redis_prefix", "collabctl:session")
	v.SetDefault("session.check_interval", 5*time.Minute)
	v.SetDefault("session.expiry_buffer", 30*time.Second)

	v.SetDefault("server.addr", "127.0.0.1:8787")

	v.SetDefault("cache.ttl", 30*time.Second)
	v.SetDefault("cache.size", 256)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("output.colors", true)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "collabctl")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// defaultSessionDir is the per-user directory holding session.json
func defaultSessionDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "collabctl")
	}
	return filepath.Join(os.TempDir(), "collabctl")
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api.base_url: %q (must be an http or https URL)", cfg.API.BaseURL)
	}
	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("invalid api.timeout: %s (must be positive)", cfg.API.Timeout)
	}
	if cfg.API.RateLimit < 0 {
		return fmt.Errorf("invalid api.rate_limit: %v (must not be negative)", cfg.API.RateLimit)
	}

	switch cfg.Session.Store {
	case StoreFile:
		if cfg.Session.Dir == "" {
			return fmt.Errorf("session.dir is required for the file store")
		}
	case StoreRedis:
		if cfg.Session.RedisURL == "" {
			return fmt.Errorf("session.redis_url is required for the redis store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("invalid session.store: %s (must be file, redis, or memory)", cfg.Session.Store)
	}
	if cfg.Session.CheckInterval <= 0 {
		return fmt.Errorf("invalid session.check_interval: %s (must be positive)", cfg.Session.CheckInterval)
	}
	if cfg.Session.ExpiryBuffer < 0 {
		return fmt.Errorf("invalid session.expiry_buffer: %s (must not be negative)", cfg.Session.ExpiryBuffer)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", cfg.Logging.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s (must be text or json)", cfg.Logging.Format)
	}

	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("invalid telemetry.sample_ratio: %v (must be between 0 and 1)", cfg.Telemetry.SampleRatio)
	}

	return nil
}
