// Package config provides configuration loading for the compressor.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spherical/pdf-compressor/internal/domain"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the compressor.
type Config struct {
	Compression   CompressionConfig   `yaml:"compression"`
	Server        ServerConfig        `yaml:"server"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// CompressionConfig holds pipeline defaults.
type CompressionConfig struct {
	Preset        string        `yaml:"preset"`  // applied before quality/scale when set
	Quality       int           `yaml:"quality"` // 1..100, clamped
	Scale         float64       `yaml:"scale"`   // 0.5..3.0, clamped
	YieldDelay    time.Duration `yaml:"yield_delay"`
	ObjectStreams bool          `yaml:"object_streams"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	GracefulShutdown  time.Duration `yaml:"graceful_shutdown"`
	MaxUploadSize     int64         `yaml:"max_upload_size"`
	MaxConcurrentJobs int           `yaml:"max_concurrent_jobs"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.ConfigError("read config file", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.ConfigError("parse config file", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, domain.ConfigError("validate config", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with the balanced preset.
func DefaultConfig() *Config {
	return &Config{
		Compression: CompressionConfig{
			Quality:       domain.DefaultQuality,
			Scale:         domain.DefaultScale,
			ObjectStreams: true,
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8090,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      5 * time.Minute,
			IdleTimeout:       120 * time.Second,
			GracefulShutdown:  10 * time.Second,
			MaxUploadSize:     100 * 1024 * 1024,
			MaxConcurrentJobs: 2,
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "console",
			ServiceName: "pdf-compressor",
		},
	}
}

// Validate checks the configuration for errors. Compression values are
// clamped at use, so only the preset name is checked here.
func (c *Config) Validate() error {
	if c.Compression.Preset != "" {
		if _, ok := domain.LookupPreset(c.Compression.Preset); !ok {
			return fmt.Errorf("unknown preset: %s", c.Compression.Preset)
		}
	}

	if c.Compression.YieldDelay < 0 {
		return fmt.Errorf("yield_delay must not be negative")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.MaxUploadSize <= 0 {
		return fmt.Errorf("max_upload_size must be positive")
	}

	if c.Server.MaxConcurrentJobs < 1 {
		return fmt.Errorf("max_concurrent_jobs must be at least 1")
	}

	if c.Observability.LogFormat != "json" && c.Observability.LogFormat != "console" {
		return fmt.Errorf("invalid log format: %s", c.Observability.LogFormat)
	}

	return nil
}

// Settings resolves the configured compression settings, preset first.
func (c *Config) Settings() domain.CompressionSettings {
	settings := domain.CompressionSettings{
		Quality: c.Compression.Quality,
		Scale:   c.Compression.Scale,
	}
	if p, ok := domain.LookupPreset(c.Compression.Preset); ok {
		settings = p.Settings
	}
	return settings.Normalize()
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PDFC_PRESET"); v != "" {
		cfg.Compression.Preset = v
	}

	if v, ok := envInt("PDFC_QUALITY"); ok {
		cfg.Compression.Quality = v
		cfg.Compression.Preset = ""
	}

	if v := os.Getenv("PDFC_SCALE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Compression.Scale = f
			cfg.Compression.Preset = ""
		}
	}

	if v := os.Getenv("PDFC_YIELD_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Compression.YieldDelay = d
		}
	}

	if v := os.Getenv("PDFC_OBJECT_STREAMS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Compression.ObjectStreams = b
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v, ok := envInt("SERVER_PORT"); ok {
		cfg.Server.Port = v
	}

	if v := os.Getenv("MAX_UPLOAD_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Server.MaxUploadSize = n
		}
	}

	if v, ok := envInt("MAX_CONCURRENT_JOBS"); ok {
		cfg.Server.MaxConcurrentJobs = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = strings.ToLower(v)
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
