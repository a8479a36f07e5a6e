package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all netkit configuration.
type Config struct {
	Session      SessionConfig      `yaml:"session" toml:"session"`
	Reachability ReachabilityConfig `yaml:"reachability" toml:"reachability"`
	Logging      LogConfig          `yaml:"logging" toml:"logging"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit" toml:"rate_limit"`
	Breaker      BreakerConfig      `yaml:"breaker" toml:"breaker"`
}

// SessionConfig holds transport session configuration.
type SessionConfig struct {
	BaseURL             string   `envconfig:"NETKIT_BASE_URL" yaml:"base_url" toml:"base_url"`
	Timeout             Duration `envconfig:"NETKIT_TIMEOUT" yaml:"timeout" toml:"timeout"`
	UserAgent           string   `envconfig:"NETKIT_USER_AGENT" yaml:"user_agent" toml:"user_agent"`
	DownloadDir         string   `envconfig:"NETKIT_DOWNLOAD_DIR" yaml:"download_dir" toml:"download_dir"`
	MaxIdleConnsPerHost int      `envconfig:"NETKIT_MAX_IDLE_CONNS_PER_HOST" yaml:"max_idle_conns_per_host" toml:"max_idle_conns_per_host"`
	FailFastWhenOffline bool     `envconfig:"NETKIT_FAIL_FAST_OFFLINE" yaml:"fail_fast_offline" toml:"fail_fast_offline"`
}

// ReachabilityConfig holds reachability monitor configuration.
type ReachabilityConfig struct {
	Host     string   `envconfig:"NETKIT_REACHABILITY_HOST" yaml:"host" toml:"host"`
	Interval Duration `envconfig:"NETKIT_REACHABILITY_INTERVAL" yaml:"interval" toml:"interval"`
	Timeout  Duration `envconfig:"NETKIT_REACHABILITY_TIMEOUT" yaml:"timeout" toml:"timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"NETKIT_LOG_LEVEL" yaml:"level" toml:"level"`
	Development bool   `envconfig:"NETKIT_LOG_DEV" yaml:"development" toml:"development"`
	// Trace logs a span per task and sends X-Trace-ID/X-Span-ID headers
	Trace bool `envconfig:"NETKIT_TRACE" yaml:"trace" toml:"trace"`
}

// RateLimitConfig holds client-side rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64 `envconfig:"NETKIT_RATE_LIMIT_RPS" yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int     `envconfig:"NETKIT_RATE_LIMIT_BURST" yaml:"burst" toml:"burst"`
}

// BreakerConfig holds circuit breaker configuration.
type BreakerConfig struct {
	Enabled             bool     `envconfig:"NETKIT_BREAKER_ENABLED" yaml:"enabled" toml:"enabled"`
	ConsecutiveFailures uint32   `envconfig:"NETKIT_BREAKER_FAILURES" yaml:"consecutive_failures" toml:"consecutive_failures"`
	OpenTimeout         Duration `envconfig:"NETKIT_BREAKER_TIMEOUT" yaml:"open_timeout" toml:"open_timeout"`
}

// Duration is a time.Duration that decodes from strings such as "30s"
// in environment variables, YAML and TOML alike.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load loads configuration from environment variables over the defaults.
func Load() (*Config, error) {
	cfg := Default()
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// LoadFile loads a YAML or TOML file over the defaults, then applies
// environment variables on top, so the environment always wins.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			Timeout:             Duration(60 * time.Second),
			UserAgent:           "netkit/1.0",
			MaxIdleConnsPerHost: 8,
		},
		Reachability: ReachabilityConfig{
			Interval: Duration(5 * time.Second),
			Timeout:  Duration(3 * time.Second),
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			Burst: 1,
		},
		Breaker: BreakerConfig{
			Enabled:             true,
			ConsecutiveFailures: 10,
			OpenTimeout:         Duration(30 * time.Second),
		},
	}
}
