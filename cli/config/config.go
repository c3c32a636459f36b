// Package config loads the instruct CLI configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides the default config location.
const EnvConfigPath = "INSTRUCTOR_CONFIG"

// Config is the CLI configuration.
type Config struct {
	DefaultTransport string                     `yaml:"default_transport"`
	DefaultModel     string                     `yaml:"default_model"`
	Mode             string                     `yaml:"mode,omitempty"`
	MaxRetries       int                        `yaml:"max_retries,omitempty"`
	LogLevel         string                     `yaml:"log_level,omitempty"`
	Transports       map[string]TransportConfig `yaml:"transports"`
}

// TransportConfig holds per-transport settings.
type TransportConfig struct {
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`

	// Timeout bounds each request, e.g. "60s". Zero means none.
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// RateLimit caps requests per second. Zero means unlimited.
	RateLimit float64 `yaml:"rate_limit,omitempty"`
	// Retries resends rate-limited and 5xx requests before the
	// extraction loop sees the failure.
	Retries int `yaml:"retries,omitempty"`
	// BreakerThreshold opens a circuit breaker after this many consecutive
	// rate-limited or 5xx failures. Zero disables it.
	BreakerThreshold int `yaml:"breaker_threshold,omitempty"`
	// BreakerCooldown is how long the breaker stays open (default 30s).
	BreakerCooldown time.Duration `yaml:"breaker_cooldown,omitempty"`
}

// Default returns the configuration written by "instruct init".
func Default() *Config {
	return &Config{
		DefaultTransport: "openai",
		DefaultModel:     "gpt-4o-mini",
		Mode:             "TOOLS",
		MaxRetries:       2,
		LogLevel:         "warn",
		Transports: map[string]TransportConfig{
			"openai":   {APIKeyEnv: "OPENAI_API_KEY"},
			"together": {APIKeyEnv: "TOGETHER_API_KEY"},
			"anyscale": {APIKeyEnv: "ANYSCALE_API_KEY"},
		},
	}
}

// Dir returns the per-user instructor directory.
//   - macOS/Linux: ~/.instructor
//   - Windows: %USERPROFILE%\.instructor
func Dir() string {
	home := os.Getenv("HOME")
	if runtime.GOOS == "windows" {
		home = os.Getenv("USERPROFILE")
	}
	if home == "" {
		return "."
	}
	return filepath.Join(home, ".instructor")
}

// DefaultConfigPath returns $INSTRUCTOR_CONFIG or ~/.instructor/config.yaml.
func DefaultConfigPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return filepath.Join(Dir(), "config.yaml")
}

// LoadConfig reads the file at path. A missing file yields an empty config.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{Transports: make(map[string]TransportConfig)}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Transports == nil {
		cfg.Transports = make(map[string]TransportConfig)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("parse %s: max_retries must be >= 0", path)
	}
	for name, tc := range cfg.Transports {
		if tc.Timeout < 0 || tc.RateLimit < 0 || tc.Retries < 0 {
			return nil, fmt.Errorf("parse %s: transports.%s: timeout, rate_limit and retries must be >= 0", path, name)
		}
		if tc.BreakerThreshold < 0 || tc.BreakerCooldown < 0 {
			return nil, fmt.Errorf("parse %s: transports.%s: breaker settings must be >= 0", path, name)
		}
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Transport returns the settings for name, or nil.
func (c *Config) Transport(name string) *TransportConfig {
	if c == nil || c.Transports == nil {
		return nil
	}
	if tc, ok := c.Transports[strings.ToLower(name)]; ok {
		return &tc
	}
	return nil
}
