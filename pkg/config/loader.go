// Package config loads the smoketest configuration file and applies
// environment overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvPluginPaths = "SMOKETEST_PLUGIN_PATHS"
	EnvCertStore   = "SMOKETEST_CERT_STORE"
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		HTTPTimeout: "30s",
		LogLevel:    "info",
		Output: OutputConfig{
			Format: "table",
		},
	}
}

// Load reads and validates a config file. An empty path yields the defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, formatYAMLError(path, err)
		}
	}

	ApplyEnv(cfg, os.Getenv)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from environment variables read through getenv.
// SMOKETEST_PLUGIN_PATHS is a comma separated list appended to plugin_paths.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv(EnvPluginPaths); v != "" {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.PluginPaths = append(cfg.PluginPaths, p)
			}
		}
	}
	if v := getenv(EnvCertStore); v != "" {
		cfg.CertificateStoreDir = v
	}
}

func validate(cfg *Config) error {
	validFormats := map[string]bool{"table": true, "json": true}
	if !validFormats[cfg.Output.Format] {
		return fmt.Errorf("config error: invalid output format %q, must be one of: table, json", cfg.Output.Format)
	}

	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	for key, value := range map[string]string{"http_timeout": cfg.HTTPTimeout, "check_timeout": cfg.CheckTimeout} {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("config error: invalid %s %q: %w", key, value, err)
		}
		if d < 0 {
			return fmt.Errorf("config error: %s must not be negative, got %s", key, value)
		}
	}
	return nil
}

// HTTPTimeoutDuration returns http_timeout, or zero when unset.
func (c *Config) HTTPTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.HTTPTimeout)
	return d
}

// CheckTimeoutDuration returns check_timeout, or zero (unbounded) when unset.
func (c *Config) CheckTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.CheckTimeout)
	return d
}

// Level returns the configured slog level.
func (c *Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

// SetLogLevel overrides the configured log level, rejecting unknown names.
func (c *Config) SetLogLevel(level string) error {
	if _, err := parseLevel(level); err != nil {
		return err
	}
	c.LogLevel = level
	return nil
}

// PluginDirs returns defaultDir followed by the configured plugin paths,
// without duplicates.
func (c *Config) PluginDirs(defaultDir string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, d := range append([]string{defaultDir}, c.PluginPaths...) {
		if d == "" {
			continue
		}
		clean := filepath.Clean(d)
		if seen[clean] {
			continue
		}
		seen[clean] = true
		dirs = append(dirs, clean)
	}
	return dirs
}

// DefaultPluginDir is the plugins directory next to the running executable.
func DefaultPluginDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "plugins"
	}
	return filepath.Join(filepath.Dir(exe), "plugins")
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", s)
}

func formatYAMLError(path string, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "line") {
		return fmt.Errorf("syntax error in %s: %s", path, msg)
	}
	return fmt.Errorf("failed to parse %s: %s", path, msg)
}
