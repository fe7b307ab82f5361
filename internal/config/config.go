// Package config loads page-diff settings: built-in defaults, then an
// optional YAML file, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/baxromumarov/page-diff/internal/content"
)

// Configuration validation errors.
var (
	ErrMissingAddr         = errors.New("server.addr is required")
	ErrInvalidTimeout      = errors.New("fetch.timeout must be positive")
	ErrInvalidMaxBodyBytes = errors.New("fetch.max_body_bytes must be positive")
	ErrInvalidContextLines = errors.New("diff.context_lines must not be negative")
	ErrInvalidLogLevel     = errors.New("logging.level must be one of: debug, info, warn, error")
)

const (
	DefaultAddr         = ":5050"
	DefaultContextLines = 3
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Diff    DiffConfig    `yaml:"diff"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type FetchConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	UserAgent     string        `yaml:"user_agent"`
	MaxBodyBytes  int           `yaml:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots"`
}

// DiffConfig controls normalization and diff output. Mode is "collapse"
// (whole page on one line) or "blocks" (one line per block element).
type DiffConfig struct {
	Mode         string `yaml:"mode"`
	ContextLines int    `yaml:"context_lines"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Fetch: FetchConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "page-diff/1.0",
			MaxBodyBytes: 10 * 1024 * 1024,
		},
		Diff: DiffConfig{
			Mode:         string(content.ModeCollapse),
			ContextLines: DefaultContextLines,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	if v := os.Getenv("PAGEDIFF_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("PAGEDIFF_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.AllowedOrigins = origins
	}
	if v := os.Getenv("PAGEDIFF_FETCH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PAGEDIFF_FETCH_TIMEOUT: %w", err)
		}
		c.Fetch.Timeout = d
	}
	if v := os.Getenv("PAGEDIFF_USER_AGENT"); v != "" {
		c.Fetch.UserAgent = v
	}
	if v := os.Getenv("PAGEDIFF_MAX_BODY_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PAGEDIFF_MAX_BODY_BYTES: %w", err)
		}
		c.Fetch.MaxBodyBytes = n
	}
	if v := os.Getenv("PAGEDIFF_RESPECT_ROBOTS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PAGEDIFF_RESPECT_ROBOTS: %w", err)
		}
		c.Fetch.RespectRobots = b
	}
	if v := os.Getenv("PAGEDIFF_MODE"); v != "" {
		c.Diff.Mode = v
	}
	if v := os.Getenv("PAGEDIFF_CONTEXT_LINES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PAGEDIFF_CONTEXT_LINES: %w", err)
		}
		c.Diff.ContextLines = n
	}
	if v := os.Getenv("PAGEDIFF_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return ErrMissingAddr
	}
	if c.Fetch.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return ErrInvalidMaxBodyBytes
	}
	if _, err := content.ParseMode(c.Diff.Mode); err != nil {
		return fmt.Errorf("diff.mode: %w", err)
	}
	if c.Diff.ContextLines < 0 {
		return ErrInvalidContextLines
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// Mode returns the parsed default normalization mode.
func (c *Config) Mode() content.Mode {
	mode, err := content.ParseMode(c.Diff.Mode)
	if err != nil {
		return content.ModeCollapse
	}
	return mode
}

func (c *Config) LogLevel() slog.Level {
	level, err := parseLevel(c.Logging.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, ErrInvalidLogLevel
	}
}
