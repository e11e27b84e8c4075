package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"

	"squill/internal/version"
)

// Daemon contains daemon lifecycle tuning.
type Daemon struct {
	// StartTimeoutSeconds bounds how long ensure-daemon polls for the
	// spawned daemon to become connectable.
	StartTimeoutSeconds int `toml:"start_timeout_seconds"`
	// PollIntervalMillis is the delay between connection attempts while
	// waiting for a spawned daemon.
	PollIntervalMillis int `toml:"poll_interval_millis"`
	// StopOnDisconnect shuts the daemon down once its last client
	// disconnects. Enabled by the LSP proxy path so editors that kill
	// their subprocess do not strand a daemon.
	StopOnDisconnect bool `toml:"stop_on_disconnect"`
}

// Logging contains daemon log output configuration.
type Logging struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	Dir        string `toml:"dir"`
	FilePrefix string `toml:"file_prefix"`
	MaxFiles   int    `toml:"max_files"`
}

// Config centralizes daemon and CLI settings.
type Config struct {
	Daemon  Daemon  `toml:"daemon"`
	Logging Logging `toml:"logging"`
}

// StartTimeout returns the supervisor poll bound as a duration.
func (c *Config) StartTimeout() time.Duration {
	return time.Duration(c.Daemon.StartTimeoutSeconds) * time.Second
}

// PollInterval returns the supervisor poll delay as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Daemon.PollIntervalMillis) * time.Millisecond
}

// Load reads configuration from path, or from the default location when
// path is empty. A missing file at the default location yields defaults; a
// missing file at an explicit path is an error. The resolved path is
// returned alongside the config ("" when defaults were used).
func Load(path string) (*Config, string, error) {
	cfg := Default()

	explicit := strings.TrimSpace(path) != ""
	resolved := strings.TrimSpace(path)
	if !explicit {
		resolved = defaultConfigPath()
	}
	expanded, err := ExpandPath(resolved)
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			cfg.normalize()
			return &cfg, "", nil
		}
		return nil, "", fmt.Errorf("read config %s: %w", expanded, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, "", fmt.Errorf("parse config %s: %w", expanded, err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, expanded, nil
}

// Validate checks settings that would otherwise fail deep inside the
// daemon.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "trace", "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "json", "text", "":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if c.Daemon.StartTimeoutSeconds <= 0 {
		return fmt.Errorf("daemon.start_timeout_seconds must be positive")
	}
	if c.Daemon.PollIntervalMillis <= 0 {
		return fmt.Errorf("daemon.poll_interval_millis must be positive")
	}
	return nil
}

func (c *Config) normalize() {
	if strings.TrimSpace(c.Logging.Dir) != "" {
		if expanded, err := ExpandPath(c.Logging.Dir); err == nil {
			c.Logging.Dir = expanded
		}
	}
	if c.Logging.MaxFiles <= 0 {
		c.Logging.MaxFiles = defaultLogMaxFiles
	}
	if strings.TrimSpace(c.Logging.FilePrefix) == "" {
		c.Logging.FilePrefix = defaultLogFilePrefix
	}
}

// ExpandPath resolves ~ and ~user prefixes and returns an absolute path.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	} else if strings.HasPrefix(trimmed, "~") {
		parts := strings.SplitN(trimmed[1:], "/", 2)
		u, err := user.Lookup(parts[0])
		if err != nil {
			return "", fmt.Errorf("resolve user %q: %w", parts[0], err)
		}
		trimmed = u.HomeDir
		if len(parts) == 2 {
			trimmed = filepath.Join(trimmed, parts[1])
		}
	}
	return filepath.Abs(trimmed)
}

func defaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, version.Tool, version.Tool+".toml")
}
