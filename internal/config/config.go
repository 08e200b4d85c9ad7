// Package config loads launcher defaults from the user's config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	shellwords "github.com/mattn/go-shellwords"
	"github.com/spf13/viper"

	"github.com/easel-graphics/easel/internal/options"
)

// Config holds the persistent launcher defaults. Every field can be
// overridden per-invocation by a CLI flag.
type Config struct {
	// VirtualEnv is the default python virtualenv for sketches.
	VirtualEnv string `mapstructure:"virtualenv" toml:"virtualenv"`
	// Python overrides interpreter discovery entirely.
	Python string `mapstructure:"python" toml:"python"`
	// FPS and Rate are the default export frame rate and bitrate (Mbps).
	FPS  float64 `mapstructure:"fps" toml:"fps"`
	Rate float64 `mapstructure:"rate" toml:"rate"`
	// ExtraArgs is a shell-style string of extra interpreter arguments
	// (for example "-W ignore"), tokenized before use.
	ExtraArgs string `mapstructure:"extra_args" toml:"extra_args"`
	// Color toggles styled terminal output.
	Color bool `mapstructure:"color" toml:"color"`
	// HistoryDB is the session history database path.
	HistoryDB string `mapstructure:"history_db" toml:"history_db"`
	// HistoryKeepDays prunes sessions older than this many days (0 keeps all).
	HistoryKeepDays int `mapstructure:"history_keep_days" toml:"history_keep_days"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		FPS:       options.DefaultFPS,
		Rate:      options.DefaultRate,
		Color:     true,
		HistoryDB: DefaultHistoryPath(),
	}
}

// Dir returns the launcher's config directory (~/.config/easel on Linux).
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "easel")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// DefaultHistoryPath returns the default session database location.
func DefaultHistoryPath() string {
	return filepath.Join(Dir(), "history.db")
}

// Load reads the config file at path, or the default location when path is
// empty. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	defaults := DefaultConfig()
	v.SetDefault("virtualenv", defaults.VirtualEnv)
	v.SetDefault("python", defaults.Python)
	v.SetDefault("fps", defaults.FPS)
	v.SetDefault("rate", defaults.Rate)
	v.SetDefault("extra_args", defaults.ExtraArgs)
	v.SetDefault("color", defaults.Color)
	v.SetDefault("history_db", defaults.HistoryDB)
	v.SetDefault("history_keep_days", defaults.HistoryKeepDays)

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		// The default file is optional; an explicitly named one is not,
		// and a malformed file is always an error.
		if explicit || !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.VirtualEnv = ExpandPath(cfg.VirtualEnv)
	cfg.HistoryDB = ExpandPath(cfg.HistoryDB)
	if cfg.HistoryDB == "" {
		cfg.HistoryDB = DefaultHistoryPath()
	}
	return cfg, nil
}

// ExtraArgv tokenizes ExtraArgs with shell quoting rules.
func (c *Config) ExtraArgv() ([]string, error) {
	if strings.TrimSpace(c.ExtraArgs) == "" {
		return nil, nil
	}
	argv, err := shellwords.Parse(c.ExtraArgs)
	if err != nil {
		return nil, fmt.Errorf("parsing extra_args %q: %w", c.ExtraArgs, err)
	}
	return argv, nil
}

// ExpandPath resolves a leading ~ against the user's home directory.
func ExpandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
