// Package config handles svm.toml tool configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the svm.toml file.
type Config struct {
	Stack StackConfig `toml:"stack"`
	Log   LogConfig   `toml:"log"`
}

// StackConfig sizes the two machine stacks.
type StackConfig struct {
	Depth        int `toml:"depth"`
	ControlDepth int `toml:"control-depth"`
}

// LogConfig configures tool logging.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Default returns the configuration used when no svm.toml is present.
func Default() *Config {
	return &Config{
		Stack: StackConfig{Depth: 256, ControlDepth: 64},
		Log:   LogConfig{Level: "info"},
	}
}

// Load parses the svm.toml at path. A missing file yields the
// defaults; a malformed one is an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if c.Stack.Depth <= 0 || c.Stack.ControlDepth <= 0 {
		return nil, fmt.Errorf("%s: stack depths must be positive", path)
	}
	return c, nil
}

// SlogLevel maps the configured level name to a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Log.Level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", c.Log.Level)
}
