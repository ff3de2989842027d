// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the graph daemon's configuration.
type Config struct {
	// Socket is the Unix socket path the daemon serves on.
	Socket string `yaml:"socket"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Timeline configures the shared transport timeline.
	Timeline TimelineConfig `yaml:"timeline"`

	// Journal configures the on-disk transport journal.
	Journal JournalConfig `yaml:"journal"`
}

// TimelineConfig configures the shared transport timeline.
type TimelineConfig struct {
	// SampleRate is the graph's output sample rate in Hz. The
	// timeline advances its frame counter at this rate while rolling.
	SampleRate uint32 `yaml:"sample_rate"`

	// TickInterval is how often the timeline updates its frame
	// counter, as a Go duration string. Subscribers see position
	// frames at this granularity.
	TickInterval string `yaml:"tick_interval"`

	// FramesPerTick is the graph's frames-per-sequencer-tick ratio,
	// served to clients for position unit conversion.
	FramesPerTick float64 `yaml:"frames_per_tick"`
}

// JournalConfig configures the on-disk transport journal.
type JournalConfig struct {
	// Enabled turns journaling on. When false the daemon keeps no
	// on-disk record of transport commands.
	Enabled bool `yaml:"enabled"`

	// Directory is where journal segments are written.
	Directory string `yaml:"directory"`

	// RotateBytes is the active segment size that triggers rotation.
	RotateBytes int64 `yaml:"rotate_bytes"`

	// KeepSegments is how many rotated (compressed) segments to
	// retain; older ones are removed on rotation. Zero keeps all.
	KeepSegments int `yaml:"keep_segments"`
}

// Default returns the default configuration: a per-user runtime
// socket, 48kHz timeline ticking every 10ms, and journaling into the
// user's state directory.
func Default() *Config {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		runtimeDir = "/tmp"
	}
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Socket:   filepath.Join(runtimeDir, "lockstep", "graph.sock"),
		LogLevel: "info",
		Timeline: TimelineConfig{
			SampleRate:    48000,
			TickInterval:  "10ms",
			FramesPerTick: 480,
		},
		Journal: JournalConfig{
			Enabled:      true,
			Directory:    filepath.Join(homeDir, ".local", "state", "lockstep", "journal"),
			RotateBytes:  1 << 20,
			KeepSegments: 8,
		},
	}
}

// Load loads configuration from the file named by LOCKSTEP_CONFIG.
// Returns defaults if the variable is unset; the config file is
// optional for the graph daemon.
func Load() (*Config, error) {
	path := os.Getenv("LOCKSTEP_CONFIG")
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path, merging over defaults.
//
// The file is the single source of truth; environment variables do
// not override loaded values. The only expansion performed is
// ${VAR} and ${VAR:-default} in path fields, for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} patterns in path fields.
func (c *Config) expandVariables() {
	c.Socket = expandVars(c.Socket)
	c.Journal.Directory = expandVars(c.Journal.Directory)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

// Validate checks the configuration for errors, reporting all of them
// at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Socket == "" {
		errs = append(errs, fmt.Errorf("socket is required"))
	}

	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}

	if c.Timeline.SampleRate == 0 {
		errs = append(errs, fmt.Errorf("timeline.sample_rate is required"))
	} else if c.Timeline.SampleRate > 768000 {
		errs = append(errs, fmt.Errorf("timeline.sample_rate %d exceeds 768kHz", c.Timeline.SampleRate))
	}

	if _, err := c.Timeline.Tick(); err != nil {
		errs = append(errs, err)
	}

	if c.Timeline.FramesPerTick <= 0 {
		errs = append(errs, fmt.Errorf("timeline.frames_per_tick must be positive"))
	}

	if c.Journal.Enabled {
		if c.Journal.Directory == "" {
			errs = append(errs, fmt.Errorf("journal.directory is required when journaling is enabled"))
		}
		if c.Journal.RotateBytes <= 0 {
			errs = append(errs, fmt.Errorf("journal.rotate_bytes must be positive"))
		}
		if c.Journal.KeepSegments < 0 {
			errs = append(errs, fmt.Errorf("journal.keep_segments must not be negative"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Level parses LogLevel into a slog.Level.
func (c *Config) Level() (slog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log_level %q must be one of: debug, info, warn, error", c.LogLevel)
}

// Tick parses TickInterval into a duration.
func (t *TimelineConfig) Tick() (time.Duration, error) {
	interval, err := time.ParseDuration(t.TickInterval)
	if err != nil {
		return 0, fmt.Errorf("timeline.tick_interval: %w", err)
	}
	if interval <= 0 {
		return 0, fmt.Errorf("timeline.tick_interval must be positive, got %s", t.TickInterval)
	}
	return interval, nil
}

// EnsureDirs creates the socket and journal directories.
func (c *Config) EnsureDirs() error {
	dirs := []string{filepath.Dir(c.Socket)}
	if c.Journal.Enabled {
		dirs = append(dirs, c.Journal.Directory)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}
