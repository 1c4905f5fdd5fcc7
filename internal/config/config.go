// Package config provides configuration management for the demuxer engine
// using Viper, in the layering jmylchreest-tvarr's internal/config package
// uses: defaults, then a config file, then environment variables, merged
// by Viper itself rather than hand-rolled precedence logic.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultReadSize            = 64 * 1024
	defaultRingCapacity        = 30
	defaultLogLevel            = "info"
	defaultMemoryWatchdogBytes = 512 * 1024 * 1024
	defaultWatchdogInterval    = "5s"
)

// Config holds all configuration for an embedding program such as
// cmd/mkvprobe; a library caller driving Controller directly can ignore
// this package entirely and construct a Controller straight from
// explicit values.
type Config struct {
	Engine    EngineConfig    `mapstructure:"engine"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Watchdog  WatchdogConfig  `mapstructure:"watchdog"`
}

// EngineConfig controls Controller construction.
type EngineConfig struct {
	// ReadSizeBytes is the initial capacity of the controller's read
	// window. It does not bound individual reads: each fetch reserves at
	// least 32 KiB and reads into all free space in the window, which
	// grows beyond this as elements demand.
	ReadSizeBytes int `mapstructure:"read_size_bytes"`

	// RingCapacity bounds the number of pending FrameDescriptors a
	// single laced block may enqueue before NextFrame has drained them.
	RingCapacity int `mapstructure:"ring_capacity"`
}

// LoggingConfig controls internal/logx's handler construction.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// WatchdogConfig controls the optional internal/diag memory monitor.
type WatchdogConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	MaxRSSBytes    uint64 `mapstructure:"max_rss_bytes"`
	SampleInterval string `mapstructure:"sample_interval"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration and are
// prefixed with MKVDEMUX_, with underscores standing in for the nesting
// dots mapstructure tags use (e.g. MKVDEMUX_ENGINE_READ_SIZE_BYTES).
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("mkvdemux")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/mkvdemux")
		v.AddConfigPath("$HOME/.mkvdemux")
	}

	v.SetEnvPrefix("MKVDEMUX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("engine.read_size_bytes", defaultReadSize)
	v.SetDefault("engine.ring_capacity", defaultRingCapacity)

	v.SetDefault("logging.level", defaultLogLevel)

	v.SetDefault("watchdog.enabled", false)
	v.SetDefault("watchdog.max_rss_bytes", defaultMemoryWatchdogBytes)
	v.SetDefault("watchdog.sample_interval", defaultWatchdogInterval)
}

// Validate checks invariants Viper's Unmarshal cannot enforce on its own.
func (c *Config) Validate() error {
	if c.Engine.ReadSizeBytes <= 0 {
		return fmt.Errorf("engine.read_size_bytes must be positive, got %d", c.Engine.ReadSizeBytes)
	}
	if c.Engine.RingCapacity <= 0 {
		return fmt.Errorf("engine.ring_capacity must be positive, got %d", c.Engine.RingCapacity)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug/info/warn/error, got %q", c.Logging.Level)
	}
	return nil
}
