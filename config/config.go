// Package config loads process configuration from PHO_* environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/Capmega/phoundation-sub014/log"
)

// Prefix is the environment variable prefix.
const Prefix = "PHO"

// Config holds all configuration.
type Config struct {
	Log    LogConfig    `envconfig:"LOG"`
	FS     FSConfig     `envconfig:"FS"`
	System SystemConfig `envconfig:"SYSTEM"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LEVEL" default:"info"`
	Development bool   `envconfig:"DEVELOPMENT" default:"false"`
}

// FSConfig holds filesystem operation defaults.
type FSConfig struct {
	// BufferSize is the chunk size for streamed reads (line and word counts).
	BufferSize int `envconfig:"BUFFER_SIZE" default:"1048576"`

	// MaxLineLength bounds a single line returned by ReadLine and Grep.
	MaxLineLength int `envconfig:"MAX_LINE_LENGTH" default:"8192"`

	// StatCacheWindow is how long a cached stat stays valid. Zero disables caching.
	StatCacheWindow time.Duration `envconfig:"STAT_CACHE_WINDOW" default:"1s"`

	DirMode  os.FileMode `envconfig:"DIR_MODE" default:"0750"`
	FileMode os.FileMode `envconfig:"FILE_MODE" default:"0640"`

	// Sudo is the command prefix used for privileged tool invocations.
	Sudo []string `envconfig:"SUDO" default:"sudo"`

	SecureDeletePasses int `envconfig:"SECURE_DELETE_PASSES" default:"3"`

	// RunDir holds the run-file markers guarding concurrent deletes.
	RunDir string `envconfig:"RUN_DIR" default:"/tmp/phofs/run"`

	ToolTimeout time.Duration `envconfig:"TOOL_TIMEOUT" default:"5m"`

	// TargetAttempts caps collision retries of CopyToTarget and MoveToTarget.
	TargetAttempts int `envconfig:"TARGET_ATTEMPTS" default:"1000"`

	// NotMountedMarker is a file name that only exists in a mount point
	// directory while nothing is mounted on top of it.
	NotMountedMarker string `envconfig:"NOT_MOUNTED_MARKER" default:".not-mounted"`
}

// SystemConfig describes the process-wide default restrictions.
type SystemConfig struct {
	Label     string   `envconfig:"LABEL" default:"system"`
	ReadDirs  []string `envconfig:"READ_DIRS"`
	WriteDirs []string `envconfig:"WRITE_DIRS"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from the environment or returns Default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		FS: FSConfig{
			BufferSize:         1 << 20,
			MaxLineLength:      8192,
			StatCacheWindow:    time.Second,
			DirMode:            0o750,
			FileMode:           0o640,
			Sudo:               []string{"sudo"},
			SecureDeletePasses: 3,
			RunDir:             "/tmp/phofs/run",
			ToolTimeout:        5 * time.Minute,
			TargetAttempts:     1000,
			NotMountedMarker:   ".not-mounted",
		},
		System: SystemConfig{Label: "system"},
	}
}

// Validate rejects values the filesystem packages cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.FS.BufferSize <= 0:
		return fmt.Errorf("invalid %s_FS_BUFFER_SIZE %d: must be positive", Prefix, c.FS.BufferSize)
	case c.FS.MaxLineLength <= 0:
		return fmt.Errorf("invalid %s_FS_MAX_LINE_LENGTH %d: must be positive", Prefix, c.FS.MaxLineLength)
	case c.FS.SecureDeletePasses < 0:
		return fmt.Errorf("invalid %s_FS_SECURE_DELETE_PASSES %d: must not be negative", Prefix, c.FS.SecureDeletePasses)
	case c.FS.TargetAttempts <= 0:
		return fmt.Errorf("invalid %s_FS_TARGET_ATTEMPTS %d: must be positive", Prefix, c.FS.TargetAttempts)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid %s_LOG_LEVEL %q: %w", Prefix, c.Log.Level, err)
	}
	return nil
}

// Logger builds the logger described by the log section.
func (c *Config) Logger() (*log.Logger, error) {
	cfg := log.DefaultConfig()
	if c.Log.Development {
		cfg = log.DevelopmentConfig()
	}
	cfg.Level = c.Log.Level
	return log.New(cfg)
}
