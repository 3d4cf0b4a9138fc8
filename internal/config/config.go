package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// ErrInvalidConfig is returned when a configured value is out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all runtime configuration for a taskmaster invocation.
// Values are populated from .taskmaster.yaml, TASKMASTER_* env vars, and CLI flags.
type Config struct {
	TasksFile        string `mapstructure:"tasks_file"`
	Tag              string `mapstructure:"tag"`
	TasksDir         string `mapstructure:"tasks_dir"`
	Store            string `mapstructure:"store"`
	DBPath           string `mapstructure:"db_path"`
	SiblingThreshold int    `mapstructure:"sibling_threshold"`
	TelemetryFile    string `mapstructure:"telemetry_file"`
	GenerateFiles    bool   `mapstructure:"generate_files"`
	Verbose          bool   `mapstructure:"verbose"`
	Silent           bool   `mapstructure:"silent"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("tasks_file", ".taskmaster/tasks/tasks.json")
	viper.SetDefault("tag", "master")
	viper.SetDefault("tasks_dir", ".taskmaster/tasks")
	viper.SetDefault("store", StoreJSON)
	viper.SetDefault("db_path", ".taskmaster/tasks.db")
	viper.SetDefault("sibling_threshold", 100)
	viper.SetDefault("telemetry_file", "")
	viper.SetDefault("generate_files", true)
	viper.SetDefault("verbose", false)
	viper.SetDefault("silent", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch cfg.Store {
	case StoreJSON, StoreSQLite:
	default:
		return Config{}, fmt.Errorf("%w: store must be %q or %q, got %q", ErrInvalidConfig, StoreJSON, StoreSQLite, cfg.Store)
	}
	if cfg.TasksFile == "" {
		return Config{}, fmt.Errorf("%w: tasks_file is empty", ErrInvalidConfig)
	}
	return cfg, nil
}

// ShorthandThreshold converts the configured sibling threshold to the
// dependency engine's convention, where zero selects the default and a
// negative value disables sibling shorthand. In configuration zero or less
// means disabled.
func (c Config) ShorthandThreshold() int {
	if c.SiblingThreshold <= 0 {
		return -1
	}
	return c.SiblingThreshold
}
