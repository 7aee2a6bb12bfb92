// Package config loads spindle configuration from YAML with sensible
// defaults. CLI flags override file values; file values override defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents spindle configuration options
type Config struct {
	// MinRPM is the inclusive lower bound for accepted spindle speeds
	MinRPM int `yaml:"min_rpm"`

	// MaxRPM is the inclusive upper bound for accepted spindle speeds
	MaxRPM int `yaml:"max_rpm"`

	// FileExtension selects which files are candidates (e.g. ".tap")
	FileExtension string `yaml:"file_extension"`

	// SearchWindow limits the locator to the first N lines (0 = unbounded)
	SearchWindow int `yaml:"search_window"`

	// StopAtMotion ends the search window at the first motion command
	StopAtMotion bool `yaml:"stop_at_motion"`

	// MaxConcurrency is the number of files processed in parallel (1 = sequential)
	MaxConcurrency int `yaml:"max_concurrency"`

	// LogLevel sets the logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// HistoryDB is the path to the run-history database
	HistoryDB string `yaml:"history_db"`
}

// DefaultConfig returns a Config with sensible default values.
// The RPM bounds match the machine envelope the original tooling assumed.
func DefaultConfig() *Config {
	return &Config{
		MinRPM:         1,
		MaxRPM:         24000,
		FileExtension:  ".tap",
		SearchWindow:   20,
		StopAtMotion:   true,
		MaxConcurrency: 4,
		LogLevel:       "info",
		HistoryDB:      filepath.Join(".spindle", "history.db"),
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// File doesn't exist, return defaults (not an error)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Pointer fields distinguish "absent" from zero values so the file only
	// overrides what it actually sets.
	type yamlConfig struct {
		MinRPM         *int    `yaml:"min_rpm"`
		MaxRPM         *int    `yaml:"max_rpm"`
		FileExtension  *string `yaml:"file_extension"`
		SearchWindow   *int    `yaml:"search_window"`
		StopAtMotion   *bool   `yaml:"stop_at_motion"`
		MaxConcurrency *int    `yaml:"max_concurrency"`
		LogLevel       *string `yaml:"log_level"`
		HistoryDB      *string `yaml:"history_db"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.MinRPM != nil {
		cfg.MinRPM = *yamlCfg.MinRPM
	}
	if yamlCfg.MaxRPM != nil {
		cfg.MaxRPM = *yamlCfg.MaxRPM
	}
	if yamlCfg.FileExtension != nil {
		cfg.FileExtension = *yamlCfg.FileExtension
	}
	if yamlCfg.SearchWindow != nil {
		cfg.SearchWindow = *yamlCfg.SearchWindow
	}
	if yamlCfg.StopAtMotion != nil {
		cfg.StopAtMotion = *yamlCfg.StopAtMotion
	}
	if yamlCfg.MaxConcurrency != nil {
		cfg.MaxConcurrency = *yamlCfg.MaxConcurrency
	}
	if yamlCfg.LogLevel != nil {
		cfg.LogLevel = *yamlCfg.LogLevel
	}
	if yamlCfg.HistoryDB != nil {
		cfg.HistoryDB = *yamlCfg.HistoryDB
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from dir/.spindle/config.yaml.
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".spindle", "config.yaml"))
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	if c.MinRPM <= 0 {
		return fmt.Errorf("min_rpm must be positive, got %d", c.MinRPM)
	}
	if c.MaxRPM < c.MinRPM {
		return fmt.Errorf("max_rpm (%d) must not be below min_rpm (%d)", c.MaxRPM, c.MinRPM)
	}
	if c.FileExtension == "" {
		return fmt.Errorf("file_extension must not be empty")
	}
	if c.SearchWindow < 0 {
		return fmt.Errorf("search_window must not be negative, got %d", c.SearchWindow)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", c.MaxConcurrency)
	}
	return nil
}
