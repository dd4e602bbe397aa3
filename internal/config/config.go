// Package config loads recall's settings from .env files, an optional YAML
// file and RECALL_* environment variables, in that order of precedence
// (later wins).
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/LavenderBridge/recall/internal/algorithm"
	"github.com/LavenderBridge/recall/internal/logging"
	"github.com/LavenderBridge/recall/internal/pipeline"
)

const (
	configFileName = "config.yaml"
	dbFileName     = "recall.db"
)

// Environment variables read by Load.
const (
	EnvHome           = "RECALL_HOME"
	EnvDatabase       = "RECALL_DB"
	EnvLogLevel       = "RECALL_LOG_LEVEL"
	EnvLogFormat      = "RECALL_LOG_FORMAT"
	EnvMetricsFile    = "RECALL_METRICS_FILE"
	EnvShuffleChoices = "RECALL_SHUFFLE_CHOICES"
)

type Config struct {
	DataDir      string `yaml:"-"`
	DatabasePath string `yaml:"database"`
	MetricsFile  string `yaml:"metrics_file"` // prometheus textfile, empty disables

	Log        LogConfig                          `yaml:"log"`
	Review     ReviewConfig                       `yaml:"review"`
	Scheduling algorithm.Policy                   `yaml:"scheduling"`
	Presets    map[string]pipeline.SessionConfig `yaml:"presets"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ReviewConfig struct {
	ShuffleChoices bool `yaml:"shuffle_choices"`
	DefaultLimit   int  `yaml:"default_limit"` // 0 means no limit
}

// Default returns the settings used when nothing is configured.
func Default(dataDir string) *Config {
	return &Config{
		DataDir:      dataDir,
		DatabasePath: filepath.Join(dataDir, dbFileName),
		Log: LogConfig{
			Level:  "warn",
			Format: logging.FormatText,
		},
		Review: ReviewConfig{
			ShuffleChoices: true,
		},
		Scheduling: algorithm.DefaultPolicy(),
	}
}

// DefaultDataDir is $RECALL_HOME, or ~/.recall.
func DefaultDataDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".recall"), nil
}

// Load builds the configuration. An empty path means config.yaml in the
// data directory, which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	// .env never overrides variables already set in the environment.
	_ = godotenv.Load()

	dataDir, err := DefaultDataDir()
	if err != nil {
		return nil, err
	}
	if envFile := filepath.Join(dataDir, ".env"); fileExists(envFile) {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
		if dir := os.Getenv(EnvHome); dir != "" {
			dataDir = dir
		}
	}

	cfg := Default(dataDir)

	explicit := path != ""
	if !explicit {
		path = filepath.Join(dataDir, configFileName)
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if !filepath.IsAbs(cfg.DatabasePath) && cfg.DatabasePath != ":memory:" {
		cfg.DatabasePath = filepath.Join(dataDir, cfg.DatabasePath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile overlays the YAML file at path. ${VAR} references are expanded
// before parsing.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDatabase); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv(EnvMetricsFile); v != "" {
		c.MetricsFile = v
	}
	if v := os.Getenv(EnvShuffleChoices); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvShuffleChoices, err)
		}
		c.Review.ShuffleChoices = b
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return errors.New("database path is empty")
	}
	if _, err := logging.New(c.Log.Level, c.Log.Format, io.Discard); err != nil {
		return err
	}
	if c.Review.DefaultLimit < 0 {
		return fmt.Errorf("review default_limit must not be negative, got %d", c.Review.DefaultLimit)
	}
	if err := c.Scheduling.Validate(); err != nil {
		return fmt.Errorf("scheduling: %w", err)
	}
	reg := pipeline.DefaultRegistry()
	for _, name := range c.PresetNames() {
		if err := reg.Check(c.Presets[name]); err != nil {
			return fmt.Errorf("preset %q: %w", name, err)
		}
	}
	return nil
}

// Preset returns a copy of the named session preset.
func (c *Config) Preset(name string) (pipeline.SessionConfig, bool) {
	p, ok := c.Presets[name]
	if !ok {
		return pipeline.SessionConfig{}, false
	}
	return p.Clone(), true
}

// PresetNames lists the configured presets in sorted order.
func (c *Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for name := range c.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
