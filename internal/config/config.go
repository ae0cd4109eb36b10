// Package config loads datman settings from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/ryanm101/datman/internal/logging"
	"github.com/ryanm101/datman/internal/tracing"
)

// Config holds application configuration.
type Config struct {
	OutputDir   string         `yaml:"output_dir"`
	Workers     int            `yaml:"workers"`
	Formats     []string       `yaml:"formats"`
	CachePath   string         `yaml:"cache_path"`
	MetricsFile string         `yaml:"metrics_file"`
	Logging     logging.Config `yaml:"logging"`
	Tracing     tracing.Config `yaml:"tracing"`

	// Path is the file the configuration was read from, if any.
	Path string `yaml:"-"`
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		OutputDir: ".",
		Formats:   []string{"logiqx"},
		Logging:   logging.DefaultConfig(),
		Tracing:   tracing.DefaultConfig(),
	}
}

// configPaths returns the list of paths to search for config file.
func configPaths() []string {
	paths := []string{
		".datman.yaml",
		".datman.yml",
	}

	if home, err := homedir.Dir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "datman", "config.yaml"),
			filepath.Join(home, ".config", "datman", "config.yml"),
		)
	}

	return paths
}

// DefaultPath is where `config init` writes when no path is given.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "datman", "config.yaml"), nil
}

// Load loads configuration from file or returns defaults.
// Priority: env DATMAN_CONFIG > search paths > defaults
func Load() (*Config, error) {
	if envPath := os.Getenv("DATMAN_CONFIG"); envPath != "" {
		return LoadFile(envPath)
	}

	cfg := DefaultConfig()
	for _, path := range configPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.loadFromFile(path); err != nil {
				return nil, err
			}
			break
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads configuration from an explicit path.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.loadFromFile(path); err != nil {
		return nil, err
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("failed to expand config path: %w", err)
	}
	data, err := os.ReadFile(expanded) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", expanded, err)
	}
	c.Path = expanded
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if dir := os.Getenv("DATMAN_OUTPUT_DIR"); dir != "" {
		c.OutputDir = dir
	}
	if cache := os.Getenv("DATMAN_CACHE"); cache != "" {
		c.CachePath = cache
	}
	if w := os.Getenv("DATMAN_WORKERS"); w != "" {
		n, err := strconv.Atoi(w)
		if err != nil {
			return fmt.Errorf("invalid DATMAN_WORKERS %q: %w", w, err)
		}
		c.Workers = n
	}
	return nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("failed to expand config path: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// GetWorkers returns the worker count, defaulting to the number of CPUs.
func (c *Config) GetWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// GetOutputDir returns the output directory with ~ expanded.
func (c *Config) GetOutputDir() string {
	if c.OutputDir == "" {
		return "."
	}
	if dir, err := homedir.Expand(c.OutputDir); err == nil {
		return dir
	}
	return c.OutputDir
}

// GetCachePath returns the hash cache path with ~ expanded, or "" when the
// cache is disabled.
func (c *Config) GetCachePath() string {
	if c.CachePath == "" {
		return ""
	}
	if p, err := homedir.Expand(c.CachePath); err == nil {
		return p
	}
	return c.CachePath
}
