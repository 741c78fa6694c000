// Package config loads the optional YAML configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Data locates the TSV input files. Explicit file paths win over Dir.
type Data struct {
	Dir      string `yaml:"dir"`
	Cheaters string `yaml:"cheaters"`
	Teams    string `yaml:"teams"`
	Kills    string `yaml:"kills"`
}

// Inference holds the randomization settings of analyze.
type Inference struct {
	Reps       int     `yaml:"reps"`
	Confidence float64 `yaml:"confidence"` // 0 keeps the fixed z = 1.96
	Seed       uint64  `yaml:"seed"` // 0 picks a random seed per run
	Workers    int     `yaml:"workers"`
}

// Config is the top-level YAML document.
type Config struct {
	DB          string    `yaml:"db"`
	LogLevel    string    `yaml:"log_level"`
	MetricsFile string    `yaml:"metrics_file"`
	Data        Data      `yaml:"data"`
	Inference   Inference `yaml:"inference"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads path and fills unset fields with defaults. An empty path yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Inference.Reps == 0 {
		c.Inference.Reps = 20
	}
}

func (c *Config) validate() error {
	if c.Inference.Reps < 1 {
		return fmt.Errorf("inference.reps must be positive, got %d", c.Inference.Reps)
	}
	if c.Inference.Confidence < 0 || c.Inference.Confidence >= 1 {
		return fmt.Errorf("inference.confidence must be in [0, 1), got %v", c.Inference.Confidence)
	}
	if c.Inference.Workers < 0 {
		return fmt.Errorf("inference.workers must not be negative, got %d", c.Inference.Workers)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}
