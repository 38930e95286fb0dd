// Package config holds the run configuration of the trace lister.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"etmdecode/common"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config represents the complete run configuration
type Config struct {
	Input   string        `yaml:"input"`
	Output  OutputConfig  `yaml:"output"`
	Decode  DecodeConfig  `yaml:"decode"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// OutputConfig selects where and how the report is written
type OutputConfig struct {
	Path       string `yaml:"path"` // empty: stdout
	Format     string `yaml:"format"`
	RawSources bool   `yaml:"raw_sources"` // dump demultiplexed bytes before decoding
	Stats      bool   `yaml:"stats"`       // print per-kind event counts
	HideIDs    bool   `yaml:"hide_ids"`    // drop the Idx/ID prefix of event lines
	Quiet      bool   `yaml:"quiet"`       // write only statistics and the summary
}

// DecodeConfig contains decoder parameters
type DecodeConfig struct {
	Workers int      `yaml:"workers"`
	Devices []string `yaml:"devices"` // ETMv4 register ini files
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig controls the Prometheus textfile export
type MetricsConfig struct {
	File string `yaml:"file"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Output:  OutputConfig{Format: FormatText},
		Decode:  DecodeConfig{Workers: runtime.NumCPU()},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads and parses the configuration file over the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate checks every section of the configuration
func (c *Config) Validate() error {
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output config: %w", err)
	}

	if err := c.Decode.Validate(); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates output configuration
func (o *OutputConfig) Validate() error {
	switch o.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("format must be %q or %q, got %q", FormatText, FormatJSON, o.Format)
	}
	return nil
}

// Validate validates decoder configuration
func (d *DecodeConfig) Validate() error {
	if d.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", d.Workers)
	}

	for i, dev := range d.Devices {
		if strings.TrimSpace(dev) == "" {
			return fmt.Errorf("devices[%d] cannot be empty", i)
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	if _, err := common.ParseSeverity(l.Level); err != nil {
		return err
	}
	return nil
}

// Severity returns the configured minimum log severity.
func (l *LoggingConfig) Severity() common.Severity {
	sev, _ := common.ParseSeverity(l.Level)
	return sev
}
