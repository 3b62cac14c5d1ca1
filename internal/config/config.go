// Package config loads runmd settings from runmd.yaml or runmd.toml and
// validates them before any rendering happens.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the runmd configuration
type Config struct {
	Output    string      `yaml:"output,omitempty" toml:"output"`       // Output .md file, empty for stdout
	Lame      bool        `yaml:"lame,omitempty" toml:"lame"`           // Omit the attribution footer
	Placement string      `yaml:"placement,omitempty" toml:"placement"` // "after" (default) or "inline"
	HTML      string      `yaml:"html,omitempty" toml:"html"`           // Optional .html preview file
	Timeout   string      `yaml:"timeout,omitempty" toml:"timeout"`     // Render timeout (e.g., "30s"). Default: none
	Debug     bool        `yaml:"debug,omitempty" toml:"debug"`
	Watch     WatchConfig `yaml:"watch" toml:"watch"`
}

// WatchConfig holds watch-mode settings
type WatchConfig struct {
	Enabled  bool   `yaml:"enabled" toml:"enabled"`
	Interval string `yaml:"interval,omitempty" toml:"interval"` // Poll interval (e.g., "500ms"). Default: 1s
}

// GetInterval returns the parsed poll interval (default: 1s)
func (w WatchConfig) GetInterval() time.Duration {
	if w.Interval == "" {
		return time.Second
	}
	d, err := time.ParseDuration(w.Interval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// GetTimeout returns the parsed render timeout (0 = no timeout)
func (c *Config) GetTimeout() time.Duration {
	if c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// ValidationError is a configuration problem found before rendering.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return e.Reason
}

// Validate checks the configuration against the input files given on the
// command line.
func (c *Config) Validate(inputs []string) error {
	if len(inputs) != 1 {
		return &ValidationError{Reason: "must specify exactly one input file"}
	}
	if c.Output != "" && !strings.HasSuffix(c.Output, ".md") {
		return &ValidationError{Field: "output", Reason: fmt.Sprintf("output file %s must have .md extension", c.Output)}
	}
	if c.Watch.Enabled && c.Output == "" {
		return &ValidationError{Field: "watch", Reason: "--watch option requires --output=[output_file] option"}
	}
	if c.HTML != "" && !strings.HasSuffix(c.HTML, ".html") {
		return &ValidationError{Field: "html", Reason: fmt.Sprintf("preview file %s must have .html extension", c.HTML)}
	}
	switch c.Placement {
	case "", "after", "inline":
	default:
		return &ValidationError{Field: "placement", Reason: fmt.Sprintf("unknown placement %q (want after or inline)", c.Placement)}
	}
	if c.Timeout != "" {
		if _, err := time.ParseDuration(c.Timeout); err != nil {
			return &ValidationError{Field: "timeout", Reason: err.Error()}
		}
	}
	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Placement: "after",
		Watch: WatchConfig{
			Interval: "1s",
		},
	}
}

// Load loads configuration from a YAML or TOML file, chosen by extension.
// If the file doesn't exist, returns the default configuration.
// Relative output paths are resolved against the config file's directory.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig() // Start with defaults
	switch filepath.Ext(configPath) {
	case ".toml":
		if _, err := toml.Decode(string(data), config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	dir := filepath.Dir(configPath)
	config.Output = resolve(dir, config.Output)
	config.HTML = resolve(dir, config.HTML)

	return config, nil
}

// LoadFromDir looks for runmd.yaml, runmd.yml or runmd.toml in the given
// directory, in that order. If none is found, returns the default configuration.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{"runmd.yaml", "runmd.yml", "runmd.toml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return DefaultConfig(), nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
