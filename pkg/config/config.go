// Package config assembles the settings of a conformance run
// from defaults, an optional YAML file and CONFORMANCE_*
// environment variables. Command-line flags are applied last by
// the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"digital.vasic.conformance/pkg/env"
	"digital.vasic.conformance/pkg/logging"
	"digital.vasic.conformance/pkg/report"
	"digital.vasic.conformance/pkg/resource"
)

// DefaultFile is the configuration file looked up in the
// working directory when no path is given.
const DefaultFile = ".conformance.yaml"

// DefaultBuiltin is the rule set used when no rule files are
// configured.
const DefaultBuiltin = "chrome-extension"

// Config holds the settings of a conformance run.
type Config struct {
	// Roots are the trees to check.
	Roots []string `yaml:"roots,omitempty"`

	// Rules lists rule files or directories. When empty the
	// Builtin rule set is used.
	Rules   []string `yaml:"rules,omitempty"`
	Builtin string   `yaml:"builtin,omitempty"`

	// Sections restricts the run to the named sections.
	Sections []string `yaml:"sections,omitempty"`

	Format string `yaml:"format,omitempty"`
	Output string `yaml:"output,omitempty"`
	Title  string `yaml:"title,omitempty"`

	// History is a JSONL file receiving one entry per run.
	History string `yaml:"history,omitempty"`

	// MetricsFile receives Prometheus metrics in text format
	// after the run.
	MetricsFile string `yaml:"metrics_file,omitempty"`

	Parallel    int   `yaml:"parallel,omitempty"`
	MaxFileSize int64 `yaml:"max_file_size,omitempty"`

	// Strict makes advisory failures fail the run.
	Strict bool `yaml:"strict,omitempty"`

	LogLevel  string `yaml:"log_level,omitempty"`
	LogFormat string `yaml:"log_format,omitempty"`
	LogFile   string `yaml:"log_file,omitempty"`

	Debounce time.Duration `yaml:"debounce,omitempty"`

	// Serve is the listen address of the monitor server. Empty
	// disables it.
	Serve string `yaml:"serve,omitempty"`
}

// NewConfig creates a Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Roots:       []string{"."},
		Builtin:     DefaultBuiltin,
		Format:      string(report.FormatText),
		Parallel:    1,
		MaxFileSize: resource.DefaultMaxFileSize,
		LogLevel:    "warn",
		LogFormat:   logging.FormatConsole,
		Debounce:    300 * time.Millisecond,
	}
}

// Load builds a Config from defaults, the YAML file at path and
// the environment. An empty path falls back to DefaultFile,
// which may be absent; an explicit path must exist. A nil
// loader reads the process environment only.
func Load(path string, loader *env.DefaultLoader) (*Config, error) {
	cfg := NewConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if loader == nil {
		loader = env.NewLoader()
	}
	if err := cfg.ApplyEnv(loader); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides settings with CONFORMANCE_* variables.
// List settings are comma separated.
func (c *Config) ApplyEnv(l *env.DefaultLoader) error {
	strs := map[string]*string{
		"builtin":      &c.Builtin,
		"format":       &c.Format,
		"output":       &c.Output,
		"title":        &c.Title,
		"history":      &c.History,
		"metrics_file": &c.MetricsFile,
		"log_level":    &c.LogLevel,
		"log_format":   &c.LogFormat,
		"log_file":     &c.LogFile,
		"serve":        &c.Serve,
	}
	for name, dst := range strs {
		if v, ok := l.Lookup(name); ok && v != "" {
			*dst = v
		}
	}

	lists := map[string]*[]string{
		"roots":    &c.Roots,
		"rules":    &c.Rules,
		"sections": &c.Sections,
	}
	for name, dst := range lists {
		if v, ok := l.Lookup(name); ok && v != "" {
			*dst = splitList(v)
		}
	}

	var errs []error
	if n, ok, err := l.GetInt("parallel"); err != nil {
		errs = append(errs, err)
	} else if ok {
		c.Parallel = n
	}
	if n, ok, err := l.GetInt("max_file_size"); err != nil {
		errs = append(errs, err)
	} else if ok {
		c.MaxFileSize = int64(n)
	}
	if b, ok, err := l.GetBool("strict"); err != nil {
		errs = append(errs, err)
	} else if ok {
		c.Strict = b
	}
	if d, ok, err := l.GetDuration("debounce"); err != nil {
		errs = append(errs, err)
	} else if ok {
		c.Debounce = d
	}
	return errors.Join(errs...)
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Roots) == 0 {
		errs = append(errs, errors.New("at least one root is required"))
	}
	if len(c.Rules) == 0 && c.Builtin == "" {
		errs = append(errs, errors.New("rules or builtin must be set"))
	}
	if _, err := report.ParseFormat(c.Format); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "", logging.FormatJSON, logging.FormatConsole:
	default:
		errs = append(errs, fmt.Errorf("unknown log format: %q", c.LogFormat))
	}
	if c.Parallel < 0 {
		errs = append(errs, fmt.Errorf("parallel must be >= 0, got %d", c.Parallel))
	}
	if c.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("max_file_size must be positive, got %d", c.MaxFileSize))
	}
	if c.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("debounce must be positive, got %s", c.Debounce))
	}
	return errors.Join(errs...)
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Logger builds the logger described by the configuration.
func (c *Config) Logger() (logging.Logger, error) {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(logging.LoggerConfig{
		OutputPath: c.LogFile,
		Level:      level,
		Format:     c.LogFormat,
	})
	if err != nil {
		return nil, err
	}
	return logger, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
