// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/bureau-dstat/lib/sampler"
	"github.com/bureau-foundation/bureau-dstat/lib/sink"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "DSTAT_"

// Config is the complete bureau-dstat configuration.
type Config struct {
	// Tag routes every emitted record. Required.
	Tag string `yaml:"tag" env:"TAG"`

	// DstatPath is the sampler executable.
	DstatPath string `yaml:"dstat_path" env:"PATH"`

	// Option holds dstat's command-line options, split on whitespace
	// into separate arguments. No shell quoting is interpreted.
	Option string `yaml:"option" env:"OPTION"`

	// Delay is the sampling interval in seconds.
	Delay int `yaml:"delay" env:"DELAY"`

	// TmpFile receives dstat's CSV output. It is truncated at start,
	// periodically during operation, and deleted at shutdown.
	TmpFile string `yaml:"tmp_file" env:"TMP_FILE"`

	// HostnameCommand is run once at startup; its output is the
	// hostname stamped on every record. Split on whitespace like
	// Option. Empty uses the kernel hostname.
	HostnameCommand string `yaml:"hostname_command" env:"HOSTNAME_COMMAND"`

	// MaxLines is the number of lines read between truncations of
	// TmpFile.
	MaxLines int `yaml:"max_lines" env:"MAX_LINES"`

	// PollInterval is how often TmpFile is checked for growth.
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`

	// CheckInterval is how often staleness is evaluated.
	CheckInterval time.Duration `yaml:"check_interval" env:"CHECK_INTERVAL"`

	// StaleFactor multiplies Delay to give the silence after which the
	// sampler is restarted.
	StaleFactor int `yaml:"stale_factor" env:"STALE_FACTOR"`

	// Notify enables filesystem notifications to poll as soon as
	// dstat writes, in addition to the periodic poll.
	Notify bool `yaml:"notify" env:"NOTIFY"`

	// StateFile, when set, records the running sampler so a restarted
	// collector can stop one left behind by a crash.
	StateFile string `yaml:"state_file" env:"STATE_FILE"`

	// Inject copies the tag and time into each record body.
	Inject sink.Inject `yaml:"inject"`

	// Outputs lists where records go.
	Outputs []sink.Spec `yaml:"outputs"`

	Log  LogConfig  `yaml:"log" envPrefix:"LOG_"`
	HTTP HTTPConfig `yaml:"http" envPrefix:"HTTP_"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level" env:"LEVEL"`

	// Format is auto, json, or text. Auto picks text on a terminal
	// and JSON otherwise.
	Format string `yaml:"format" env:"FORMAT"`
}

// HTTPConfig configures the status server.
type HTTPConfig struct {
	// Listen is the address of the /healthz, /status and /metrics
	// server. Empty disables it.
	Listen string `yaml:"listen" env:"LISTEN"`
}

// Default returns the configuration before any file, environment, or
// flag is applied. Tag has no default.
func Default() *Config {
	return &Config{
		DstatPath:       "dstat",
		Option:          "-fcdnm",
		Delay:           1,
		TmpFile:         "/tmp/dstat.csv",
		HostnameCommand: "hostname",
		MaxLines:        100,
		PollInterval:    500 * time.Millisecond,
		CheckInterval:   time.Second,
		StaleFactor:     3,
		Outputs:         []sink.Spec{{Type: sink.TypeStdout}},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load applies the file at path (skipped when path is empty) and the
// environment on top of Default, then expands variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("reading %s* environment: %w", EnvPrefix, err)
	}
	cfg.expandVariables()
	return cfg, nil
}

// LoadFile is Load with a required file.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config file path is empty")
	}
	return Load(path)
}

// loadFile merges a file into c. JSON is a subset of YAML, so JSONC is
// stripped to compact JSON and decoded by the same YAML decoder, keeping
// one set of field names and duration parsing for both. Compacting
// removes tab indentation, which YAML rejects.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		var compact bytes.Buffer
		if err := json.Compact(&compact, jsonc.ToJSON(data)); err != nil {
			return fmt.Errorf("parsing config %s: %w", path, err)
		}
		data = compact.Bytes()
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME":   os.Getenv("HOME"),
		"TMPDIR": os.TempDir(),
	}
	c.DstatPath = expandVars(c.DstatPath, vars)
	c.TmpFile = expandVars(c.TmpFile, vars)
	c.StateFile = expandVars(c.StateFile, vars)
	c.HostnameCommand = expandVars(c.HostnameCommand, vars)
	for i := range c.Outputs {
		c.Outputs[i].Path = expandVars(c.Outputs[i].Path, vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// SamplerCommand returns the dstat invocation the configuration
// describes.
func (c *Config) SamplerCommand() sampler.Command {
	return sampler.Command{
		Path:       c.DstatPath,
		Options:    strings.Fields(c.Option),
		OutputFile: c.TmpFile,
		Delay:      c.Delay,
	}
}

// HostnameArgv returns the hostname command as an argument vector.
func (c *Config) HostnameArgv() []string {
	return strings.Fields(c.HostnameCommand)
}

// StaleAfter is the silence after which the sampler is restarted.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Delay*c.StaleFactor) * time.Second
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"auto", "json", "text"}
)

// Validate reports every configuration problem, joined.
func (c *Config) Validate() error {
	var errs []error

	if c.Tag == "" {
		errs = append(errs, errors.New("tag is required"))
	}
	if err := c.SamplerCommand().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.MaxLines < 1 {
		errs = append(errs, fmt.Errorf("max_lines must be at least 1, got %d", c.MaxLines))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval))
	}
	if c.CheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("check_interval must be positive, got %s", c.CheckInterval))
	}
	if c.StaleFactor < 1 {
		errs = append(errs, fmt.Errorf("stale_factor must be at least 1, got %d", c.StaleFactor))
	}
	if c.StateFile != "" && c.StateFile == c.TmpFile {
		errs = append(errs, errors.New("state_file and tmp_file must differ"))
	}
	if err := c.Inject.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(c.Outputs) == 0 {
		errs = append(errs, errors.New("at least one output is required"))
	}
	for i, output := range c.Outputs {
		if err := output.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("outputs[%d]: %w", i, err))
		}
	}
	if !slices.Contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of %s, got %q", strings.Join(logLevels, ", "), c.Log.Level))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of %s, got %q", strings.Join(logFormats, ", "), c.Log.Format))
	}

	return errors.Join(errs...)
}
