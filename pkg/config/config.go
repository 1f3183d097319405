// Package config loads livegraph settings.
//
// Settings come from four layers, later layers overriding earlier ones:
//
//  1. Built-in defaults ([Default])
//  2. A TOML or YAML file, chosen by extension ([Load])
//  3. LIVEGRAPH_* environment variables, including those set by a .env file
//  4. Command-line flags (applied by the CLI)
//
// Values in the config file may reference environment variables as $VAR or
// ${VAR}; they are expanded before parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/livegraph/pkg/errors"
	"github.com/matzehuels/livegraph/pkg/render/nodelink"
	"github.com/matzehuels/livegraph/pkg/tail"
)

// Defaults.
const (
	DefaultDataFile = "data/project_live.json"
	DefaultOutput   = "graph.svg"
)

// Environment variables read by ApplyEnv.
const (
	EnvDataFile     = "LIVEGRAPH_DATA_FILE"
	EnvPollInterval = "LIVEGRAPH_POLL_INTERVAL"
	EnvOutput       = "LIVEGRAPH_OUTPUT"
	EnvHTTPAddr     = "LIVEGRAPH_HTTP_ADDR"
	EnvRedisAddr    = "LIVEGRAPH_REDIS_ADDR"
	EnvLogLevel     = "LIVEGRAPH_LOG_LEVEL"
)

// Log formats.
const (
	LogFormatText   = "text"
	LogFormatJSON   = "json"
	LogFormatLogfmt = "logfmt"
)

// Config holds all livegraph settings.
type Config struct {
	DataFile     string        `toml:"data_file" yaml:"data_file"`
	FromStart    bool          `toml:"from_start" yaml:"from_start"`
	PollInterval time.Duration `toml:"poll_interval" yaml:"poll_interval"`
	NoWatch      bool          `toml:"no_watch" yaml:"no_watch"`

	TagKinds    bool `toml:"tag_kinds" yaml:"tag_kinds"`
	RenderEvery int  `toml:"render_every" yaml:"render_every"`
	Coalesce    bool `toml:"coalesce" yaml:"coalesce"`

	Output OutputConfig `toml:"output" yaml:"output"`
	HTTP   HTTPConfig   `toml:"http" yaml:"http"`
	Redis  RedisConfig  `toml:"redis" yaml:"redis"`
	Log    LogConfig    `toml:"log" yaml:"log"`
}

// OutputConfig controls the rendered file.
type OutputConfig struct {
	Path     string `toml:"path" yaml:"path"`
	Engine   string `toml:"engine" yaml:"engine"`
	Title    string `toml:"title" yaml:"title"`
	Detailed bool   `toml:"detailed" yaml:"detailed"`
}

// HTTPConfig enables the HTTP live view when Addr is set.
type HTTPConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
}

// Enabled reports whether the HTTP view should be started.
func (c HTTPConfig) Enabled() bool { return c.Addr != "" }

// RedisConfig enables snapshot publishing when Addr is set.
type RedisConfig struct {
	Addr     string `toml:"addr" yaml:"addr"`
	Password string `toml:"password" yaml:"password"`
	DB       int    `toml:"db" yaml:"db"`
	Key      string `toml:"key" yaml:"key"`
	Channel  string `toml:"channel" yaml:"channel"`
}

// Enabled reports whether snapshots should be published.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// LogConfig controls logging.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Default returns a Config with built-in defaults.
func Default() *Config {
	return &Config{
		DataFile:     DefaultDataFile,
		PollInterval: tail.DefaultPollInterval,
		RenderEvery:  1,
		Output: OutputConfig{
			Path:   DefaultOutput,
			Engine: nodelink.EngineNeato,
			Title:  nodelink.DefaultTitle,
		},
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatText,
		},
	}
}

// Load reads defaults, then the file at path (if non-empty), then the
// environment, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "failed to read config file %s", path)
	}
	expanded := os.ExpandEnv(string(data))

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		_, err = toml.Decode(expanded, c)
	case ".yaml", ".yml":
		err = yaml.Unmarshal([]byte(expanded), c)
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unsupported config format %q (use .toml, .yaml or .yml)", ext)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "failed to parse config file %s", path)
	}
	return nil
}

// LoadDotEnv loads environment variables from the given .env files.
// With no arguments it loads ./.env if present. Variables already set in the
// environment are not overridden.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "failed to load %s", strings.Join(files, ", "))
	}
	return nil
}

// ApplyEnv overrides settings from LIVEGRAPH_* variables using lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDataFile); ok && v != "" {
		c.DataFile = v
	}
	if v, ok := lookup(EnvPollInterval); ok && v != "" {
		d, err := parseInterval(v)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s", EnvPollInterval)
		}
		c.PollInterval = d
	}
	if v, ok := lookup(EnvOutput); ok && v != "" {
		c.Output.Path = v
	}
	if v, ok := lookup(EnvHTTPAddr); ok {
		c.HTTP.Addr = v
	}
	if v, ok := lookup(EnvRedisAddr); ok {
		c.Redis.Addr = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	return nil
}

// parseInterval accepts a Go duration ("250ms") or a bare number of
// milliseconds ("250").
func parseInterval(s string) (time.Duration, error) {
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

// Validate checks the configuration and fills zero values that have a
// sensible default.
func (c *Config) Validate() error {
	if c.RenderEvery == 0 {
		c.RenderEvery = 1
	}
	if c.Output.Engine == "" {
		c.Output.Engine = nodelink.EngineNeato
	}
	if c.Log.Format == "" {
		c.Log.Format = LogFormatText
	}

	err := validation.ValidateStruct(c,
		validation.Field(&c.DataFile, validation.Required, validation.By(validPath)),
		validation.Field(&c.PollInterval, validation.Required, validation.Min(time.Millisecond), validation.Max(time.Minute)),
		validation.Field(&c.RenderEvery, validation.Min(1)),
		validation.Field(&c.Output),
		validation.Field(&c.Log),
	)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid configuration")
	}
	return nil
}

// Validate validates the output configuration.
func (c OutputConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Path, validation.Required, validation.By(validPath), validation.By(validFormat)),
		validation.Field(&c.Engine, validation.By(validEngine)),
	)
}

// Validate validates the log configuration.
func (c LogConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Format, validation.In(LogFormatText, LogFormatJSON, LogFormatLogfmt)),
	)
}

func validPath(v any) error {
	s, _ := v.(string)
	if err := errors.ValidatePath(s); err != nil {
		return fmt.Errorf("%s", errors.UserMessage(err))
	}
	return nil
}

func validFormat(v any) error {
	s, _ := v.(string)
	_, err := nodelink.FormatFromPath(s)
	return err
}

func validEngine(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	return nodelink.ValidateEngine(s)
}
