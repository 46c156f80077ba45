// Package config provides configuration management for the download cache.
// It handles loading, validating and saving application settings: cache
// location, network behavior and the explicit policy knobs (unresolved-URL
// caching, failure tolerance). YAML files with sensible defaults.
package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nikolai-in/dlcache/pkg/errors"
	"github.com/nikolai-in/dlcache/pkg/fsutil"
)

// Config represents the application configuration.
type Config struct {
	Cache    CacheSettings   `yaml:"cache"`
	Network  NetworkSettings `yaml:"network"`
	Policies PolicySettings  `yaml:"policies"`
	Output   OutputSettings  `yaml:"output"`
}

// CacheSettings locate the cache on disk.
type CacheSettings struct {
	// Root is the cache root directory. Empty means the platform cache dir.
	Root string `yaml:"root,omitempty"`
}

// NetworkSettings control download behavior.
type NetworkSettings struct {
	HTTPTimeout       time.Duration `yaml:"http_timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	BaseDelay         time.Duration `yaml:"base_delay"`
	Concurrency       int           `yaml:"concurrency"`
	RequestsPerSecond float64       `yaml:"requests_per_second,omitempty"`
	UserAgent         string        `yaml:"user_agent,omitempty"`
}

// PolicySettings are the explicit policy decisions of the cache.
type PolicySettings struct {
	// CacheUnresolved opts in to downloading URLs that still carry ${...}
	// placeholders after variable resolution.
	CacheUnresolved bool `yaml:"cache_unresolved"`
	// FailureTolerance is the number of per-entry download failures a build
	// tolerates before exiting non-zero. -1 (the default) tolerates any
	// number: partial cache population is still useful, so failures are
	// reported but do not fail the run. 0 fails on the first failure.
	FailureTolerance int `yaml:"failure_tolerance"`
}

// OutputSettings control presentation.
type OutputSettings struct {
	Format   string `yaml:"format"`    // table, json, markdown
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}

// Default configuration values.
const (
	DefaultHTTPTimeout = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultBaseDelay   = time.Second
	DefaultConcurrency = 4
	// MaxConcurrency caps the worker pool; anything higher hammers remote
	// hosts without improving wall-clock time on typical egress links.
	MaxConcurrency = 32

	yamlIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	root := ""
	if dir, err := fsutil.GetCacheDir(); err == nil {
		root = dir
	}
	return &Config{
		Cache: CacheSettings{Root: root},
		Network: NetworkSettings{
			HTTPTimeout: DefaultHTTPTimeout,
			MaxRetries:  DefaultMaxRetries,
			BaseDelay:   DefaultBaseDelay,
			Concurrency: DefaultConcurrency,
		},
		Policies: PolicySettings{
			CacheUnresolved:  false,
			FailureTolerance: -1,
		},
		Output: OutputSettings{
			Format:   "table",
			LogLevel: "info",
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the
// default configuration.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, err.Error())
	}
	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader. Decoding starts
// from the default configuration so omitted fields keep their defaults; this
// matters for failure_tolerance, where the zero value (fail on first failure)
// differs from the default (-1, unlimited).
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig saves configuration to a file via temp file + rename.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfig, err.Error())
	}
	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return errors.Wrap(err, "failed to create config file")
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(yamlIndent)
	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to encode config")
	}
	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to finalize config file")
	}
	return nil
}

// applyDefaults fills unset fields with defaults.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Cache.Root == "" {
		c.Cache.Root = def.Cache.Root
	}
	if c.Network.HTTPTimeout == 0 {
		c.Network.HTTPTimeout = def.Network.HTTPTimeout
	}
	if c.Network.MaxRetries == 0 {
		c.Network.MaxRetries = def.Network.MaxRetries
	}
	if c.Network.BaseDelay == 0 {
		c.Network.BaseDelay = def.Network.BaseDelay
	}
	if c.Network.Concurrency == 0 {
		c.Network.Concurrency = def.Network.Concurrency
	}
	if c.Output.Format == "" {
		c.Output.Format = def.Output.Format
	}
	if c.Output.LogLevel == "" {
		c.Output.LogLevel = def.Output.LogLevel
	}
}

// Validate checks if the configuration is valid. Invalid configuration fails
// fast, before any catalog or network work starts.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrInvalidConfig
	}
	if c.Cache.Root == "" {
		return errors.Wrap(errors.ErrInvalidCacheRoot, "cache root cannot be empty")
	}
	if c.Network.HTTPTimeout < 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "http_timeout cannot be negative")
	}
	if c.Network.MaxRetries < 1 {
		return errors.Wrap(errors.ErrInvalidConfig, "max_retries must be at least 1")
	}
	if c.Network.BaseDelay < 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "base_delay cannot be negative")
	}
	if c.Network.Concurrency < 1 || c.Network.Concurrency > MaxConcurrency {
		return errors.Wrapf(errors.ErrInvalidConfig, "concurrency must be between 1 and %d", MaxConcurrency)
	}
	if c.Network.RequestsPerSecond < 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "requests_per_second cannot be negative")
	}
	if c.Policies.FailureTolerance < -1 {
		return errors.Wrap(errors.ErrInvalidConfig, "failure_tolerance must be -1, 0 or positive")
	}
	validFormats := map[string]bool{"table": true, "json": true, "markdown": true}
	if !validFormats[c.Output.Format] {
		return errors.Wrapf(errors.ErrInvalidConfig, "invalid output format %q", c.Output.Format)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Output.LogLevel)] {
		return errors.Wrapf(errors.ErrInvalidConfig, "invalid log level %q", c.Output.LogLevel)
	}
	return nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, fsutil.AppName, "config.yaml"), nil
}
