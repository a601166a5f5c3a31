package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/lcshtree/pkg/lcsh/internalerr"
)

// Config holds runtime settings for the annotator
type Config struct {
	Database    string    `yaml:"database"`
	ResultLimit int       `yaml:"result_limit"`
	CacheSize   int       `yaml:"cache_size"`
	Topmost     bool      `yaml:"topmost"`
	LinkBase    string    `yaml:"link_base"`
	Log         LogConfig `yaml:"log"`
}

// LogConfig selects log verbosity and handler
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Database:    "lcsh.db",
		ResultLimit: 5000,
		CacheSize:   1024,
		Topmost:     true,
		LinkBase:    "/lcsh/",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads settings from a YAML file on top of the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", internalerr.ErrInvalidConfig, path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the annotator cannot run with
func (c Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("%w: database path is empty", internalerr.ErrInvalidConfig)
	}
	if c.ResultLimit <= 0 {
		return fmt.Errorf("%w: result_limit must be positive, got %d", internalerr.ErrInvalidConfig, c.ResultLimit)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("%w: cache_size must not be negative, got %d", internalerr.ErrInvalidConfig, c.CacheSize)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json, got %q", internalerr.ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("LCSH_DB"); v != "" {
		c.Database = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("LCSH_LINK_BASE"); v != "" {
		c.LinkBase = v
	}

	var err error
	if c.ResultLimit, err = getenvInt("RESULT_LIMIT", c.ResultLimit); err != nil {
		return err
	}
	if c.CacheSize, err = getenvInt("LCSH_CACHE_SIZE", c.CacheSize); err != nil {
		return err
	}
	return nil
}

func getenvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", internalerr.ErrInvalidConfig, key, v)
	}
	return n, nil
}
