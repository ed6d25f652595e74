package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultListen       = "127.0.0.1:8080"
	defaultRefresh      = "@every 5m"
	defaultHoursSpread  = 36
	defaultInvalidRetry = time.Second
	defaultDBPath       = "icalfeed.db"
	defaultLogLevel     = "info"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// URL is the calendar subscription (http, https or webcal).
	URL string `yaml:"url" json:"url"`

	// Refresh is a cron expression (e.g. "*/15 * * * *") or descriptor
	// (e.g. "@every 5m") deciding the delay after each fetch cycle.
	Refresh string `yaml:"refresh" json:"refresh"`

	// HoursSpread is the width of the display window centred on now.
	HoursSpread int `yaml:"hours_spread" json:"hours_spread"`

	// InvalidRetry is how soon an invalid URL is checked again.
	InvalidRetry time.Duration `yaml:"invalid_retry" json:"invalid_retry"`

	// DBPath is the bbolt file holding the HTTP cache and the last snapshot.
	DBPath string `yaml:"db_path" json:"db_path"`

	// LogLevel is one of debug, info, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Timezone is the IANA zone for floating times and all-day dates.
	// Empty means the system zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// IncludeAllDay keeps all-day events in the display list.
	IncludeAllDay bool `yaml:"include_all_day" json:"include_all_day"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       defaultListen,
		Refresh:      defaultRefresh,
		HoursSpread:  defaultHoursSpread,
		InvalidRetry: defaultInvalidRetry,
		DBPath:       defaultDBPath,
		LogLevel:     defaultLogLevel,
	}
}

// Normalize fills in missing/zero values so that partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Refresh == "" {
		c.Refresh = defaultRefresh
	}
	if c.HoursSpread <= 0 {
		c.HoursSpread = defaultHoursSpread
	}
	if c.InvalidRetry <= 0 {
		c.InvalidRetry = defaultInvalidRetry
	}
	if c.DBPath == "" {
		c.DBPath = defaultDBPath
	}
	switch c.LogLevel {
	case "debug", "info", "error":
	default:
		c.LogLevel = defaultLogLevel
	}
}

// Spread returns HoursSpread as a duration.
func (c *Config) Spread() time.Duration {
	return time.Duration(c.HoursSpread) * time.Hour
}

// Location resolves Timezone. An empty value yields time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".icalfeed-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
