// Package config loads tally's settings from an optional YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/alexanderramin/tally/internal/cache"
	"github.com/ilyakaznacheev/cleanenv"
)

// Dir is the per-user directory holding the config file and the database.
const Dir = ".tally"

// Config holds all configuration for tally.
// Environment variables always override YAML values. The API token only comes
// from the environment.
type Config struct {
	API           APIConfig    `yaml:"api"`
	Notifications NotifyConfig `yaml:"notifications"`
	Log           LogConfig    `yaml:"log"`
	Cache         CacheConfig  `yaml:"cache"`

	// DBPath is the mirror database. Defaults to ~/.tally/tally.db.
	DBPath string `yaml:"db" env:"TALLY_DB" env-default:""`

	// File is the YAML file that was read, empty when none was found.
	File string `yaml:"-"`
}

// APIConfig configures the REST client.
type APIConfig struct {
	URL     string        `yaml:"url" env:"TALLY_API_URL" env-default:"http://localhost:3001/api"`
	Token   string        `yaml:"-" env:"TALLY_TOKEN"` // Secret - not in YAML
	Timeout time.Duration `yaml:"timeout" env:"TALLY_HTTP_TIMEOUT" env-default:"15s"`
}

// NotifyConfig configures the notification WebSocket.
type NotifyConfig struct {
	URL               string        `yaml:"url" env:"TALLY_WS_URL" env-default:"ws://localhost:3001"`
	ReconnectAttempts int           `yaml:"reconnect_attempts" env:"TALLY_WS_RECONNECT_ATTEMPTS" env-default:"5"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay" env:"TALLY_WS_RECONNECT_DELAY" env-default:"1s"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"TALLY_LOG_LEVEL" env-default:"warn"`
	Format string `yaml:"format" env:"TALLY_LOG_FORMAT" env-default:"console"`
}

// CacheConfig holds the query cache defaults and per-resource overrides.
type CacheConfig struct {
	StaleTime time.Duration `yaml:"stale_time" env:"TALLY_STALE_TIME" env-default:"30s"`
	GCTime    time.Duration `yaml:"gc_time" env:"TALLY_GC_TIME" env-default:"5m"`
	// Resources is keyed by resource name, e.g. "projects" or "dashboard".
	Resources map[string]ResourceCacheConfig `yaml:"resources"`
}

// ResourceCacheConfig overrides the cache defaults for one resource. A nil
// field keeps the default; a zero stale_time refetches on every read.
type ResourceCacheConfig struct {
	StaleTime *time.Duration `yaml:"stale_time"`
	GCTime    *time.Duration `yaml:"gc_time"`
}

// Load reads the config file at path, or when path is empty the file named by
// TALLY_CONFIG, or ~/.tally/config.yaml when it exists. Without a file only
// the environment is read.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = os.Getenv("TALLY_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, Dir, "config.yaml")
		}
	}

	cfg := &Config{}
	switch _, statErr := os.Stat(path); {
	case path != "" && statErr == nil:
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		cfg.File = path
	case explicit:
		return nil, fmt.Errorf("config file %s: %w", path, statErr)
	default:
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		cfg.DBPath = filepath.Join(home, Dir, "tally.db")
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if u, err := url.Parse(c.API.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api url %q is not an absolute URL", c.API.URL))
	}
	if u, err := url.Parse(c.Notifications.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("notifications url %q is not an absolute URL", c.Notifications.URL))
	}
	if c.Notifications.ReconnectAttempts < 1 {
		errs = append(errs, fmt.Errorf("reconnect_attempts must be at least 1"))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log format %q must be console or json", c.Log.Format))
	}
	if c.Cache.StaleTime < 0 || c.Cache.GCTime <= 0 {
		errs = append(errs, fmt.Errorf("cache stale_time must be >= 0 and gc_time > 0"))
	}
	for _, name := range slices.Sorted(maps.Keys(c.Cache.Resources)) {
		rc := c.Cache.Resources[name]
		if (rc.StaleTime != nil && *rc.StaleTime < 0) || (rc.GCTime != nil && *rc.GCTime <= 0) {
			errs = append(errs, fmt.Errorf("cache resource %q: stale_time must be >= 0 and gc_time > 0", name))
		}
	}
	return errors.Join(errs...)
}

// CacheDefaults returns the cache options used for resources without their
// own settings.
func (c *Config) CacheDefaults() cache.Options {
	return cache.Options{StaleTime: c.Cache.StaleTime, GCTime: c.Cache.GCTime}
}

// CacheOverrides returns the per-resource cache options. Fields left unset
// in YAML take the defaults.
func (c *Config) CacheOverrides() map[string]cache.Options {
	out := make(map[string]cache.Options, len(c.Cache.Resources))
	for name, rc := range c.Cache.Resources {
		o := c.CacheDefaults()
		if rc.StaleTime != nil {
			o.StaleTime = *rc.StaleTime
		}
		if rc.GCTime != nil {
			o.GCTime = *rc.GCTime
		}
		out[name] = o
	}
	return out
}
