// Package config loads debtower's TOML configuration file.
//
// The file is optional. Values missing from it keep their [Default], and
// command-line flags override both. A minimal file:
//
//	[mirror]
//	url = "http://ftp.de.debian.org/debian/"
//	suite = "bookworm"
//
//	[count]
//	workers = 8
//	dependency_fields = ["Pre-Depends", "Depends"]
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/debtower/pkg/errors"
)

// AppName names the per-user config and cache directories.
const AppName = "debtower"

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Config is the decoded configuration file.
type Config struct {
	Mirror MirrorConfig `toml:"mirror"`
	Count  CountConfig  `toml:"count"`
	Cache  CacheConfig  `toml:"cache"`
	Store  StoreConfig  `toml:"store"`
}

// MirrorConfig selects the archive and index to read.
type MirrorConfig struct {
	URL       string   `toml:"url"`
	Suite     string   `toml:"suite"`
	Component string   `toml:"component"`
	Arch      string   `toml:"arch"`
	TTL       Duration `toml:"ttl"` // how long fetched indexes stay cached
}

// CountConfig tunes the reference count computation.
type CountConfig struct {
	Workers          int      `toml:"workers"`
	DependencyFields []string `toml:"dependency_fields"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Backend  string `toml:"backend"` // file, redis or none
	Dir      string `toml:"dir"`
	RedisURL string `toml:"redis_url"`
}

// StoreConfig holds optional result sinks.
type StoreConfig struct {
	SQLite  string      `toml:"sqlite"`
	MongoDB MongoConfig `toml:"mongodb"`
}

// MongoConfig points at a MongoDB deployment.
type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// Duration is a time.Duration written as a Go duration string ("6h").
type Duration struct{ time.Duration }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Mirror: MirrorConfig{
			URL:       "http://deb.debian.org/debian/",
			Suite:     "stable",
			Component: "main",
			Arch:      "amd64",
			TTL:       Duration{6 * time.Hour},
		},
		Count: CountConfig{
			Workers:          runtime.NumCPU(),
			DependencyFields: []string{"Depends"},
		},
		Cache: CacheConfig{Backend: CacheFile},
		Store: StoreConfig{MongoDB: MongoConfig{Database: AppName}},
	}
}

// Load reads the file at path on top of [Default]. An empty path means
// [DefaultPath], which may be absent. An explicitly named file must exist.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	md, err := toml.DecodeFile(path, &cfg)
	if os.IsNotExist(err) && !explicit {
		return Default(), nil
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail later at run time.
func (c Config) Validate() error {
	if err := errors.ValidateURL(c.Mirror.URL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "mirror.url")
	}
	if c.Count.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "count.workers must not be negative")
	}
	if !slices.Contains([]string{CacheFile, CacheRedis, CacheNone}, c.Cache.Backend) {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.backend must be file, redis or none, got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == CacheRedis && c.Cache.RedisURL == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_url is required for the redis backend")
	}
	return nil
}

// CacheDir returns the configured cache directory or the XDG default.
func (c Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	return DefaultCacheDir()
}

// DefaultPath returns $XDG_CONFIG_HOME/debtower/config.toml, falling back
// to ~/.config.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName, "config.toml"), nil
}

// DefaultCacheDir returns $XDG_CACHE_HOME/debtower, falling back to
// ~/.cache.
func DefaultCacheDir() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}
