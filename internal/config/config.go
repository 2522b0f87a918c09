package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrEmptyPath is returned by Load and Save for an empty path.
var ErrEmptyPath = errors.New("config path is empty")

const (
	defaultListen         = "127.0.0.1:8080"
	defaultLocale         = "en-US"
	defaultView           = "week"
	defaultSwipeThreshold = 50.0
	defaultRefresh        = "*/15 * * * *"
	defaultHorizonWeeks   = 6
	defaultLogLevel       = "info"
	defaultCacheDir       = "./var/ics-cache"
)

// FeedConfig is one ICS feed of staff events.
type FeedConfig struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
	// Kind is announcement, checklist, training or shift.
	Kind string `yaml:"kind" json:"kind"`
}

// BasicAuthConfig protects the API when both fields are set.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone whose midnights separate calendar days.
	// "Local" uses the host zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Locale only affects display strings, never date math.
	Locale string `yaml:"locale" json:"locale"`

	// DefaultView is "week" or "month".
	DefaultView string `yaml:"default_view" json:"default_view"`

	// SwipeThreshold is the drag distance that commits a navigation step.
	SwipeThreshold float64 `yaml:"swipe_threshold" json:"swipe_threshold"`

	// RefreshCron is the cron spec for feed refreshes.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonWeeks is how far before and after today feeds are expanded.
	HorizonWeeks int `yaml:"horizon_weeks" json:"horizon_weeks"`

	LogLevel string `yaml:"log_level" json:"log_level"`
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	Feeds []FeedConfig `yaml:"feeds" json:"feeds"`

	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         defaultListen,
		Timezone:       "Local",
		Locale:         defaultLocale,
		DefaultView:    defaultView,
		SwipeThreshold: defaultSwipeThreshold,
		RefreshCron:    defaultRefresh,
		HorizonWeeks:   defaultHorizonWeeks,
		LogLevel:       defaultLogLevel,
		CacheDir:       defaultCacheDir,
		Feeds:          []FeedConfig{},
	}
}

// Normalize fills zero values with defaults so older or partial files still
// work.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.Locale == "" {
		c.Locale = defaultLocale
	}
	switch strings.ToLower(c.DefaultView) {
	case "week", "month":
		c.DefaultView = strings.ToLower(c.DefaultView)
	default:
		c.DefaultView = defaultView
	}
	if c.SwipeThreshold <= 0 {
		c.SwipeThreshold = defaultSwipeThreshold
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefresh
	}
	if c.HorizonWeeks <= 0 {
		c.HorizonWeeks = defaultHorizonWeeks
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
	for i := range c.Feeds {
		f := &c.Feeds[i]
		if f.ID == "" {
			if f.Name != "" {
				f.ID = f.Name
			} else {
				f.ID = f.URL
			}
		}
		f.Kind = strings.ToLower(strings.TrimSpace(f.Kind))
		if f.Kind == "" {
			f.Kind = "announcement"
		}
	}
}

// Location resolves Timezone. Unknown zones are an error so a typo does not
// silently move day boundaries.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load reads the YAML file at path. On first run the file does not exist yet:
// the defaults are written with 0600 permissions and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, fmt.Errorf("write default config: %w", err)
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory with 0700.
func Save(path string, cfg *Config) error {
	if path == "" {
		return ErrEmptyPath
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

	tmp, err := os.CreateTemp(dir, ".crewcal-config-*.tmp")
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

// Save is shorthand for the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
