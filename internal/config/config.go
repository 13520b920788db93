package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"monthcal/internal/grid"
	appLog "monthcal/internal/log"
	"monthcal/internal/palette"
)

// ICSConfig describes a single ICS subscription source (one calendar).
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is the calendar identifier used for toggling and de-dup.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// Color is an optional "#rrggbb" override; empty means palette rotation.
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

// CalendarID returns ID, falling back to Name and then URL.
func (c ICSConfig) CalendarID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Name != "":
		return c.Name
	default:
		return c.URL
	}
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// GridConfig is the container size and vertical metrics of the month grid.
type GridConfig struct {
	Width        float64 `yaml:"width" json:"width"`
	Height       float64 `yaml:"height" json:"height"`
	grid.Metrics `yaml:",inline"`
}

// Bounds returns the container rectangle at the origin.
func (g GridConfig) Bounds() grid.Rect {
	return grid.Rect{W: g.Width, H: g.Height}
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone events are converted into (e.g. "Asia/Seoul").
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used for periodic ICS refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonMonths is how many months before and after the visible month
	// are expanded from the ICS feeds on each refresh.
	HorizonMonths int `yaml:"horizon_months" json:"horizon_months"`

	// CacheDir holds the HTTP cache of fetched ICS bodies.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// LogLevel is one of DEBUG, INFO, ERROR.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Grid GridConfig `yaml:"grid" json:"grid"`

	// ICS is the list of subscribed calendars.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen        = "127.0.0.1:8080"
	defaultTimezone      = "Asia/Seoul"
	defaultRefreshCron   = "*/15 * * * *"
	defaultHorizonMonths = 2
	defaultCacheDir      = "/var/lib/monthcal/ics-cache"
	defaultLogLevel      = "INFO"
	defaultGridWidth     = 980
	defaultGridHeight    = 760
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:        defaultListen,
		Timezone:      defaultTimezone,
		RefreshCron:   defaultRefreshCron,
		HorizonMonths: defaultHorizonMonths,
		CacheDir:      defaultCacheDir,
		LogLevel:      defaultLogLevel,
		Grid: GridConfig{
			Width:   defaultGridWidth,
			Height:  defaultGridHeight,
			Metrics: grid.DefaultMetrics(),
		},
		ICS:       []ICSConfig{},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.HorizonMonths <= 0 {
		c.HorizonMonths = defaultHorizonMonths
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}

	def := grid.DefaultMetrics()
	if c.Grid.Width <= 0 {
		c.Grid.Width = defaultGridWidth
	}
	if c.Grid.Height <= 0 {
		c.Grid.Height = defaultGridHeight
	}
	if c.Grid.HeaderHeight < 0 {
		c.Grid.HeaderHeight = def.HeaderHeight
	}
	if c.Grid.DayHeaderHeight < 0 {
		c.Grid.DayHeaderHeight = def.DayHeaderHeight
	}
	if c.Grid.LaneHeight <= 0 {
		c.Grid.LaneHeight = def.LaneHeight
	}
	if c.Grid.LaneGap < 0 {
		c.Grid.LaneGap = def.LaneGap
	}

	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// Validate reports settings Normalize cannot repair.
func (c *Config) Validate() error {
	var errs []error
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		errs = append(errs, fmt.Errorf("refresh %q: %w", c.RefreshCron, err))
	}
	seen := make(map[string]bool, len(c.ICS))
	for i, src := range c.ICS {
		if src.URL == "" {
			errs = append(errs, fmt.Errorf("ics[%d]: url is empty", i))
			continue
		}
		if src.Color != "" {
			if _, err := palette.ParseHex(src.Color); err != nil {
				errs = append(errs, fmt.Errorf("ics[%d]: %w", i, err))
			}
		}
		id := src.CalendarID()
		if seen[id] {
			errs = append(errs, fmt.Errorf("ics[%d]: duplicate calendar id %q", i, id))
		}
		seen[id] = true
	}
	return errors.Join(errs...)
}

// Location resolves Timezone, falling back to time.Local when it is empty
// or unknown.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
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
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
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

	tmp, err := os.CreateTemp(dir, ".monthcal-config-*.tmp")
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
