package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"gopkg.in/yaml.v3"

	"calview/internal/calendar"
)

var ErrEmptyPath = errors.New("config path is empty")

// Source types.
const (
	SourceMock = "mock"
	SourceICS  = "ics"
	SourceFile = "file"
)

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "Local"
	defaultWeekStart   = "sunday"
	defaultRefreshCron = "*/15 * * * *"
	defaultDisplayCap  = 3
	defaultAgendaMax   = 15
	defaultCacheDir    = ".calview-cache"
	defaultMockCount   = 24
)

// SourceConfig describes one calendar source shown as a toggle in the UI.
type SourceConfig struct {
	// ID is the source identifier events are tagged with ("platform",
	// "google", ...). It is also the key of the visibility map.
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
	Color string `yaml:"color" json:"color"`

	// Type selects the provider: "mock", "ics" or "file".
	Type string `yaml:"type" json:"type"`
	// URL is the ICS subscription endpoint (type ics).
	URL string `yaml:"url,omitempty" json:"url,omitempty"`
	// Path is a YAML event list on disk (type file).
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	// Seed and Count drive the synthetic generator (type mock).
	Seed  int64 `yaml:"seed,omitempty" json:"seed,omitempty"`
	Count int   `yaml:"count,omitempty" json:"count,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

type LogConfig struct {
	Level       string `yaml:"level" json:"level"`
	Development bool   `yaml:"development" json:"development"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone events are displayed in. "Local" uses the
	// host zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "sunday" (default) or "monday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used for periodic source refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// DisplayCapPerCell is how many events a month cell lists before "+N
	// more". Negative disables the cap.
	DisplayCapPerCell int `yaml:"display_cap_per_cell" json:"display_cap_per_cell"`

	// AgendaMax bounds the agenda list. Negative disables the bound.
	AgendaMax int `yaml:"agenda_max" json:"agenda_max"`

	// CacheDir holds ICS bodies and validators between fetches.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	Log LogConfig `yaml:"log" json:"log"`

	Sources []SourceConfig `yaml:"sources" json:"sources"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultSources mirrors the three providers the scheduling screen shows.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{ID: "platform", Label: "Platform", Color: "#4f46e5", Type: SourceMock, Seed: 1, Count: defaultMockCount},
		{ID: "google", Label: "Google Calendar", Color: "#16a34a", Type: SourceMock, Seed: 2, Count: defaultMockCount},
		{ID: "microsoft", Label: "Outlook", Color: "#0ea5e9", Type: SourceMock, Seed: 3, Count: defaultMockCount},
	}
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:            defaultListen,
		Timezone:          defaultTimezone,
		WeekStart:         defaultWeekStart,
		RefreshCron:       defaultRefreshCron,
		DisplayCapPerCell: defaultDisplayCap,
		AgendaMax:         defaultAgendaMax,
		CacheDir:          defaultCacheDir,
		Log:               LogConfig{Level: "info"},
		Sources:           DefaultSources(),
		BasicAuth:         nil,
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
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = defaultWeekStart
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.DisplayCapPerCell == 0 {
		c.DisplayCapPerCell = defaultDisplayCap
	}
	if c.AgendaMax == 0 {
		c.AgendaMax = defaultAgendaMax
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Sources == nil {
		c.Sources = DefaultSources()
	}
	for i := range c.Sources {
		s := &c.Sources[i]
		if s.Type == "" {
			switch {
			case s.URL != "":
				s.Type = SourceICS
			case s.Path != "":
				s.Type = SourceFile
			default:
				s.Type = SourceMock
			}
		}
		if s.Label == "" {
			s.Label = s.ID
		}
		if s.Type == SourceMock && s.Count == 0 {
			s.Count = defaultMockCount
		}
	}
}

// Validate reports every problem that would stop the service from starting.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: missing id", i))
			continue
		}
		if seen[s.ID] {
			errs = append(errs, fmt.Errorf("sources[%d]: duplicate id %q", i, s.ID))
		}
		seen[s.ID] = true

		switch s.Type {
		case SourceMock:
		case SourceICS:
			if s.URL == "" {
				errs = append(errs, fmt.Errorf("source %q: ics source needs a url", s.ID))
			}
		case SourceFile:
			if s.Path == "" {
				errs = append(errs, fmt.Errorf("source %q: file source needs a path", s.ID))
			}
		default:
			errs = append(errs, fmt.Errorf("source %q: unknown type %q", s.ID, s.Type))
		}
	}
	return errors.Join(errs...)
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) WeekStartDay() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

// CalendarOptions are the projection settings derived from the config.
func (c *Config) CalendarOptions() calendar.Options {
	return calendar.Options{
		DisplayCapPerCell: c.DisplayCapPerCell,
		AgendaMax:         c.AgendaMax,
		WeekStart:         c.WeekStartDay(),
	}
}

// Source looks up a configured source by id.
func (c *Config) Source(id string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.ID == id {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// overrides are the settings that can be forced from the environment, e.g.
// inside a container where the YAML file is baked into the image.
type overrides struct {
	Listen      string `env:"CALVIEW_LISTEN"`
	Timezone    string `env:"CALVIEW_TIMEZONE"`
	LogLevel    string `env:"CALVIEW_LOG_LEVEL"`
	DisplayCap  int    `env:"CALVIEW_DISPLAY_CAP"`
	AgendaMax   int    `env:"CALVIEW_AGENDA_MAX"`
	RefreshCron string `env:"CALVIEW_REFRESH"`
}

// ApplyEnv overwrites fields whose CALVIEW_* variable is set. Unset
// variables leave the YAML value in place.
func (c *Config) ApplyEnv() error {
	o := overrides{
		Listen:      c.Listen,
		Timezone:    c.Timezone,
		LogLevel:    c.Log.Level,
		DisplayCap:  c.DisplayCapPerCell,
		AgendaMax:   c.AgendaMax,
		RefreshCron: c.RefreshCron,
	}
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	c.Listen = o.Listen
	c.Timezone = o.Timezone
	c.Log.Level = o.LogLevel
	c.DisplayCapPerCell = o.DisplayCap
	c.AgendaMax = o.AgendaMax
	c.RefreshCron = o.RefreshCron
	c.Normalize()
	return nil
}

// Load loads configuration from the given YAML path and applies environment
// overrides.
//
// Behavior:
//   - If the file does not exist a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is unmarshalled and defaults are filled in.
//
// Environment overrides are never written back to disk.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	cfg, err := readOrCreate(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readOrCreate(path string) (*Config, error) {
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
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) if needed.
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

	tmp, err := os.CreateTemp(dir, ".calview-config-*.tmp")
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

func (c *Config) Save(path string) error {
	return Save(path, c)
}
