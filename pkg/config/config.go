// Package config loads the mosaicd TOML configuration and watches it for
// changes so tunables (poll cadence, feature toggles, gate criteria) apply
// without a restart.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default tunable values.
const (
	DefaultPollInterval = 2 * time.Second
	DefaultFastInterval = 1 * time.Second
	DefaultHuntInterval = 500 * time.Millisecond
	DefaultResyncDelay  = 750 * time.Millisecond
)

// GateConfig controls the completion gate.
type GateConfig struct {
	MacrosEnabled  bool
	AutoFixEnabled bool
	// Criteria are case-insensitive substrings matched against the study
	// description. Empty means every drafted study qualifies.
	Criteria []string
}

// Config is the resolved runtime configuration.
type Config struct {
	PollInterval time.Duration
	FastInterval time.Duration
	HuntInterval time.Duration
	ResyncDelay  time.Duration

	HighlightEnabled     bool
	TemplateStoreEnabled bool
	Debug                bool

	// ScraperCommand is the helper argv that prints a JSON snapshot.
	ScraperCommand []string

	// Automation maps automation verbs to helper argvs.
	Automation map[string][]string

	// Keys holds the host application's key sequences by action name
	// (sign, discard, select_all). These are parameters, not behavior.
	Keys map[string]string

	// Substitutions are user-configured phrase replacements applied by the
	// auto-fix feature after its built-in rules.
	Substitutions map[string]string

	Gate GateConfig
}

// fileConfig is the on-disk TOML shape. Durations are strings; booleans
// that default to true are pointers so absence is distinguishable.
type fileConfig struct {
	PollInterval string `toml:"poll_interval"`
	FastInterval string `toml:"fast_interval"`
	HuntInterval string `toml:"hunt_interval"`
	ResyncDelay  string `toml:"resync_delay"`

	HighlightEnabled     *bool `toml:"highlight_enabled"`
	TemplateStoreEnabled *bool `toml:"template_store_enabled"`
	Debug                bool  `toml:"debug"`

	Scraper struct {
		Command []string `toml:"command"`
	} `toml:"scraper"`

	Automation map[string][]string `toml:"automation"`
	Keys       map[string]string   `toml:"keys"`

	AutoFix struct {
		Substitutions map[string]string `toml:"substitutions"`
	} `toml:"autofix"`

	Gate struct {
		Macros   *bool    `toml:"macros"`
		AutoFix  *bool    `toml:"auto_fix"`
		Criteria []string `toml:"criteria"`
	} `toml:"gate"`
}

// Load reads the config file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path is under the mosaic home dir
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc.resolve()
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		PollInterval:         DefaultPollInterval,
		FastInterval:         DefaultFastInterval,
		HuntInterval:         DefaultHuntInterval,
		ResyncDelay:          DefaultResyncDelay,
		HighlightEnabled:     true,
		TemplateStoreEnabled: true,
		Gate: GateConfig{
			MacrosEnabled:  true,
			AutoFixEnabled: true,
		},
	}
}

// resolve applies defaults and validates durations.
func (fc fileConfig) resolve() (*Config, error) {
	cfg := Default()

	var err error
	if cfg.PollInterval, err = parseInterval(fc.PollInterval, cfg.PollInterval); err != nil {
		return nil, fmt.Errorf("poll_interval: %w", err)
	}
	if cfg.FastInterval, err = parseInterval(fc.FastInterval, cfg.FastInterval); err != nil {
		return nil, fmt.Errorf("fast_interval: %w", err)
	}
	if cfg.HuntInterval, err = parseInterval(fc.HuntInterval, cfg.HuntInterval); err != nil {
		return nil, fmt.Errorf("hunt_interval: %w", err)
	}
	if cfg.ResyncDelay, err = parseInterval(fc.ResyncDelay, cfg.ResyncDelay); err != nil {
		return nil, fmt.Errorf("resync_delay: %w", err)
	}

	if fc.HighlightEnabled != nil {
		cfg.HighlightEnabled = *fc.HighlightEnabled
	}
	if fc.TemplateStoreEnabled != nil {
		cfg.TemplateStoreEnabled = *fc.TemplateStoreEnabled
	}
	cfg.Debug = fc.Debug

	cfg.ScraperCommand = fc.Scraper.Command
	cfg.Automation = fc.Automation
	cfg.Keys = fc.Keys
	cfg.Substitutions = fc.AutoFix.Substitutions

	if fc.Gate.Macros != nil {
		cfg.Gate.MacrosEnabled = *fc.Gate.Macros
	}
	if fc.Gate.AutoFix != nil {
		cfg.Gate.AutoFixEnabled = *fc.Gate.AutoFix
	}
	cfg.Gate.Criteria = fc.Gate.Criteria

	return cfg, nil
}

func parseInterval(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}
