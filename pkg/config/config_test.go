package config //nolint:testpackage // internal white-box tests need access to unexported fields

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.PollInterval != DefaultPollInterval {
		t.Fatalf("poll interval = %v", cfg.PollInterval)
	}
	if !cfg.HighlightEnabled || !cfg.TemplateStoreEnabled {
		t.Fatal("default-true toggles must default to true")
	}
	if !cfg.Gate.MacrosEnabled || !cfg.Gate.AutoFixEnabled {
		t.Fatal("gate features must default to enabled")
	}
}

func TestLoad_ParsesFullConfig(t *testing.T) {
	path := writeConfig(t, `
poll_interval = "3s"
hunt_interval = "250ms"
highlight_enabled = false
debug = true

[scraper]
command = ["mosaic-scrape", "--json"]

[automation]
send_keys = ["mosaic-keys"]
paste = ["mosaic-paste"]

[keys]
sign = "ctrl+shift+s"

[autofix.substitutions]
"xray" = "radiograph"

[gate]
macros = false
criteria = ["CT", "MR"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PollInterval != 3*time.Second {
		t.Fatalf("poll = %v", cfg.PollInterval)
	}
	if cfg.HuntInterval != 250*time.Millisecond {
		t.Fatalf("hunt = %v", cfg.HuntInterval)
	}
	// Unset durations keep their defaults.
	if cfg.FastInterval != DefaultFastInterval {
		t.Fatalf("fast = %v", cfg.FastInterval)
	}
	if cfg.HighlightEnabled {
		t.Fatal("highlight should be disabled")
	}
	if !cfg.TemplateStoreEnabled {
		t.Fatal("unset template_store_enabled should stay true")
	}
	if !cfg.Debug {
		t.Fatal("debug should be set")
	}
	if len(cfg.ScraperCommand) != 2 || cfg.ScraperCommand[0] != "mosaic-scrape" {
		t.Fatalf("scraper command = %v", cfg.ScraperCommand)
	}
	if cfg.Keys["sign"] != "ctrl+shift+s" {
		t.Fatalf("keys = %v", cfg.Keys)
	}
	if cfg.Substitutions["xray"] != "radiograph" {
		t.Fatalf("substitutions = %v", cfg.Substitutions)
	}
	if cfg.Gate.MacrosEnabled {
		t.Fatal("gate macros should be disabled")
	}
	if !cfg.Gate.AutoFixEnabled {
		t.Fatal("unset gate auto_fix should stay enabled")
	}
	if len(cfg.Gate.Criteria) != 2 {
		t.Fatalf("criteria = %v", cfg.Gate.Criteria)
	}
}

func TestLoad_RejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `poll_interval = "fast"`)
	if _, err := Load(path); err == nil {
		t.Fatal("unparseable duration must error")
	}
}

func TestLoad_RejectsNonPositiveDuration(t *testing.T) {
	path := writeConfig(t, `poll_interval = "-1s"`)
	if _, err := Load(path); err == nil {
		t.Fatal("non-positive duration must error")
	}
}

func TestLoad_RejectsBadTOML(t *testing.T) {
	path := writeConfig(t, `poll_interval = `)
	if _, err := Load(path); err == nil {
		t.Fatal("bad TOML must error")
	}
}
