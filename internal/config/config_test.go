package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Run.ReviewThreshold != 100 || cfg.Run.DaysIgnored != 7 || cfg.Run.FlushEvery != 10 {
		t.Fatalf("unexpected run defaults: %#v", cfg.Run)
	}
	if cfg.Steam.InitialDelay != 5*time.Second || cfg.Steam.MaxDelay != 20*time.Second {
		t.Fatalf("unexpected backoff defaults: %#v", cfg.Steam)
	}
	if cfg.Scheduler.Location().String() != "UTC" {
		t.Fatalf("unexpected location: %s", cfg.Scheduler.Location())
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gamescorer.yaml")
	content := `
database:
  path: /var/lib/gamescorer/steam.db
steam:
  maxRetries: 3
  initialDelay: 250ms
  maxDelay: 2s
run:
  reviewThreshold: 0
  addNew: false
  updateExisting: true
scheduler:
  timezone: Europe/Berlin
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, "")
	t.Setenv(exportPathEnv, "/tmp/out.csv")
	t.Setenv(databasePathEnv, "")

	cfg := Load(path)

	if cfg.Database.Path != "/var/lib/gamescorer/steam.db" {
		t.Fatalf("unexpected db path: %s", cfg.Database.Path)
	}
	if cfg.Steam.MaxRetries != 3 || cfg.Steam.InitialDelay != 250*time.Millisecond || cfg.Steam.MaxDelay != 2*time.Second {
		t.Fatalf("steam overrides not applied: %#v", cfg.Steam)
	}
	if cfg.Steam.CatalogURL == "" {
		t.Fatal("catalog url default lost during merge")
	}
	if cfg.Run.ReviewThreshold != 0 {
		t.Fatalf("explicit zero threshold must override default, got %d", cfg.Run.ReviewThreshold)
	}
	if cfg.Run.AddNew {
		t.Fatal("explicit addNew=false must override default")
	}
	if !cfg.Run.UpdateExisting || !cfg.Run.CreateExport {
		t.Fatalf("unexpected run section: %#v", cfg.Run)
	}
	if cfg.Export.Path != "/tmp/out.csv" {
		t.Fatalf("env override not applied: %s", cfg.Export.Path)
	}
	if cfg.Scheduler.Location().String() != "Europe/Berlin" {
		t.Fatalf("unexpected timezone: %s", cfg.Scheduler.Location())
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	t.Setenv(configPathEnv, "")
	cfg := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if cfg.Database.Path != "steam_data.db" {
		t.Fatalf("expected default db path, got %s", cfg.Database.Path)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"negative threshold": func(c *Config) { c.Run.ReviewThreshold = -1 },
		"negative days":      func(c *Config) { c.Run.DaysIgnored = -3 },
		"zero flush":         func(c *Config) { c.Run.FlushEvery = 0 },
		"empty catalog url":  func(c *Config) { c.Steam.CatalogURL = " " },
		"max below initial":  func(c *Config) { c.Steam.MaxDelay = time.Second },
		"inverted jitter":    func(c *Config) { c.Steam.JitterMin = 2 * time.Second },
		"empty export path":  func(c *Config) { c.Export.Path = "" },
		"empty db path":      func(c *Config) { c.Database.Path = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestRunConfigSettings(t *testing.T) {
	run := RunConfig{ReviewThreshold: 5, DaysIgnored: 2, UpdateExcludedByReviewThreshold: true}
	s := run.Settings()
	if s.ReviewThreshold != 5 || s.DaysIgnored != 2 || !s.UpdateExcludedByReviewThreshold || s.AddNew {
		t.Fatalf("unexpected settings: %#v", s)
	}
	if !strings.Contains(Default().Steam.UserAgent, "Mozilla") {
		t.Fatal("expected browser user agent by default")
	}
}
