package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-herdform/internal/config"
	"github.com/goliatone/go-herdform/pkg/listing"
	"github.com/goliatone/go-herdform/pkg/page"
	"github.com/goliatone/go-herdform/pkg/render"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	cfg, err := config.LoadWithEnv(filepath.Join(t.TempDir(), "missing.yaml"), env(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(config.Default(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if diff := cmp.Diff(listing.Builtins(), cfg.Sources()); diff != "" {
		t.Fatalf("sources mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "herdform.yaml")
	data := []byte(`
server:
  base_url: https://herd.example
  timeout: 5s
render:
  message_mode: rich
  tokens:
    status.failure: alert-warning
forms:
  status_policy: required
filter:
  debounce: 300ms
log:
  level: debug
lists:
  - name: dry
    endpoint: /show_dry
    key: dry
    kind: dates
    columns: [Vache, Tarissement]
    empty_text: Rien.
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := config.LoadWithEnv("", env(map[string]string{
		config.EnvConfig:      path,
		config.EnvDownloadDir: "/tmp/exports",
		config.EnvLogLevel:    "warn",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if cfg.Server.BaseURL != "https://herd.example" || cfg.Server.Timeout != 5*time.Second {
		t.Fatalf("server not loaded: %+v", cfg.Server)
	}
	if cfg.MessageMode() != render.MessageRich || cfg.StatusPolicy() != page.StatusRequired {
		t.Fatalf("enums not loaded: %+v %+v", cfg.Render, cfg.Forms)
	}
	if cfg.Filter.Debounce != 300*time.Millisecond {
		t.Fatalf("debounce = %v", cfg.Filter.Debounce)
	}
	if cfg.Downloads.Dir != "/tmp/exports" || cfg.Log.Level != "warn" {
		t.Fatalf("env overrides not applied: %+v %+v", cfg.Downloads, cfg.Log)
	}
	if cfg.Forms.Class != page.DefaultFormClass {
		t.Fatalf("unset keys must keep defaults, got class %q", cfg.Forms.Class)
	}
	if got := cfg.Sources(); len(got) != 1 || got[0].Kind != listing.KindDates || got[0].EmptyText != "Rien." {
		t.Fatalf("lists not loaded: %+v", got)
	}
}

func TestValidate_RejectsUnknownValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"base url":      func(c *config.Config) { c.Server.BaseURL = "herd.example" },
		"message mode":  func(c *config.Config) { c.Render.MessageMode = "markdown" },
		"status policy": func(c *config.Config) { c.Forms.StatusPolicy = "sometimes" },
		"log level":     func(c *config.Config) { c.Log.Level = "trace" },
		"log format":    func(c *config.Config) { c.Log.Format = "xml" },
		"debounce":      func(c *config.Config) { c.Filter.Debounce = -time.Second },
		"duplicate list": func(c *config.Config) {
			c.Lists = []listing.Source{listing.Builtins()[0], listing.Builtins()[0]}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "herdform.yaml")
	cfg := config.Default()
	cfg.Listen.Addr = ":9000"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := config.LoadWithEnv(path, env(nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
