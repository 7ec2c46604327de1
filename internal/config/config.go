// Package config loads herdform settings: defaults, then a YAML file, then
// HERDFORM_* environment variables. Command-line flags are applied last by
// the CLI.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-herdform/pkg/datefmt"
	"github.com/goliatone/go-herdform/pkg/herdfilter"
	"github.com/goliatone/go-herdform/pkg/listing"
	"github.com/goliatone/go-herdform/pkg/page"
	"github.com/goliatone/go-herdform/pkg/render"
)

// Environment variables read by Load.
const (
	EnvConfig      = "HERDFORM_CONFIG"
	EnvBaseURL     = "HERDFORM_BASE_URL"
	EnvLogLevel    = "HERDFORM_LOG_LEVEL"
	EnvDownloadDir = "HERDFORM_DOWNLOAD_DIR"
	EnvListen      = "HERDFORM_LISTEN"
)

// Config holds all herdform settings.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Render    RenderConfig    `yaml:"render"`
	Forms     FormsConfig     `yaml:"forms"`
	Downloads DownloadsConfig `yaml:"downloads"`
	Filter    FilterConfig    `yaml:"filter"`
	Listen    ListenConfig    `yaml:"listen"`
	Log       LogConfig       `yaml:"log"`

	// Lists replaces the built-in list sources when set.
	Lists []listing.Source `yaml:"lists,omitempty"`
}

// ServerConfig points at the herd application.
type ServerConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	// OpenAPI is a path or URL of the server contract used to discover
	// forms instead of scraping the page.
	OpenAPI string `yaml:"openapi,omitempty"`
}

// RenderConfig configures fragment output.
type RenderConfig struct {
	Locale      string            `yaml:"locale"`
	MessageMode string            `yaml:"message_mode"`
	Variant     string            `yaml:"variant,omitempty"`
	Tokens      map[string]string `yaml:"tokens,omitempty"`
}

// FormsConfig configures form discovery from page markup.
type FormsConfig struct {
	// Page is the path of the document carrying the ajax forms.
	Page         string `yaml:"page"`
	Class        string `yaml:"class"`
	StatusPolicy string `yaml:"status_policy"`
}

// DownloadsConfig configures where file responses are stored.
type DownloadsConfig struct {
	Dir string `yaml:"dir"`
}

// FilterConfig configures the herd filter.
type FilterConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// ListenConfig configures the fragment server.
type ListenConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL: "http://localhost:5000",
			Timeout: 30 * time.Second,
		},
		Render: RenderConfig{
			Locale:      datefmt.DefaultLocale,
			MessageMode: string(render.MessageText),
		},
		Forms: FormsConfig{
			Page:         "/",
			Class:        page.DefaultFormClass,
			StatusPolicy: page.StatusOptional.String(),
		},
		Downloads: DownloadsConfig{Dir: "."},
		Filter:    FilterConfig{Debounce: herdfilter.DefaultDebounce},
		Listen:    ListenConfig{Addr: "127.0.0.1:8080"},
		Log:       LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads path (HERDFORM_CONFIG when empty) over the defaults and applies
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = getenv(EnvConfig)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv(getenv)
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvBaseURL); v != "" {
		c.Server.BaseURL = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := getenv(EnvDownloadDir); v != "" {
		c.Downloads.Dir = v
	}
	if v := getenv(EnvListen); v != "" {
		c.Listen.Addr = v
	}
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate rejects unknown enum values and malformed settings.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.BaseURL(); err != nil {
		errs = append(errs, err)
	}
	if c.Server.Timeout < 0 {
		errs = append(errs, errors.New("config: server.timeout must not be negative"))
	}
	if _, err := render.ParseMessageMode(c.Render.MessageMode); err != nil {
		errs = append(errs, fmt.Errorf("config: render.message_mode: %w", err))
	}
	if _, err := page.ParseStatusPolicy(c.Forms.StatusPolicy); err != nil {
		errs = append(errs, fmt.Errorf("config: forms.status_policy: %w", err))
	}
	if c.Filter.Debounce < 0 {
		errs = append(errs, errors.New("config: filter.debounce must not be negative"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: unknown log.level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("config: unknown log.format %q", c.Log.Format))
	}
	if len(c.Lists) > 0 {
		if _, err := listing.NewRegistry(c.Lists...); err != nil {
			errs = append(errs, fmt.Errorf("config: lists: %w", err))
		}
	}
	return errors.Join(errs...)
}

// BaseURL parses Server.BaseURL.
func (c *Config) BaseURL() (*url.URL, error) {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("config: server.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("config: server.base_url %q must be an absolute http(s) URL", c.Server.BaseURL)
	}
	return u, nil
}

// MessageMode returns the parsed render message mode.
func (c *Config) MessageMode() render.MessageMode {
	mode, _ := render.ParseMessageMode(c.Render.MessageMode)
	return mode
}

// StatusPolicy returns the parsed forms status policy.
func (c *Config) StatusPolicy() page.StatusPolicy {
	policy, _ := page.ParseStatusPolicy(c.Forms.StatusPolicy)
	return policy
}

// Sources returns the configured list sources, or the built-ins.
func (c *Config) Sources() []listing.Source {
	if len(c.Lists) > 0 {
		return c.Lists
	}
	return listing.Builtins()
}
