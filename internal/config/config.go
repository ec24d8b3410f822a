// Package config loads legiscope settings: YAML file over defaults, then a
// .env file, then LEGISCOPE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// DefaultEnvFile is read by Load when present.
const DefaultEnvFile = ".env"

// Config holds all legiscope configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	UI      UIConfig      `yaml:"ui"`
	Logging LoggingConfig `yaml:"logging"`
	Archive ArchiveConfig `yaml:"archive"`
	Export  ExportConfig  `yaml:"export"`
	Stub    StubConfig    `yaml:"stub"`
}

// APIConfig points at the legal assistant backend.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"` // Go duration; "0" disables
}

type UIConfig struct {
	AltScreen bool `yaml:"alt_screen"`
	Mouse     bool `yaml:"mouse"`
}

// LoggingConfig configures zap. An empty File keeps the TUI silent.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ArchiveConfig enables the sqlite article archive when Path is set.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// StubConfig configures the offline backend.
type StubConfig struct {
	Addr    string `yaml:"addr"`
	Offline bool   `yaml:"offline"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://127.0.0.1:8000",
			Timeout: "90s",
		},
		UI: UIConfig{
			AltScreen: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Export: ExportConfig{
			Dir: "exports",
		},
		Stub: StubConfig{
			Addr:    "127.0.0.1:8000",
			Offline: true,
		},
	}
}

// Load reads path (a missing file means defaults) and DefaultEnvFile.
func Load(path string) (*Config, error) {
	return LoadFiles(path, DefaultEnvFile)
}

// LoadFiles is Load with an explicit .env location. Variables already set in
// the process environment win over the .env file.
func LoadFiles(path, envFile string) (*Config, error) {
	cfg := DefaultConfig()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if strings.TrimSpace(envFile) != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.API.BaseURL = envOr("LEGISCOPE_API_URL", c.API.BaseURL)
	c.API.Timeout = envOr("LEGISCOPE_API_TIMEOUT", c.API.Timeout)
	c.UI.AltScreen = envOrBool("LEGISCOPE_ALT_SCREEN", c.UI.AltScreen)
	c.UI.Mouse = envOrBool("LEGISCOPE_MOUSE", c.UI.Mouse)
	c.Logging.Level = envOr("LEGISCOPE_LOG_LEVEL", c.Logging.Level)
	c.Logging.File = envOr("LEGISCOPE_LOG_FILE", c.Logging.File)
	c.Archive.Path = envOr("LEGISCOPE_ARCHIVE_PATH", c.Archive.Path)
	c.Export.Dir = envOr("LEGISCOPE_EXPORT_DIR", c.Export.Dir)
	c.Stub.Addr = envOr("LEGISCOPE_STUB_ADDR", c.Stub.Addr)
	c.Stub.Offline = envOrBool("LEGISCOPE_STUB_OFFLINE", c.Stub.Offline)
}

// Validate checks the fields that would otherwise fail late.
func (c *Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.API.BaseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: api.base_url %q must be an http(s) URL", ErrInvalid, c.API.BaseURL)
	}
	if _, err := c.RequestTimeout(); err != nil {
		return err
	}
	return nil
}

// RequestTimeout parses api.timeout. Zero means no client-side limit.
func (c *Config) RequestTimeout() (time.Duration, error) {
	raw := strings.TrimSpace(c.API.Timeout)
	if raw == "" || raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: api.timeout %q: %v", ErrInvalid, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: api.timeout %q is negative", ErrInvalid, raw)
	}
	return d, nil
}

// ArchiveEnabled reports whether answers should be archived.
func (c *Config) ArchiveEnabled() bool {
	return strings.TrimSpace(c.Archive.Path) != ""
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if value == "" {
		return fallback
	}
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
