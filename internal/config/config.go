// Package config loads cardforge settings from YAML or TOML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/youruser/cardforge/internal/logging"
)

// Config holds the complete application configuration.
type Config struct {
	Server  ServerConfig      `yaml:"server" toml:"server"`
	Catalog CatalogConfig     `yaml:"catalog" toml:"catalog"`
	Ratings RatingsConfig     `yaml:"ratings" toml:"ratings"`
	Batch   BatchConfig       `yaml:"batch" toml:"batch"`
	Render  RenderConfig      `yaml:"render" toml:"render"`
	Log     logging.LogConfig `yaml:"log" toml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen      string `yaml:"listen" toml:"listen"`
	MaxUploadMB int    `yaml:"maxUploadMB" toml:"maxUploadMB"`
}

// CatalogConfig points at the map metadata service.
type CatalogConfig struct {
	BaseURL  string        `yaml:"baseUrl" toml:"baseUrl"`
	PageURL  string        `yaml:"pageUrl" toml:"pageUrl"` // prefix for map page links (QR codes)
	Timeout  time.Duration `yaml:"timeout" toml:"timeout"`
	RetryMax int           `yaml:"retryMax" toml:"retryMax"`
}

// RatingsConfig points at the rating service.
type RatingsConfig struct {
	BaseURL  string        `yaml:"baseUrl" toml:"baseUrl"`
	Timeout  time.Duration `yaml:"timeout" toml:"timeout"`
	RetryMax int           `yaml:"retryMax" toml:"retryMax"`
}

// BatchConfig holds batch pipeline settings.
type BatchConfig struct {
	RetryDelay time.Duration `yaml:"retryDelay" toml:"retryDelay"`
	// MaxRetries bounds rate-limit retries per group; negative means no limit.
	MaxRetries int `yaml:"maxRetries" toml:"maxRetries"`
	MaxRecords int `yaml:"maxRecords" toml:"maxRecords"`
}

// RenderConfig holds renderer and layout settings.
type RenderConfig struct {
	FontsDir       string        `yaml:"fontsDir" toml:"fontsDir"`
	LayoutsDir     string        `yaml:"layoutsDir" toml:"layoutsDir"`
	LayoutPattern  string        `yaml:"layoutPattern" toml:"layoutPattern"`
	WatchLayouts   bool          `yaml:"watchLayouts" toml:"watchLayouts"`
	ImageTimeout   time.Duration `yaml:"imageTimeout" toml:"imageTimeout"`
	ImageCacheSize int           `yaml:"imageCacheSize" toml:"imageCacheSize"`
}

// Load reads a config file and applies environment variable overrides. A
// missing file is not an error; defaults and environment apply. Files ending
// in .toml are parsed as TOML, anything else as YAML.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err != nil && !os.IsNotExist(err):
			return nil, fmt.Errorf("reading config file: %w", err)
		case err == nil:
			if err := decode(path, data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks value ranges and required fields.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.maxUploadMB must be positive")
	}
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.baseUrl is required")
	}
	if c.Ratings.BaseURL == "" {
		return fmt.Errorf("ratings.baseUrl is required")
	}
	if c.Catalog.Timeout <= 0 || c.Ratings.Timeout <= 0 || c.Render.ImageTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.Catalog.RetryMax < 0 || c.Ratings.RetryMax < 0 {
		return fmt.Errorf("retryMax must not be negative")
	}
	if c.Batch.RetryDelay <= 0 {
		return fmt.Errorf("batch.retryDelay must be positive")
	}
	if c.Batch.MaxRecords <= 0 {
		return fmt.Errorf("batch.maxRecords must be positive")
	}
	if c.Render.LayoutPattern == "" {
		return fmt.Errorf("render.layoutPattern is required")
	}

	switch c.Log.Format {
	case "text", "json", "":
	default:
		return fmt.Errorf("log.format %q is invalid (expected text/json)", c.Log.Format)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("log.level %q is invalid (expected debug/info/warn/error)", c.Log.Level)
	}
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:      ":8080",
			MaxUploadMB: 16,
		},
		Catalog: CatalogConfig{
			BaseURL:  "https://api.beatsaver.com",
			PageURL:  "https://beatsaver.com/maps",
			Timeout:  10 * time.Second,
			RetryMax: 2,
		},
		Ratings: RatingsConfig{
			BaseURL:  "https://scoresaber.com/api",
			Timeout:  10 * time.Second,
			RetryMax: 2,
		},
		Batch: BatchConfig{
			RetryDelay: 1500 * time.Millisecond,
			MaxRetries: 20,
			MaxRecords: 5000,
		},
		Render: RenderConfig{
			LayoutsDir:     "layouts",
			LayoutPattern:  "**/*.json",
			WatchLayouts:   true,
			ImageTimeout:   15 * time.Second,
			ImageCacheSize: 64,
		},
		Log: logging.LogConfig{
			Format:     "json",
			Level:      "info",
			TimeFormat: "rfc3339nano",
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Listen = ":" + v
	}
	if v := os.Getenv("CARDFORGE_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("CARDFORGE_CATALOG_URL"); v != "" {
		cfg.Catalog.BaseURL = v
	}
	if v := os.Getenv("CARDFORGE_RATINGS_URL"); v != "" {
		cfg.Ratings.BaseURL = v
	}
	if v := os.Getenv("CARDFORGE_LAYOUTS_DIR"); v != "" {
		cfg.Render.LayoutsDir = v
	}
	if v := os.Getenv("CARDFORGE_FONTS_DIR"); v != "" {
		cfg.Render.FontsDir = v
	}
	if v := os.Getenv("CARDFORGE_BATCH_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.MaxRetries = n
		}
	}
	if v := os.Getenv("CARDFORGE_BATCH_RETRY_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Batch.RetryDelay = d
		}
	}

	// Log overrides.
	if v := os.Getenv("CARDFORGE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("CARDFORGE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}
	if v := os.Getenv("CARDFORGE_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}
