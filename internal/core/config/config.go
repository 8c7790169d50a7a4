// Package config handles configuration loading and validation for flatfinder.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/JoCoor/flatfinder-client/internal/core/realtime"
	"github.com/JoCoor/flatfinder-client/internal/core/styles"
)

// Default push-channel event names. They match the marketplace backend.
const (
	DefaultJoinEvent    = realtime.DefaultJoinEvent
	DefaultMessageEvent = realtime.DefaultMessageEvent
)

// Config holds the application configuration.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Database DatabaseConfig `yaml:"database"`
	UI       UIConfig       `yaml:"ui"`
	DataDir  string         `yaml:"-"` // set by caller, not from config file
}

// APIConfig configures the authenticated request gateway.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"FLATFINDER_API_URL"`
	Timeout time.Duration `yaml:"timeout" env:"FLATFINDER_HTTP_TIMEOUT"`
}

// RealtimeConfig configures the push notification channel.
type RealtimeConfig struct {
	URL            string        `yaml:"url" env:"FLATFINDER_PUSH_URL"`
	Origin         string        `yaml:"origin"`
	JoinEvent      string        `yaml:"join_event"`
	MessageEvent   string        `yaml:"message_event"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	Disabled       bool          `yaml:"disabled" env:"FLATFINDER_PUSH_DISABLED"`
}

// DatabaseConfig holds SQLite connection settings for the session database.
type DatabaseConfig struct {
	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
	BusyTimeout  int `yaml:"busy_timeout"` // milliseconds
}

// UIConfig configures terminal output.
type UIConfig struct {
	Theme string `yaml:"theme" env:"FLATFINDER_THEME"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:5000",
			Timeout: 15 * time.Second,
		},
		Realtime: RealtimeConfig{
			URL:            "ws://localhost:5000/ws",
			JoinEvent:      DefaultJoinEvent,
			MessageEvent:   DefaultMessageEvent,
			ReconnectDelay: 2 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 4,
			MaxIdleConns: 2,
			BusyTimeout:  5000,
		},
		UI: UIConfig{Theme: styles.DefaultTheme},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
// Environment variables override values from the file.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	// Apply defaults for zero values
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaults.API.BaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = defaults.API.Timeout
	}
	if c.Realtime.URL == "" {
		c.Realtime.URL = defaults.Realtime.URL
	}
	if c.Realtime.JoinEvent == "" {
		c.Realtime.JoinEvent = defaults.Realtime.JoinEvent
	}
	if c.Realtime.MessageEvent == "" {
		c.Realtime.MessageEvent = defaults.Realtime.MessageEvent
	}
	if c.Realtime.ReconnectDelay == 0 {
		c.Realtime.ReconnectDelay = defaults.Realtime.ReconnectDelay
	}
	if c.Realtime.Origin == "" {
		c.Realtime.Origin = c.API.BaseURL
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = defaults.Database.BusyTimeout
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// DatabaseFile returns the path to the SQLite file holding persisted session state.
func (c *Config) DatabaseFile() string {
	return filepath.Join(c.DataDir, "flatfinder.db")
}
