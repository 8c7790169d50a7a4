package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/hay-kot/criterio"

	"github.com/JoCoor/flatfinder-client/internal/core/styles"
)

// Validate checks that the configuration is valid. Errors are reported per
// field as criterio.FieldErrors.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("data_dir", c.DataDir, notEmpty),
		criterio.Run("api.base_url", c.API.BaseURL, urlWithScheme("http", "https")),
		criterio.Run("realtime.url", c.Realtime.URL, urlWithScheme("ws", "wss")),
		c.validateRealtime(),
		c.validateDatabase(),
		criterio.Run("ui.theme", c.UI.Theme, knownTheme),
	)
}

// ValidateDeep runs Validate and then checks file system access for the
// config file and data directory.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func (c *Config) validateRealtime() error {
	var errs criterio.FieldErrorsBuilder

	if c.Realtime.JoinEvent == "" {
		errs = errs.Append("realtime.join_event", fmt.Errorf("cannot be empty"))
	}
	if c.Realtime.MessageEvent == "" {
		errs = errs.Append("realtime.message_event", fmt.Errorf("cannot be empty"))
	}
	if c.Realtime.JoinEvent != "" && c.Realtime.JoinEvent == c.Realtime.MessageEvent {
		errs = errs.Append("realtime.message_event", fmt.Errorf("must differ from join_event %q", c.Realtime.JoinEvent))
	}
	if c.Realtime.ReconnectDelay < 0 {
		errs = errs.Append("realtime.reconnect_delay", fmt.Errorf("must not be negative"))
	}

	return errs.ToError()
}

func (c *Config) validateDatabase() error {
	var errs criterio.FieldErrorsBuilder

	if c.Database.MaxOpenConns < 1 {
		errs = errs.Append("database.max_open_conns", fmt.Errorf("must be at least 1"))
	}
	if c.Database.MaxIdleConns < 0 {
		errs = errs.Append("database.max_idle_conns", fmt.Errorf("must not be negative"))
	}
	if c.Database.BusyTimeout < 0 {
		errs = errs.Append("database.busy_timeout", fmt.Errorf("must not be negative"))
	}

	return errs.ToError()
}

func notEmpty(s string) error {
	if s == "" {
		return fmt.Errorf("cannot be empty")
	}
	return nil
}

func knownTheme(name string) error {
	if _, ok := styles.GetPalette(name); !ok {
		return fmt.Errorf("unknown theme %q, expected one of %v", name, styles.ThemeNames())
	}
	return nil
}

func urlWithScheme(schemes ...string) func(string) error {
	return func(raw string) error {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid url: %w", err)
		}
		if u.Host == "" {
			return fmt.Errorf("url %q has no host", raw)
		}
		for _, s := range schemes {
			if u.Scheme == s {
				return nil
			}
		}
		return fmt.Errorf("url %q must use scheme %v", raw, schemes)
	}
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}
