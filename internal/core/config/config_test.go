package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := Load(filepath.Join(dataDir, "nope.yaml"), dataDir)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.API.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, "ws://localhost:5000/ws", cfg.Realtime.URL)
	assert.Equal(t, DefaultJoinEvent, cfg.Realtime.JoinEvent)
	assert.Equal(t, DefaultMessageEvent, cfg.Realtime.MessageEvent)
	assert.Equal(t, "http://localhost:5000", cfg.Realtime.Origin)
	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dataDir, "flatfinder.db"), cfg.DatabaseFile())
	assert.Equal(t, "tokyo-night", cfg.UI.Theme)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://api.flats.example
  timeout: 3s
realtime:
  url: wss://push.flats.example/ws
  message_event: new-message
  reconnect_delay: 500ms
`)

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "https://api.flats.example", cfg.API.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, "wss://push.flats.example/ws", cfg.Realtime.URL)
	assert.Equal(t, "new-message", cfg.Realtime.MessageEvent)
	assert.Equal(t, DefaultJoinEvent, cfg.Realtime.JoinEvent, "unset fields keep defaults")
	assert.Equal(t, 500*time.Millisecond, cfg.Realtime.ReconnectDelay)
	assert.Equal(t, "https://api.flats.example", cfg.Realtime.Origin)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://api.flats.example
`)
	t.Setenv("FLATFINDER_API_URL", "http://127.0.0.1:9999")
	t.Setenv("FLATFINDER_PUSH_URL", "ws://127.0.0.1:9999/ws")

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9999", cfg.API.BaseURL)
	assert.Equal(t, "ws://127.0.0.1:9999/ws", cfg.Realtime.URL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "api: [not, a, map")

	_, err := Load(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoad_InvalidBaseURL(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: ftp://example.com
`)

	_, err := Load(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func validConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.applyDefaults()
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig(t)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{
			name:   "empty data dir",
			mutate: func(c *Config) { c.DataDir = "" },
			field:  "data_dir",
		},
		{
			name:   "push url with http scheme",
			mutate: func(c *Config) { c.Realtime.URL = "http://localhost:5000/ws" },
			field:  "realtime.url",
		},
		{
			name:   "same join and message event",
			mutate: func(c *Config) { c.Realtime.MessageEvent = c.Realtime.JoinEvent },
			field:  "realtime.message_event",
		},
		{
			name:   "negative reconnect delay",
			mutate: func(c *Config) { c.Realtime.ReconnectDelay = -time.Second },
			field:  "realtime.reconnect_delay",
		},
		{
			name:   "unknown theme",
			mutate: func(c *Config) { c.UI.Theme = "solarized-neon" },
			field:  "ui.theme",
		},
		{
			name:   "zero open connections",
			mutate: func(c *Config) { c.Database.MaxOpenConns = 0 },
			field:  "database.max_open_conns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)

			err := cfg.Validate()

			var fieldErrs criterio.FieldErrors
			require.ErrorAs(t, err, &fieldErrs)
			require.Len(t, fieldErrs, 1)
			assert.Equal(t, tt.field, fieldErrs[0].Field)
		})
	}
}

func TestValidateDeep_DataDirIsFile(t *testing.T) {
	cfg := validConfig(t)
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	cfg.DataDir = file

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, "data_dir", fieldErrs[0].Field)
	assert.Contains(t, fieldErrs[0].Err.Error(), "not a directory")
}

func TestValidateDeep_ConfigPathIsDirectory(t *testing.T) {
	cfg := validConfig(t)

	err := cfg.ValidateDeep(t.TempDir())

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, "config_file", fieldErrs[0].Field)
}
