package commands

import (
	"os"
	"path/filepath"
)

// Flags holds the global options shared by every subcommand.
type Flags struct {
	LogLevel     string
	LogFile      string
	ConfigPath   string
	DataDir      string
	ProfilerPort int
}

// xdgDir resolves an XDG base directory, falling back to fallback under $HOME.
func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(append([]string{home}, fallback...)...)
}

// DefaultConfigPath is $XDG_CONFIG_HOME/flatfinder/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "flatfinder", "config.yaml")
}

// DefaultDataDir is $XDG_DATA_HOME/flatfinder. It holds the session
// database and the log file.
func DefaultDataDir() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), "flatfinder")
}
