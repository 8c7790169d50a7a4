// Package logutils builds the zerolog loggers used by the flatfinder binaries.
package logutils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// New returns a JSON logger. An empty file means stderr, keeping stdout free
// for command output. The returned func closes the log file, if any.
//
// The level parameter can be one of: trace, debug, info, warn, error, fatal.
func New(level, file string) (zerolog.Logger, func(), error) {
	noop := func() {}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), noop, fmt.Errorf("log level: %w", err)
	}
	if file == "" {
		return build(os.Stderr, lvl), noop, nil
	}

	f, err := openAppend(file)
	if err != nil {
		return zerolog.Nop(), noop, err
	}
	return build(f, lvl), func() { _ = f.Close() }, nil
}

// NewConsole returns a human-readable logger writing to w, for processes
// that run in the foreground such as the development server.
func NewConsole(level string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}
	return build(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}, lvl), nil
}

func build(w io.Writer, lvl zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func openAppend(file string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
