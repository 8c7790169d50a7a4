// Package fswatch reports bursts of file changes in a directory.
package fswatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultQuiet is how long a directory must stay unchanged before a burst
// of writes is reported.
const DefaultQuiet = 100 * time.Millisecond

// Watcher watches one directory for changes to files whose base name
// matches a predicate.
type Watcher struct {
	fs     *fsnotify.Watcher
	match  func(name string) bool
	quiet  time.Duration
	logger zerolog.Logger
}

// New starts watching dir, creating it if needed. Call Run to receive
// changes; Run closes the watcher when it returns.
func New(dir string, match func(name string) bool, quiet time.Duration, logger zerolog.Logger) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return &Watcher{fs: fw, match: match, quiet: quiet, logger: logger}, nil
}

// Run calls fn once after each burst of matching changes until ctx ends.
// fn runs on the Run goroutine, so calls never overlap.
func (w *Watcher) Run(ctx context.Context, fn func()) {
	defer func() { _ = w.fs.Close() }()

	var settle *time.Timer
	defer func() {
		if settle != nil {
			settle.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !w.match(filepath.Base(ev.Name)) {
				continue
			}
			if settle == nil {
				settle = time.NewTimer(w.quiet)
			} else {
				settle.Reset(w.quiet)
			}

		case <-timerC(settle):
			settle = nil
			fn()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("file watcher error")
		}
	}
}

func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}
