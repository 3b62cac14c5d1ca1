// Package watch re-renders a document whenever its modification time
// advances.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Watcher polls a file's modification time and also listens for fsnotify
// events on its directory so edits are picked up without waiting for the
// next tick.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(ctx context.Context) error
	watcher  *fsnotify.Watcher
	limiter  *rate.Limiter
	logger   zerolog.Logger

	lastMod time.Time
}

// New creates a watcher for path. onChange runs once on the first check and
// again after every modification.
func New(path string, interval time.Duration, onChange func(context.Context) error, logger zerolog.Logger) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Editors often replace files by rename, so watch the directory.
	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return &Watcher{
		path:     absPath,
		interval: interval,
		onChange: onChange,
		watcher:  fsWatcher,
		limiter:  rate.NewLimiter(rate.Every(interval/4), 1),
		logger:   logger.With().Str("component", "watch").Logger(),
	}, nil
}

// Run blocks until ctx is done or onChange fails. An onChange error stops
// the watch and is returned.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.check(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-ticker.C:
			if err := w.check(ctx); err != nil {
				return err
			}

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != w.path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// Bursts of events are left to the next tick.
			if !w.limiter.Allow() {
				continue
			}
			w.logger.Debug().Str("op", event.Op.String()).Msg("file changed")
			if err := w.check(ctx); err != nil {
				return err
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watch error")
		}
	}
}

// check calls onChange if the file is newer than at the last call.
func (w *Watcher) check(ctx context.Context) error {
	info, err := os.Stat(w.path)
	if err != nil {
		return err
	}
	if !info.ModTime().After(w.lastMod) {
		return nil
	}
	w.lastMod = info.ModTime()
	return w.onChange(ctx)
}

// Close stops listening for file events.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
