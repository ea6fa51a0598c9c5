package cliconfig

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const debounceDelay = 250 * time.Millisecond

// Watcher monitors the config file and re-derives the configuration when
// it changes on disk, so a running daemon can pick up new tunables
// (threshold, digest interval, call delay) without a restart.
//
// The watch is on the parent directory, not the file: editors and atomic
// writers replace config files by rename, which drops a file-level watch.
type Watcher struct {
	path    string
	base    Config
	changed map[string]bool
	log     zerolog.Logger

	mu       sync.Mutex
	debounce *time.Timer
}

// NewWatcher creates a watcher for the config file at path. base is the
// configuration before file application (defaults, env, flags) and changed
// is the set of explicitly-set flags, which keep their precedence across
// reloads.
func NewWatcher(path string, base Config, changed map[string]bool, log zerolog.Logger) *Watcher {
	return &Watcher{path: path, base: base, changed: changed, log: log}
}

// Run blocks until ctx is canceled, invoking apply with a validated fresh
// Config after every file change. Watch setup failures are logged and
// disable live reload; they never take the daemon down.
func (w *Watcher) Run(ctx context.Context, apply func(Config)) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warn().Err(err).Msg("config watcher unavailable, live reload disabled")
		return
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		w.log.Warn().Err(err).Str("path", w.path).Msg("cannot watch config directory, live reload disabled")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload(apply)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) scheduleReload(apply func(Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(debounceDelay, func() {
		w.reload(apply)
	})
}

func (w *Watcher) reload(apply func(Config)) {
	fc, err := LoadFileConfig(w.path)
	if err != nil {
		w.log.Warn().Err(err).Str("path", w.path).Msg("config reload failed, keeping current settings")
		return
	}

	cfg := w.base
	if err := ApplyFileConfig(&cfg, fc, w.changed); err != nil {
		w.log.Warn().Err(err).Msg("config reload rejected, keeping current settings")
		return
	}
	if err := cfg.Validate(); err != nil {
		w.log.Warn().Err(err).Msg("reloaded config invalid, keeping current settings")
		return
	}

	w.log.Info().Str("path", w.path).Msg("config reloaded")
	apply(cfg)
}
