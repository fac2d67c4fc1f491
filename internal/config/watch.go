package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits after the last file event before
// re-reading the file. Editors often write in several steps.
const DefaultDebounce = 250 * time.Millisecond

// WatchOption configures Watch.
type WatchOption func(*watcher)

// WithWatchLogger sets the logger for reload and rejection messages.
func WithWatchLogger(l *slog.Logger) WatchOption {
	return func(w *watcher) { w.log = l }
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *watcher) { w.debounce = d }
}

type watcher struct {
	path     string
	fn       func(*Config)
	log      *slog.Logger
	debounce time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	lastHash uint64
}

// Watch observes path and calls fn with every changed config that loads and
// validates. Invalid edits are logged and skipped; the previous config stays
// in effect. Watch blocks until ctx is done.
//
// The directory is watched rather than the file so that atomic
// rename-into-place saves are seen.
func Watch(ctx context.Context, path string, fn func(*Config), opts ...WatchOption) error {
	w := &watcher{path: path, fn: fn, log: slog.Default(), debounce: DefaultDebounce}
	for _, o := range opts {
		o(w)
	}
	if data, err := os.ReadFile(path); err == nil {
		w.lastHash = xxhash.Sum64(data)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	defer fw.Close()
	dir := filepath.Dir(path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("config: watch %s: %w", dir, err)
	}
	w.log.Debug("config watcher started", "path", path)

	file := filepath.Base(path)
	for {
		select {
		case <-ctx.Done():
			w.stop()
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return errors.New("config: watch: event channel closed")
			}
			if filepath.Base(ev.Name) != file {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.schedule()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("config: watch: error channel closed")
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.log.Warn("config watch overflow; forcing reload", "path", path)
				w.schedule()
				continue
			}
			w.log.Warn("config watch error", "path", path, "err", err)
		}
	}
}

func (w *watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.log.Warn("config reload failed", "path", w.path, "err", err)
		return
	}
	h := xxhash.Sum64(data)
	w.mu.Lock()
	unchanged := h == w.lastHash
	w.mu.Unlock()
	if unchanged {
		return
	}

	cfg, err := Load(w.path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		w.log.Warn("config rejected", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	w.lastHash = h
	w.mu.Unlock()
	w.log.Info("config reloaded", "path", w.path)
	w.fn(cfg)
}
