package model

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// debounceWindow coalesces editor write bursts (truncate+write, rename swaps)
// into a single reload.
const debounceWindow = 500 * time.Millisecond

// Watcher hot-reloads a registry from its YAML file when the file changes.
// A broken edit is logged and skipped; the registry keeps serving the last
// good configuration.
type Watcher struct {
	registry *Registry
	path     string
	logger   *slog.Logger

	mu      sync.Mutex
	pending *time.Timer
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger for the watcher.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// NewWatcher creates a watcher for the given registry file.
func NewWatcher(registry *Registry, path string, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		registry: registry,
		path:     path,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the registry file until the context is cancelled.
// It watches the parent directory rather than the file itself so that
// atomic rename-based saves keep working.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.logger.Info("Watching model registry for changes", "path", w.path)

	target := filepath.Clean(w.path)

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", "error", err)
		}
	}
}

// scheduleReload arms (or re-arms) the debounce timer.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(debounceWindow, w.reload)
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
}

// reload re-reads the registry file and swaps the configuration in.
func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("Registry reload failed, keeping previous configuration",
			"path", w.path, "error", err)
		return
	}

	var cfg RegistryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		w.logger.Warn("Registry reload failed, keeping previous configuration",
			"path", w.path, "error", err)
		return
	}

	if err := w.registry.MergeFromConfig(&cfg); err != nil {
		w.logger.Warn("Registry reload failed, keeping previous configuration",
			"path", w.path, "error", err)
		return
	}

	w.logger.Info("Reloaded model registry",
		"path", w.path,
		"endpoints", len(cfg.Endpoints),
		"capabilities", len(cfg.Capabilities))
}
