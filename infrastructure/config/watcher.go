package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"catalog-backend/infrastructure/persistence/cache"
)

const debounceDelay = 250 * time.Millisecond

// PolicyWatcher reloads the cache policy file when it changes and hands
// every valid result to apply. Invalid files are logged and skipped, so the
// policy in force stays unchanged.
type PolicyWatcher struct {
	path    string
	base    cache.Options
	apply   func(cache.Options) error
	watcher *fsnotify.Watcher
	logger  *zap.Logger
}

// NewPolicyWatcher watches the directory holding path. Watching the
// directory keeps working when editors replace the file.
func NewPolicyWatcher(path string, base cache.Options, apply func(cache.Options) error, logger *zap.Logger) (*PolicyWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}
	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	return &PolicyWatcher{
		path:    abs,
		base:    base,
		apply:   apply,
		watcher: fsWatcher,
		logger:  logger,
	}, nil
}

// Run blocks until ctx is done.
func (w *PolicyWatcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	var debounce *time.Timer
	reload := make(chan struct{}, 1)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping cache policy watcher")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			w.Reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

// Reload reads the file once and applies it.
func (w *PolicyWatcher) Reload() {
	opts, err := LoadCachePolicy(w.path, w.base)
	if err != nil {
		w.logger.Error("Invalid cache policy, keeping the current one",
			zap.String("file", w.path),
			zap.Error(err),
		)
		return
	}
	if err := w.apply(opts); err != nil {
		w.logger.Error("Failed to apply cache policy", zap.Error(err))
		return
	}
	w.logger.Info("Cache policy reloaded", zap.String("file", w.path))
}
