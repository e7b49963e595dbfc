package router

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 400 * time.Millisecond

// Reloader watches the anchor file and hot-swaps the router's anchor set
// when it changes. The parent directory is watched rather than the file
// itself so atomic rename-into-place writes are seen.
type Reloader struct {
	path     string
	router   *Router
	logger   *zap.Logger
	mu       sync.Mutex
	timer    *time.Timer
	watcher  *fsnotify.Watcher
	stopOnce sync.Once
	done     chan struct{}
}

// NewReloader returns a reloader for the anchor file at path.
func NewReloader(path string, r *Router, logger *zap.Logger) *Reloader {
	return &Reloader{
		path:   path,
		router: r,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (rl *Reloader) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(rl.path)); err != nil {
		_ = watcher.Close()
		return err
	}
	rl.watcher = watcher
	go rl.run(ctx)
	return nil
}

// Stop ends the watch. Safe to call more than once.
func (rl *Reloader) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.done)
		if rl.watcher != nil {
			_ = rl.watcher.Close()
		}
	})
}

func (rl *Reloader) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			rl.Stop()
			return
		case <-rl.done:
			return
		case ev, ok := <-rl.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(rl.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			rl.scheduleReload()
		case err, ok := <-rl.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				rl.logger.Debug("anchor watcher error", zap.Error(err))
			}
		}
	}
}

// scheduleReload debounces bursts of events into a single reload.
func (rl *Reloader) scheduleReload() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.timer != nil {
		rl.timer.Stop()
	}
	rl.timer = time.AfterFunc(reloadDebounce, rl.reload)
}

func (rl *Reloader) reload() {
	set, err := LoadAnchorFile(rl.path)
	if err != nil {
		rl.logger.Warn("anchor reload failed, keeping current set",
			zap.String("path", rl.path), zap.Error(err))
		return
	}
	if err := rl.router.SetAnchors(set); err != nil {
		rl.logger.Warn("anchor swap failed, keeping current set",
			zap.String("path", rl.path), zap.Error(err))
		return
	}
	rl.logger.Info("anchors reloaded",
		zap.String("path", rl.path),
		zap.Int("positive", len(set.Positive)),
		zap.Int("negative", len(set.Negative)))
}
