package skills

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces bursts of filesystem events (e.g. an editor
// writing a skill file in several steps) into a single reload.
const watchDebounce = 250 * time.Millisecond

// Watcher reloads a Loader's skill index when its directories change.
type Watcher struct {
	loader  *Loader
	watcher *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a Watcher for loader. Each configured directory (and
// its immediate skill subdirectories) is watched if it exists.
func NewWatcher(loader *Loader) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{loader: loader, watcher: fw}
	for _, dir := range loader.Dirs() {
		w.addDir(dir)
	}
	return w, nil
}

func (w *Watcher) addDir(dir string) {
	if _, err := os.Stat(dir); err != nil {
		return
	}
	if err := w.watcher.Add(dir); err != nil {
		slog.Debug("skills: failed to watch directory", "dir", dir, "error", err)
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			_ = w.watcher.Add(dir + "/" + e.Name())
		}
	}
}

// Start begins watching in the background until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.scheduleReload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("skills: watch error", "error", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(watchDebounce, w.loader.Reload)
}

// Stop releases the underlying filesystem watch.
func (w *Watcher) Stop() {
	w.watcher.Close()
}
