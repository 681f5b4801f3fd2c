package fsutil

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/specialistvlad/globalplanner/internal/ctxlog"
)

// DefaultDebounce coalesces the burst of events editors emit on save.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reports changes to a fixed set of files. It watches the parent
// directories so files replaced by rename (atomic saves) keep being tracked.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	targets  map[string]bool

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher creates a watcher for paths. A non-positive debounce falls back
// to DefaultDebounce.
func NewWatcher(paths []string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher:  fw,
		debounce: debounce,
		targets:  make(map[string]bool),
		timers:   make(map[string]*time.Timer),
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Run delivers debounced change notifications to onChange until ctx is
// cancelled. onChange runs on a timer goroutine.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("File watcher started.", "files", len(w.targets))
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("File watcher stopping.")
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !w.targets[abs] {
				continue
			}
			w.schedule(ctx, abs, onChange)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("File watcher error.", "error", err)
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, path string, onChange func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		ctxlog.FromContext(ctx).Info("📄 Watched file changed.", "path", path)
		onChange(path)
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
}

// Close releases the underlying watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
