package config

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/teranos/stagegen/errors"
	"github.com/teranos/stagegen/logger"
)

// ChangeCallback receives the paths that changed during one debounce window.
type ChangeCallback func(changed []string)

// Watcher reports debounced file changes under a set of files and
// directories. It backs both config reloads and `stagegen watch`.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	filter   func(path string) bool

	mu        sync.Mutex
	callbacks []ChangeCallback
	pending   map[string]struct{}
	timer     *time.Timer
	ownWrites map[string]time.Time
}

// NewWatcher watches paths (files or directories, not recursive).
func NewWatcher(debounce time.Duration, paths ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	w := &Watcher{
		watcher:   fw,
		debounce:  debounce,
		pending:   make(map[string]struct{}),
		ownWrites: make(map[string]time.Time),
	}
	for _, p := range paths {
		if err := w.Add(p); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Add starts watching path.
func (w *Watcher) Add(path string) error {
	if err := w.watcher.Add(path); err != nil {
		return errors.Wrapf(err, "failed to watch %s", path)
	}
	return nil
}

// SetFilter restricts reported changes to paths for which fn returns true.
func (w *Watcher) SetFilter(fn func(path string) bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.filter = fn
}

// OnChange registers a callback.
func (w *Watcher) OnChange(cb ChangeCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// MarkOwnWrite suppresses events for path for the next debounce window, so
// files written by the callback do not trigger it again.
func (w *Watcher) MarkOwnWrite(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ownWrites[filepath.Clean(path)] = time.Now().Add(w.debounce + 100*time.Millisecond)
}

// Run dispatches events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if isBackupFile(event.Name) || w.isOwnWrite(event.Name) {
				continue
			}
			logger.Debugw("Watcher detected change", logger.FieldFile, event.Name, "op", event.Op.String())
			w.schedule(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("Watcher error", logger.FieldError, err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) isOwnWrite(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	path = filepath.Clean(path)
	until, ok := w.ownWrites[path]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(w.ownWrites, path)
		return false
	}
	return true
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.filter != nil && !w.filter(path) {
		return
	}
	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	w.pending = make(map[string]struct{})
	callbacks := make([]ChangeCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	if len(changed) == 0 {
		return
	}
	sort.Strings(changed)
	for _, cb := range callbacks {
		cb(changed)
	}
}

// WatchFiles reloads the configuration whenever one of its files changes
// and hands the new value to onReload. Reload errors are logged and the
// previous configuration stays in effect.
func WatchFiles(ctx context.Context, debounce time.Duration, onReload func(*Config)) (*Watcher, error) {
	var paths []string
	for _, p := range ConfigFiles() {
		// Editors replace files; watching the directory survives that
		paths = append(paths, filepath.Dir(p))
	}
	w, err := NewWatcher(debounce, paths...)
	if err != nil {
		return nil, err
	}
	files := ConfigFiles()
	w.SetFilter(func(path string) bool {
		for _, f := range files {
			if sameFile(f, path) {
				return true
			}
		}
		return false
	})
	w.OnChange(func(changed []string) {
		Reset()
		cfg, err := Load()
		if err != nil {
			logger.Errorw("Config reload failed", logger.FieldError, err)
			return
		}
		logger.Infow("Config reloaded", "files", changed)
		onReload(cfg)
	})
	go func() {
		if err := w.Run(ctx); err != nil {
			logger.Warnw("Config watcher stopped", logger.FieldError, err)
		}
	}()
	return w, nil
}

func sameFile(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	ia, errA := os.Stat(a)
	ib, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(ia, ib)
}
