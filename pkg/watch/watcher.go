// Package watch re-runs a scan when markup or code files change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/panbanda/resprune/internal/logging"
	"github.com/panbanda/resprune/internal/scanner"
	"github.com/panbanda/resprune/pkg/config"
	"github.com/panbanda/resprune/pkg/resource"
)

// DefaultDebounce is how long a file must stay quiet before it is reported.
const DefaultDebounce = 500 * time.Millisecond

// Callback receives one batch of changed files, sorted.
type Callback func(ctx context.Context, paths []string)

// Watcher monitors a project tree and reports debounced batches of changed
// markup and code files.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    *config.Config
	scanner   *scanner.Scanner
	detector  *resource.Detector
	logger    *slog.Logger
	debounce  time.Duration
	path      string
	callback  Callback
	mu        sync.Mutex
	pending   map[string]time.Time
}

// NewWatcher creates a watcher for path.
func NewWatcher(path string, cfg *config.Config, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	sc := scanner.NewScanner(cfg)
	return &Watcher{
		fsWatcher: fsWatcher,
		config:    cfg,
		scanner:   sc,
		detector:  sc.Detector(),
		logger:    logging.Discard(),
		debounce:  debounce,
		path:      path,
		pending:   make(map[string]time.Time),
	}, nil
}

// SetCallback sets the function called with each batch of changes.
func (w *Watcher) SetCallback(cb Callback) {
	w.callback = cb
}

// SetLogger sets the logger.
func (w *Watcher) SetLogger(logger *slog.Logger) {
	w.logger = logger
}

// addTree watches dir and every directory below it that is not skipped.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("skipping unreadable directory", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.config.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// Start watches until ctx is cancelled or the watcher is stopped.
func (w *Watcher) Start(ctx context.Context) error {
	if _, err := w.scanner.ScanDir(w.path); err != nil {
		return err
	}
	if err := w.addTree(w.path); err != nil {
		return err
	}
	w.logger.Info("watching for changes", "path", w.path, "directories", len(w.WatchedFiles()))

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

// handleEvent records a relevant change. New directories are watched too.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	path := event.Name

	if event.Op&fsnotify.Create != 0 {
		if ok, err := w.scanner.ScanFile(path); err == nil && !ok {
			if isDir(path) && !w.config.SkipDir(filepath.Base(path)) {
				if err := w.addTree(path); err != nil {
					w.logger.Warn("cannot watch directory", "path", path, "error", err)
				}
			}
			return
		}
	}
	if !w.relevant(path, event.Op) {
		return
	}

	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// relevant reports whether a change to path can affect a scan. Removed
// files cannot be inspected, so only their name is checked.
func (w *Watcher) relevant(path string, op fsnotify.Op) bool {
	if op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		return w.detector.Detect(path) != resource.DialectUnknown
	}
	ok, err := w.scanner.ScanFile(path)
	return err == nil && ok
}

// processDebounced flushes pending changes until ctx is done.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if batch := w.takeReady(time.Now()); len(batch) > 0 && w.callback != nil {
				w.callback(ctx, batch)
			}
		}
	}
}

// takeReady removes and returns the files quiet for the debounce period.
func (w *Watcher) takeReady(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, lastMod := range w.pending {
		if now.Sub(lastMod) >= w.debounce {
			ready = append(ready, path)
		}
	}
	for _, path := range ready {
		delete(w.pending, path)
	}
	sort.Strings(ready)
	return ready
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedFiles returns the watched directories.
func (w *Watcher) WatchedFiles() []string {
	return w.fsWatcher.WatchList()
}
