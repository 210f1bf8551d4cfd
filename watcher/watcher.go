// Package watcher reports debounced changes under the corpus root so a
// refresh can run before the next scheduled one.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultInterval is the quiet period before a batch is emitted.
const DefaultInterval = 300 * time.Millisecond

// IgnoreChecker decides which paths the watcher skips.
type IgnoreChecker interface {
	ShouldIgnoreDir(absolutePath string) bool
	ShouldIgnore(absolutePath string) bool
}

// Options configures a Watcher.
type Options struct {
	RootDir string
	Ignore  IgnoreChecker
	// Relevant filters create and write events by file name. Removals and
	// renames always pass, since they may concern a whole directory.
	Relevant func(name string) bool
	// Interval is the debounce quiet period. Zero selects DefaultInterval.
	Interval time.Duration
	Logger   *slog.Logger
}

// Watcher watches the root recursively and batches relevant events.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	options   Options
	logger    *slog.Logger
}

// NewWatcher registers every non-ignored directory under options.RootDir.
func NewWatcher(options Options) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if options.Interval <= 0 {
		options.Interval = DefaultInterval
	}
	if options.Relevant == nil {
		options.Relevant = func(string) bool { return true }
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		debouncer: NewDebouncer(options.Interval),
		options:   options,
		logger:    options.Logger,
	}

	err = filepath.WalkDir(options.RootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != options.RootDir && options.Ignore.ShouldIgnoreDir(path) {
			return filepath.SkipDir
		}
		if watchErr := fsWatcher.Add(path); watchErr != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", watchErr)
		}
		return nil
	})
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return w, nil
}

// Events returns the channel of debounced batches.
func (w *Watcher) Events() <-chan []DebouncedEvent {
	return w.debouncer.Output()
}

// Start pumps fsnotify events into the debouncer until ctx is done or the
// watcher is closed. Call it in a goroutine.
func (w *Watcher) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if w.options.Ignore.ShouldIgnoreDir(path) {
				return
			}
			if err := w.fsWatcher.Add(path); err != nil {
				w.logger.Warn("failed to watch new directory", "path", path, "error", err)
			}
			// Documents may already exist in a directory moved into the root.
			w.debouncer.Add(path, OpCreate)
			return
		}
	}

	if w.options.Ignore.ShouldIgnore(path) {
		return
	}

	var op EventOp
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	if (op == OpCreate || op == OpWrite) && !w.options.Relevant(filepath.Base(path)) {
		return
	}
	w.debouncer.Add(path, op)
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.debouncer.Stop()
	return w.fsWatcher.Close()
}
