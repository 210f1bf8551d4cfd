package viewer

import (
	"context"
	"path/filepath"

	"github.com/lexandro/mdview-mcp/ignore"
	"github.com/lexandro/mdview-mcp/reconcile"
	"github.com/lexandro/mdview-mcp/scan"
	"github.com/lexandro/mdview-mcp/watcher"
)

func relevantName(name string) bool {
	return scan.IsAllowed(name) || ignore.IsIgnoreFile(name)
}

// startWatcher watches the root of generation and turns change batches into
// early refreshes. It gives up quietly if the root changed meanwhile.
func (s *Session) startWatcher(generation uint64, matcher *ignore.Matcher, refresher *reconcile.AutoRefresher) {
	fileWatcher, err := watcher.NewWatcher(watcher.Options{
		RootDir:  matcher.RootDir(),
		Ignore:   matcher,
		Relevant: relevantName,
		Logger:   s.logger,
	})
	if err != nil {
		s.logger.Warn("failed to start file watcher, continuing with periodic refresh only", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		cancel()
		fileWatcher.Close()
		return
	}
	s.stopWatch = cancel
	s.mu.Unlock()

	go fileWatcher.Start(ctx)
	go s.handleWatcherEvents(ctx, fileWatcher, matcher, refresher)
}

// handleWatcherEvents reloads ignore rules when an ignore file changes and
// asks the refresher for an early pass on every batch.
func (s *Session) handleWatcherEvents(ctx context.Context, fileWatcher *watcher.Watcher, matcher *ignore.Matcher, refresher *reconcile.AutoRefresher) {
	defer fileWatcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case batch := <-fileWatcher.Events():
			reload := false
			for _, event := range batch {
				if ignore.IsIgnoreFile(filepath.Base(event.Path)) {
					reload = true
				}
				s.logger.Debug("change detected", "path", event.Path, "op", event.Op)
			}
			if reload {
				matcher.Reload()
				s.logger.Info("reloaded ignore rules")
			}
			refresher.Trigger()
		}
	}
}
