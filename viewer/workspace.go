package viewer

import (
	"fmt"
	"sort"
	"time"

	"github.com/lexandro/mdview-mcp/index"
	"github.com/lexandro/mdview-mcp/navigation"
	"github.com/lexandro/mdview-mcp/reconcile"
	"github.com/lexandro/mdview-mcp/search"
)

// workspace is the reconcile side of the session.
type workspace struct{ s *Session }

var _ reconcile.Workspace = workspace{}

func (w workspace) Snapshot() []*index.DocumentRecord {
	return w.s.files.Records()
}

func (w workspace) Status(message string) {
	w.s.setStatus(message)
}

// Apply swaps the snapshot in one critical section: capture, rebuild,
// restore. Nothing can observe the session between the steps.
func (w workspace) Apply(generation uint64, records []*index.DocumentRecord) (bool, error) {
	s := w.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return false, nil
	}

	state := s.captureUiState()
	s.files.Rebuild(records)
	if err := s.fulltext.Rebuild(records); err != nil {
		s.logger.Warn("failed to rebuild full-text index", "error", err)
	}
	s.restoreUiState(state)
	s.lastRefresh = s.now()
	return true, nil
}

func (s *Session) captureUiState() reconcile.UiState {
	expanded := make([]string, 0, len(s.expanded))
	for dir, open := range s.expanded {
		if open {
			expanded = append(expanded, dir)
		}
	}
	sort.Strings(expanded)

	return reconcile.UiState{
		OpenPath:      s.nav.CurrentPath(),
		ContentScroll: s.contentScroll,
		Query:         s.query,
		SearchScroll:  s.searchScroll,
		ViewMode:      string(s.prefs.viewMode),
		ExpandedDirs:  expanded,
		TreeScroll:    s.treeScroll,
	}
}

// restoreUiState reapplies state to the freshly rebuilt snapshot. Directories
// that no longer exist are dropped; new directories start collapsed. The open
// document is reopened by replay, or closed when it vanished.
func (s *Session) restoreUiState(state reconcile.UiState) {
	if mode := ViewMode(state.ViewMode); mode.Valid() {
		s.prefs.viewMode = mode
	}

	dirs := s.files.Tree().DirPaths()
	s.expanded = make(map[string]bool, len(state.ExpandedDirs))
	for _, dir := range state.ExpandedDirs {
		if dirs[dir] {
			s.expanded[dir] = true
		}
	}
	s.treeScroll = state.TreeScroll

	if state.Query != "" {
		s.query = state.Query
		s.matches = search.Search(s.files.Records(), state.Query)
		s.searchScroll = state.SearchScroll
	} else {
		s.query, s.matches, s.searchScroll = "", nil, 0
	}

	if state.OpenPath == "" {
		return
	}
	if s.files.GetFile(state.OpenPath) == nil {
		s.logger.Info("open document no longer exists, closing", "path", state.OpenPath)
		s.nav.Close()
		return
	}
	if err := s.nav.OpenByReplay(state.OpenPath, navigation.ReplaceEntry, state.ContentScroll); err != nil {
		s.logger.Warn("failed to restore open document", "path", state.OpenPath, "error", err)
	}
}

// display is the navigation side of the session. Its methods run with the
// session lock held.
type display struct{ s *Session }

var _ navigation.Display = display{}

func (d display) HasDocument(path string) bool {
	return d.s.files.GetFile(path) != nil
}

func (d display) ShowDocument(path string, options navigation.ShowOptions) error {
	s := d.s
	record := s.files.GetFile(path)
	if record == nil {
		return fmt.Errorf("%w: %s", navigation.ErrUnknownDocument, path)
	}
	text, err := record.Read(s.ctx)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	rendered, err := s.renderer.Render(text)
	if err != nil {
		return err
	}

	s.openHTML = rendered
	s.openHeadings = s.renderer.Headings(text)
	s.openLinks = s.renderer.Links(text)
	s.contentScroll = options.ScrollTop
	s.anchor = ""
	if options.Reveal {
		for _, dir := range ancestors(path) {
			s.expanded[dir] = true
		}
		s.revealed = path
	}
	return nil
}

func (d display) ClearDocument() {
	s := d.s
	s.openHTML = ""
	s.openHeadings = nil
	s.openLinks = nil
	s.contentScroll = 0
	s.anchor = ""
}

// readRecorder stores read timestamps in memory and in the store. It runs
// with the session lock held.
type readRecorder struct{ s *Session }

var _ navigation.ReadRecorder = readRecorder{}

func (r readRecorder) MarkRead(path string, at time.Time) {
	s := r.s
	readAt := at.UnixMilli()
	s.readHistory[path] = readAt
	if err := s.store.MarkRead(s.ctx, s.rootDir, path, readAt); err != nil {
		s.logger.Warn("failed to persist read history", "path", path, "error", err)
	}
}
