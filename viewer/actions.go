package viewer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lexandro/mdview-mcp/index"
	"github.com/lexandro/mdview-mcp/links"
	"github.com/lexandro/mdview-mcp/navigation"
	"github.com/lexandro/mdview-mcp/render"
	"github.com/lexandro/mdview-mcp/search"
)

// Open opens path as a direct user action.
func (s *Session) Open(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireRoot(); err != nil {
		return err
	}
	return s.nav.OpenByUserAction(path)
}

// CloseDocument closes the open document.
func (s *Session) CloseDocument() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nav.Close()
}

// Back steps the history back. It returns false at the oldest entry.
func (s *Session) Back() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Back()
}

// Forward steps the history forward. It returns false at the newest entry.
func (s *Session) Forward() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Forward()
}

// FollowKind says what following a link did.
type FollowKind int

const (
	FollowFragment FollowKind = iota
	FollowDocument
	FollowExternal
)

func (k FollowKind) String() string {
	switch k {
	case FollowFragment:
		return "fragment"
	case FollowDocument:
		return "document"
	case FollowExternal:
		return "external"
	}
	return "unknown"
}

// FollowResult describes a followed link.
type FollowResult struct {
	Kind   FollowKind
	Path   string // Document shown after the follow
	Anchor string // Element id scrolled to, "" for the top
	URL    string // External URL to open outside the viewer
}

// Follow acts on an href found in the open document. In-page fragments
// scroll the content, local links open the target as a user action, and
// external links are returned for an outside opener. A link that does not
// resolve is logged and leaves the session unchanged.
func (s *Session) Follow(href string) (FollowResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireRoot(); err != nil {
		return FollowResult{}, err
	}

	if strings.HasPrefix(href, "#") {
		if s.nav.State() == navigation.NoFileOpen {
			return FollowResult{}, fmt.Errorf("%w: no document open", links.ErrUnresolved)
		}
		target, ok := s.resolveFragment(href)
		if !ok {
			s.logger.Warn("fragment target not found", "href", href, "path", s.nav.CurrentPath())
			return FollowResult{}, fmt.Errorf("%w: %s", links.ErrUnresolved, href)
		}
		s.applyFragment(target)
		return FollowResult{Kind: FollowFragment, Path: s.nav.CurrentPath(), Anchor: target.ID}, nil
	}

	if render.IsScriptURL(href) {
		s.logger.Warn("refusing script link", "href", href)
		return FollowResult{}, fmt.Errorf("%w: %s", links.ErrUnresolved, href)
	}

	if links.ClassifyLink(href) == links.LinkExternal {
		return FollowResult{Kind: FollowExternal, URL: links.ExternalURL(href)}, nil
	}

	paths := s.files.Paths()
	resolved, ok := links.ResolveLinkedFilePath(href, s.nav.CurrentPath(), paths)
	if ok && strings.HasPrefix(strings.ToLower(href), "file://") {
		if candidates := links.MatchingSuffixPaths(href, paths); len(candidates) > 1 {
			s.logger.Debug("ambiguous file link, using first match", "href", href, "candidates", candidates)
		}
	}
	if !ok || s.files.GetFile(resolved) == nil {
		s.logger.Warn("link target not found", "href", href, "resolved", resolved)
		return FollowResult{}, fmt.Errorf("%w: %s", links.ErrUnresolved, href)
	}

	if err := s.nav.OpenByUserAction(resolved); err != nil {
		return FollowResult{}, err
	}
	result := FollowResult{Kind: FollowDocument, Path: resolved}
	if links.ParseFragmentID(href) != "" {
		if target, ok := s.resolveFragment(href); ok {
			s.applyFragment(target)
			result.Anchor = target.ID
		} else {
			s.logger.Warn("fragment target not found", "href", href, "path", resolved)
		}
	}
	return result, nil
}

func (s *Session) resolveFragment(href string) (links.FragmentTarget, bool) {
	page, err := render.Page(s.nav.CurrentPath(), s.openHTML)
	if err != nil {
		s.logger.Warn("failed to build page for fragment lookup", "error", err)
		return links.FragmentTarget{}, false
	}
	finder, err := links.NewHTMLPage(page)
	if err != nil {
		s.logger.Warn("failed to parse page for fragment lookup", "error", err)
		return links.FragmentTarget{}, false
	}
	return links.ResolveFragmentTarget(finder, render.ContentRootID, href)
}

func (s *Session) applyFragment(target links.FragmentTarget) {
	if target.Top {
		s.contentScroll = 0
		s.anchor = ""
		return
	}
	s.anchor = target.ID
}

// Search sets the interactive query and returns its matches. An empty query
// leaves search mode.
func (s *Session) Search(query string) []search.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = query
	s.matches = search.Search(s.files.Records(), query)
	s.searchScroll = 0
	return append([]search.Match(nil), s.matches...)
}

// FullText runs a word-level query over the snapshot.
func (s *Session) FullText(options index.FullTextOptions) ([]index.FullTextResult, int, error) {
	return s.fulltext.Search(options)
}

// Glob lists documents matching a doublestar pattern.
func (s *Session) Glob(pattern string, maxResults int) ([]*index.DocumentRecord, error) {
	return s.files.SearchByGlob(pattern, maxResults)
}

// ToggleDir flips the expanded state of a directory.
func (s *Session) ToggleDir(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.files.Tree().DirPaths()[path] {
		return false, fmt.Errorf("unknown directory: %s", path)
	}
	s.expanded[path] = !s.expanded[path]
	return s.expanded[path], nil
}

// ExpandAll expands every directory.
func (s *Session) ExpandAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expanded = s.files.Tree().DirPaths()
}

// CollapseAll collapses every directory.
func (s *Session) CollapseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expanded = make(map[string]bool)
}

// SetShowHidden toggles hidden entries in the sidebar and persists the choice.
func (s *Session) SetShowHidden(ctx context.Context, show bool) {
	s.mu.Lock()
	s.prefs.showHidden = show
	s.mu.Unlock()
	s.persist(ctx, SettingShowHidden, strconv.FormatBool(show))
}

// SetViewMode switches the sidebar mode and persists the choice.
func (s *Session) SetViewMode(ctx context.Context, mode ViewMode) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown view mode: %q", mode)
	}
	s.mu.Lock()
	s.prefs.viewMode = mode
	s.mu.Unlock()
	s.persist(ctx, SettingViewMode, string(mode))
	return nil
}

// SetAutoRefresh starts or stops background refresh and persists the choice.
// It holds the root lock so OpenRoot cannot swap the refresher meanwhile.
func (s *Session) SetAutoRefresh(ctx context.Context, enabled bool) {
	s.rootMu.Lock()
	defer s.rootMu.Unlock()

	s.mu.Lock()
	s.prefs.autoRefresh = enabled
	refresher := s.refresher
	s.mu.Unlock()

	if refresher != nil {
		if enabled {
			refresher.Start(s.ctx)
		} else {
			refresher.Stop()
		}
	}
	s.persist(ctx, SettingAutoRefresh, strconv.FormatBool(enabled))
}

func (s *Session) persist(ctx context.Context, key string, value string) {
	if err := s.store.PutSetting(ctx, key, value); err != nil {
		s.logger.Warn("failed to persist setting", "key", key, "error", err)
	}
}

// ScrollOffsets are the scroll positions the UI reports back. Nil fields are
// left unchanged.
type ScrollOffsets struct {
	Content *int
	Tree    *int
	Search  *int
}

// SetScroll records scroll positions.
func (s *Session) SetScroll(offsets ScrollOffsets) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offsets.Content != nil {
		s.contentScroll = max(0, *offsets.Content)
	}
	if offsets.Tree != nil {
		s.treeScroll = max(0, *offsets.Tree)
	}
	if offsets.Search != nil {
		s.searchScroll = max(0, *offsets.Search)
	}
}
