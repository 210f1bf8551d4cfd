package viewer

import (
	"sort"
	"time"

	"github.com/lexandro/mdview-mcp/navigation"
	"github.com/lexandro/mdview-mcp/render"
	"github.com/lexandro/mdview-mcp/search"
)

// State is a read-only summary of the session.
type State struct {
	Root        string
	Generation  uint64
	FileCount   int
	HiddenCount int
	FullText    uint64

	Navigation navigation.State
	OpenPath   string
	URL        string
	CanBack    bool
	CanForward bool
	Revealed   string

	ViewMode           ViewMode
	ShowHidden         bool
	AutoRefresh        bool
	AutoRefreshRunning bool

	Query      string
	MatchCount int

	ContentScroll int
	TreeScroll    int
	SearchScroll  int
	ExpandedDirs  []string

	Status      string
	LastRefresh time.Time
}

// State returns the current summary.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	expanded := make([]string, 0, len(s.expanded))
	for dir, open := range s.expanded {
		if open {
			expanded = append(expanded, dir)
		}
	}
	sort.Strings(expanded)

	state := State{
		Root:          s.rootDir,
		Generation:    s.generation,
		FileCount:     s.files.FileCount(),
		HiddenCount:   s.files.HiddenCount(),
		FullText:      s.fulltext.DocumentCount(),
		Navigation:    s.nav.State(),
		OpenPath:      s.nav.CurrentPath(),
		URL:           s.history.URL(),
		CanBack:       s.history.CanGoBack(),
		CanForward:    s.history.CanGoForward(),
		Revealed:      s.revealed,
		ViewMode:      s.prefs.viewMode,
		ShowHidden:    s.prefs.showHidden,
		AutoRefresh:   s.prefs.autoRefresh,
		Query:         s.query,
		MatchCount:    len(s.matches),
		ContentScroll: s.contentScroll,
		TreeScroll:    s.treeScroll,
		SearchScroll:  s.searchScroll,
		ExpandedDirs:  expanded,
		Status:        s.status,
		LastRefresh:   s.lastRefresh,
	}
	if s.refresher != nil {
		state.AutoRefreshRunning = s.refresher.Running()
	}
	return state
}

// URL returns the shareable URL of the current history entry.
func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.URL()
}

// DocumentView is the open document as displayed.
type DocumentView struct {
	Path          string
	Breadcrumb    string
	Text          string
	HTML          string
	Headings      []render.Heading
	Links         []render.Link
	Anchor        string
	ContentScroll int
	LastModified  int64
	Read          bool
}

// Document returns the open document, false when none is open.
func (s *Session) Document() (DocumentView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.nav.CurrentPath()
	record := s.files.GetFile(path)
	if path == "" || record == nil {
		return DocumentView{}, false
	}
	text, _ := record.Text()
	return DocumentView{
		Path:          path,
		Breadcrumb:    Breadcrumb(path),
		Text:          text,
		HTML:          s.openHTML,
		Headings:      s.openHeadings,
		Links:         s.openLinks,
		Anchor:        s.anchor,
		ContentScroll: s.contentScroll,
		LastModified:  record.LastModified,
		Read:          s.isRead(record),
	}, true
}

// TreeView returns the rows of the tree view.
func (s *Session) TreeView() []TreeRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return treeRows(s.files.Tree(), s.expanded, s.prefs.showHidden, s.isRead, s.nav.CurrentPath())
}

// RecentView returns the rows of the recent view.
func (s *Session) RecentView() []RecentRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return recentRows(s.files.RecentFiles(), s.prefs.showHidden, s.isRead, s.nav.CurrentPath(), s.now())
}

// Matches returns the active query and its matches.
func (s *Session) Matches() (string, []search.Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query, append([]search.Match(nil), s.matches...)
}
