// Package viewer owns the state of the single viewing session: the current
// snapshot, the navigation controller, sidebar and search state, and the
// background refresh machinery. Every mutation happens under one lock.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/lexandro/mdview-mcp/ignore"
	"github.com/lexandro/mdview-mcp/index"
	"github.com/lexandro/mdview-mcp/navigation"
	"github.com/lexandro/mdview-mcp/reconcile"
	"github.com/lexandro/mdview-mcp/render"
	"github.com/lexandro/mdview-mcp/scan"
	"github.com/lexandro/mdview-mcp/search"
)

// ErrNoRoot is returned by operations that need an open root folder.
var ErrNoRoot = errors.New("no root folder open")

// Config holds the session options that come from the command line.
type Config struct {
	BaseURL         string
	StartURL        string
	Exclude         []string
	MaxFileSize     int64
	RefreshInterval time.Duration
	Watch           bool
}

// Session is the viewer. It is safe for concurrent use.
type Session struct {
	mu     sync.Mutex
	rootMu sync.Mutex // serializes root changes

	config   Config
	store    Store
	renderer *render.Renderer
	logger   *slog.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	files    *index.FileIndex
	fulltext *index.FullTextIndex
	history  *navigation.MemoryHistory
	nav      *navigation.Controller

	rootDir    string
	started    bool
	generation uint64
	reconciler *reconcile.Reconciler
	refresher  *reconcile.AutoRefresher
	stopWatch  context.CancelFunc

	readHistory map[string]int64
	prefs       preferences

	query         string
	matches       []search.Match
	searchScroll  int
	treeScroll    int
	contentScroll int
	expanded      map[string]bool

	openHTML     string
	openHeadings []render.Heading
	openLinks    []render.Link
	anchor       string
	revealed     string
	status       string
	lastRefresh  time.Time
}

// NewSession creates a session with no root. Preferences are read from
// store; unreadable preferences fall back to the defaults.
func NewSession(ctx context.Context, config Config, store Store, logger *slog.Logger) (*Session, error) {
	fulltext, err := index.NewFullTextIndex()
	if err != nil {
		return nil, fmt.Errorf("creating full-text index: %w", err)
	}

	prefs, err := loadPreferences(ctx, store)
	if err != nil {
		logger.Warn("failed to load preferences, using defaults", "error", err)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		config:      config,
		store:       store,
		renderer:    render.New(),
		logger:      logger,
		now:         time.Now,
		ctx:         sessionCtx,
		cancel:      cancel,
		files:       index.NewFileIndex(),
		fulltext:    fulltext,
		history:     navigation.NewMemoryHistory(config.BaseURL, config.StartURL),
		readHistory: make(map[string]int64),
		prefs:       prefs,
		expanded:    make(map[string]bool),
	}
	s.nav = navigation.NewController(s.history, display{s}, readRecorder{s}, logger)
	return s, nil
}

// SetClock overrides the clock used for read history and relative times.
func (s *Session) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	s.nav.SetClock(now)
}

// OpenRoot scans dir and makes it the session root. The scan and the content
// preload run before anything is published; a cancelled ctx leaves the
// session untouched and returns nil. Background refresh for the previous root
// is stopped, and any of its results still in flight are discarded.
func (s *Session) OpenRoot(ctx context.Context, dir string) error {
	s.rootMu.Lock()
	defer s.rootMu.Unlock()

	rootDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving root %s: %w", dir, err)
	}
	matcher := ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:          rootDir,
		CustomPatterns:   s.config.Exclude,
		MaxFileSizeBytes: s.config.MaxFileSize,
	})
	scanner, err := scan.New(matcher, s.logger)
	if err != nil {
		return fmt.Errorf("opening root %s: %w", rootDir, err)
	}

	start := time.Now()
	s.setStatus("Scanning folder…")
	records, err := scanner.Scan(ctx)
	if err != nil {
		s.setStatus("")
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("scanning %s: %w", rootDir, err)
	}

	s.setStatus(fmt.Sprintf("Loading %d documents…", len(records)))
	if err := index.Preload(ctx, records, s.logger); err != nil {
		s.setStatus("")
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("loading documents: %w", err)
	}

	readHistory, err := s.store.LoadReadHistory(ctx, rootDir)
	if err != nil {
		s.logger.Warn("failed to load read history", "root", rootDir, "error", err)
		readHistory = make(map[string]int64)
	}

	s.mu.Lock()
	s.generation++
	generation := s.generation
	oldRefresher, oldStopWatch := s.refresher, s.stopWatch

	s.rootDir = rootDir
	s.readHistory = readHistory
	s.files.Rebuild(records)
	if err := s.fulltext.Rebuild(records); err != nil {
		s.logger.Warn("failed to build full-text index", "error", err)
	}
	s.expanded = defaultExpanded(s.files.Tree())
	s.query, s.matches = "", nil
	s.searchScroll, s.treeScroll = 0, 0
	s.status = ""
	s.lastRefresh = s.now()

	if !s.started {
		s.started = true
		s.nav.Start(s.history.Current().Path)
	} else {
		s.nav.Close()
	}

	s.reconciler = reconcile.NewReconciler(scanner, workspace{s}, generation, s.logger)
	s.refresher = reconcile.NewAutoRefresher(s.reconciler, s.config.RefreshInterval, s.logger)
	s.stopWatch = nil
	refresher := s.refresher
	autoRefresh := s.prefs.autoRefresh
	s.mu.Unlock()

	if oldRefresher != nil {
		oldRefresher.Stop()
	}
	if oldStopWatch != nil {
		oldStopWatch()
	}
	if autoRefresh {
		refresher.Start(s.ctx)
	}
	if s.config.Watch {
		s.startWatcher(generation, matcher, refresher)
	}

	s.logger.Info("root opened",
		"root", rootDir,
		"files", len(records),
		"generation", generation,
		"duration", time.Since(start),
	)
	return nil
}

// Reload runs a visible refresh now.
func (s *Session) Reload(ctx context.Context) (reconcile.Result, error) {
	s.mu.Lock()
	reconciler := s.reconciler
	s.mu.Unlock()
	if reconciler == nil {
		return reconcile.Result{}, ErrNoRoot
	}
	return reconciler.Refresh(ctx, reconcile.RefreshOptions{})
}

// Close stops background work and releases the indexes.
func (s *Session) Close() error {
	s.mu.Lock()
	refresher, stopWatch := s.refresher, s.stopWatch
	s.refresher, s.stopWatch = nil, nil
	s.mu.Unlock()

	s.cancel()
	if refresher != nil {
		refresher.Stop()
	}
	if stopWatch != nil {
		stopWatch()
	}
	s.nav.Detach()
	return s.fulltext.Close()
}

func (s *Session) setStatus(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = message
}

func (s *Session) isRead(record *index.DocumentRecord) bool {
	readAt, ok := s.readHistory[record.Path]
	return ok && readAt >= record.LastModified
}

func (s *Session) requireRoot() error {
	if s.rootDir == "" {
		return ErrNoRoot
	}
	return nil
}
