package navigation

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrUnknownDocument is returned when a path does not name a document in the
// current snapshot.
var ErrUnknownDocument = errors.New("unknown document")

// State is the controller state.
type State int

const (
	NoFileOpen State = iota
	FileOpen
)

func (s State) String() string {
	if s == FileOpen {
		return "FileOpen"
	}
	return "NoFileOpen"
}

// ShowOptions controls how a document is displayed.
type ShowOptions struct {
	// ScrollTop is the content scroll offset to restore.
	ScrollTop int
	// Reveal scrolls the sidebar item into view. Only user actions reveal.
	Reveal bool
}

// Display is the presentation side the controller drives.
type Display interface {
	HasDocument(path string) bool
	ShowDocument(path string, options ShowOptions) error
	ClearDocument()
}

// ReadRecorder stores the read-history timestamp of a document.
type ReadRecorder interface {
	MarkRead(path string, at time.Time)
}

// ReplayMode says what an implicit open writes to the history.
type ReplayMode int

const (
	// ReplaceEntry rewrites the current entry so the URL names the document.
	// Used for deep links and reconciliation restores.
	ReplaceEntry ReplayMode = iota
	// NoEntryWrite leaves the history alone. Used for back/forward, where
	// the platform has already moved to the entry.
	NoEntryWrite
)

// Controller is the navigation state machine. It is the only writer of
// history entries. It is not safe for concurrent use; the owning session
// serializes calls.
type Controller struct {
	history History
	display Display
	reads   ReadRecorder
	logger  *slog.Logger
	now     func() time.Time

	current     string
	unsubscribe func()
}

// NewController wires a controller to history and subscribes it to
// back/forward notifications.
func NewController(history History, display Display, reads ReadRecorder, logger *slog.Logger) *Controller {
	c := &Controller{
		history: history,
		display: display,
		reads:   reads,
		logger:  logger,
		now:     time.Now,
	}
	c.unsubscribe = history.Subscribe(c.HandlePopState)
	return c
}

// SetClock overrides the read-history clock.
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
}

// Detach stops listening to back/forward notifications.
func (c *Controller) Detach() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// State returns NoFileOpen or FileOpen.
func (c *Controller) State() State {
	if c.current == "" {
		return NoFileOpen
	}
	return FileOpen
}

// CurrentPath returns the open document path, "" when none is open.
func (c *Controller) CurrentPath() string {
	return c.current
}

// Start derives the initial state from the path carried by the start URL.
// A resolvable path is opened by replay; if the current entry already names
// it, nothing is written. An unresolvable path is dropped from the URL.
func (c *Controller) Start(urlPath string) {
	if urlPath == "" {
		return
	}
	if !c.display.HasDocument(urlPath) {
		c.logger.Warn("deep link names unknown document", "path", urlPath)
		if c.history.Current().Path != "" {
			c.history.Replace("")
		}
		return
	}
	if err := c.OpenByReplay(urlPath, ReplaceEntry, 0); err != nil {
		c.logger.Warn("failed to open deep link", "path", urlPath, "error", err)
	}
}

// OpenByUserAction opens path as a direct user action: the sidebar item is
// revealed, a read timestamp is recorded and a new history entry is pushed.
// Reopening the document of the current entry does not push a duplicate.
func (c *Controller) OpenByUserAction(path string) error {
	if !c.display.HasDocument(path) {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, path)
	}
	if err := c.display.ShowDocument(path, ShowOptions{Reveal: true}); err != nil {
		return fmt.Errorf("showing %s: %w", path, err)
	}
	c.current = path
	if c.reads != nil {
		c.reads.MarkRead(path, c.now())
	}
	if c.history.Current().Path != path {
		c.history.Push(path)
	}
	return nil
}

// OpenByReplay opens path without recording read history, without revealing
// the sidebar item and without pushing an entry.
func (c *Controller) OpenByReplay(path string, mode ReplayMode, scrollTop int) error {
	if !c.display.HasDocument(path) {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, path)
	}
	if err := c.display.ShowDocument(path, ShowOptions{ScrollTop: scrollTop}); err != nil {
		return fmt.Errorf("showing %s: %w", path, err)
	}
	c.current = path
	if mode == ReplaceEntry && c.history.Current().Path != path {
		c.history.Replace(path)
	}
	return nil
}

// Close clears the open document and replaces the current entry with an
// empty path. Closing is not a navigable step of its own.
func (c *Controller) Close() {
	c.display.ClearDocument()
	c.current = ""
	if c.history.Current().Path != "" {
		c.history.Replace("")
	}
}

// HandlePopState reacts to a back/forward transition.
func (c *Controller) HandlePopState(entry Entry) {
	switch {
	case entry.Path == "":
		if c.current != "" {
			c.display.ClearDocument()
			c.current = ""
		}
	case !c.display.HasDocument(entry.Path):
		c.logger.Warn("history entry names unknown document", "path", entry.Path)
	case entry.Path != c.current:
		if err := c.OpenByReplay(entry.Path, NoEntryWrite, 0); err != nil {
			c.logger.Warn("failed to replay history entry", "path", entry.Path, "error", err)
		}
	}
}
