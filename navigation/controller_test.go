package navigation

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDisplay struct {
	documents map[string]bool
	shown     []string
	options   []ShowOptions
	cleared   int
}

func newFakeDisplay(paths ...string) *fakeDisplay {
	d := &fakeDisplay{documents: make(map[string]bool)}
	for _, p := range paths {
		d.documents[p] = true
	}
	return d
}

func (d *fakeDisplay) HasDocument(path string) bool { return d.documents[path] }

func (d *fakeDisplay) ShowDocument(path string, options ShowOptions) error {
	d.shown = append(d.shown, path)
	d.options = append(d.options, options)
	return nil
}

func (d *fakeDisplay) ClearDocument() { d.cleared++ }

type fakeReads map[string]time.Time

func (r fakeReads) MarkRead(path string, at time.Time) { r[path] = at }

func newTestController(startURL string, paths ...string) (*Controller, *MemoryHistory, *fakeDisplay, fakeReads) {
	history := NewMemoryHistory("mdview://viewer", startURL)
	display := newFakeDisplay(paths...)
	reads := fakeReads{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewController(history, display, reads, logger), history, display, reads
}

func Test_Controller_OpenBackLeavesNoFileOpen(t *testing.T) {
	c, history, display, _ := newTestController("mdview://viewer", "a/b.md")

	c.Start("")
	assert.Equal(t, NoFileOpen, c.State())

	require.NoError(t, c.OpenByUserAction("a/b.md"))
	assert.Equal(t, FileOpen, c.State())
	assert.Equal(t, "mdview://viewer?file=a%2Fb.md", history.URL())

	require.True(t, history.Back())
	assert.Equal(t, NoFileOpen, c.State())
	assert.Equal(t, "mdview://viewer", history.URL())
	assert.Equal(t, 1, display.cleared)

	require.True(t, history.Forward())
	assert.Equal(t, "a/b.md", c.CurrentPath())
	assert.Equal(t, []string{"a/b.md", "a/b.md"}, display.shown)
}

func Test_Controller_OpenByUserActionMarksReadAndReveals(t *testing.T) {
	c, _, display, reads := newTestController("", "a.md")
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c.SetClock(func() time.Time { return fixed })

	require.NoError(t, c.OpenByUserAction("a.md"))
	assert.Equal(t, fixed, reads["a.md"])
	assert.True(t, display.options[0].Reveal)
}

func Test_Controller_OpenByUserActionUnknown(t *testing.T) {
	c, history, _, _ := newTestController("", "a.md")

	err := c.OpenByUserAction("missing.md")
	assert.ErrorIs(t, err, ErrUnknownDocument)
	assert.Equal(t, 1, history.Len())
	assert.Equal(t, NoFileOpen, c.State())
}

func Test_Controller_ReopenDoesNotPushDuplicate(t *testing.T) {
	c, history, _, _ := newTestController("", "a.md")

	require.NoError(t, c.OpenByUserAction("a.md"))
	require.NoError(t, c.OpenByUserAction("a.md"))
	assert.Equal(t, 2, history.Len())
}

func Test_Controller_StartFromDeepLink(t *testing.T) {
	c, history, display, reads := newTestController("mdview://viewer?file=docs%2Fx.md", "docs/x.md")
	entryID := history.Current().ID

	c.Start(ParseURL("mdview://viewer?file=docs%2Fx.md"))
	assert.Equal(t, FileOpen, c.State())
	assert.Equal(t, 1, history.Len())
	assert.Equal(t, entryID, history.Current().ID)
	assert.Empty(t, reads, "replay does not record read history")
	assert.False(t, display.options[0].Reveal)
}

func Test_Controller_StartFromUnresolvableDeepLink(t *testing.T) {
	c, history, display, _ := newTestController("mdview://viewer?file=gone.md", "a.md")

	c.Start("gone.md")
	assert.Equal(t, NoFileOpen, c.State())
	assert.Equal(t, "", history.Current().Path)
	assert.Equal(t, "mdview://viewer", history.URL())
	assert.Empty(t, display.shown)
}

func Test_Controller_CloseReplacesEntry(t *testing.T) {
	c, history, display, _ := newTestController("", "a.md")

	require.NoError(t, c.OpenByUserAction("a.md"))
	c.Close()
	assert.Equal(t, NoFileOpen, c.State())
	assert.Equal(t, 2, history.Len())
	assert.Equal(t, "", history.Current().Path)
	assert.Equal(t, 1, display.cleared)

	c.Close()
	assert.Equal(t, 2, history.Len())
}

func Test_Controller_ReplayReplaceEntry(t *testing.T) {
	c, history, _, _ := newTestController("", "a.md", "b.md")

	require.NoError(t, c.OpenByUserAction("a.md"))
	require.NoError(t, c.OpenByReplay("b.md", ReplaceEntry, 120))
	assert.Equal(t, 2, history.Len())
	assert.Equal(t, "b.md", history.Current().Path)

	require.NoError(t, c.OpenByReplay("a.md", NoEntryWrite, 0))
	assert.Equal(t, "b.md", history.Current().Path)
	assert.Equal(t, "a.md", c.CurrentPath())
}

func Test_Controller_PopStateUnknownOnlyWarns(t *testing.T) {
	c, _, display, _ := newTestController("", "a.md")

	require.NoError(t, c.OpenByUserAction("a.md"))
	c.HandlePopState(Entry{Path: "gone.md"})
	assert.Equal(t, "a.md", c.CurrentPath())
	assert.Equal(t, 0, display.cleared)
}

func Test_Controller_Detach(t *testing.T) {
	c, history, display, _ := newTestController("", "a.md")

	require.NoError(t, c.OpenByUserAction("a.md"))
	c.Detach()
	require.True(t, history.Back())
	assert.Equal(t, FileOpen, c.State())
	assert.Equal(t, 0, display.cleared)
}
