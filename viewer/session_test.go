package viewer

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexandro/mdview-mcp/links"
	"github.com/lexandro/mdview-mcp/navigation"
	"github.com/lexandro/mdview-mcp/reconcile"
)

const testBaseURL = "mdview://viewer"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeDoc(t *testing.T, root string, relPath string, content string, modTime time.Time) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func newTestSession(t *testing.T, root string, config Config, store Store) *Session {
	t.Helper()
	if config.BaseURL == "" {
		config.BaseURL = testBaseURL
	}
	if config.RefreshInterval == 0 {
		config.RefreshInterval = time.Hour
	}
	if store == nil {
		store = NewMemoryStore()
	}
	s, err := NewSession(context.Background(), config, store, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.OpenRoot(context.Background(), root))
	return s
}

var past = time.Now().Add(-time.Hour).Truncate(time.Second)

func Test_Session_OpenThenBackClosesDocument(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "a/b.md", "# B", past)
	s := newTestSession(t, root, Config{}, nil)

	require.NoError(t, s.Open("a/b.md"))
	assert.Equal(t, testBaseURL+"?file=a%2Fb.md", s.URL())
	assert.Equal(t, navigation.FileOpen, s.State().Navigation)

	require.True(t, s.Back())
	state := s.State()
	assert.Equal(t, navigation.NoFileOpen, state.Navigation)
	assert.Equal(t, testBaseURL, state.URL)
	_, open := s.Document()
	assert.False(t, open)

	require.True(t, s.Forward())
	doc, open := s.Document()
	require.True(t, open)
	assert.Equal(t, "a › b.md", doc.Breadcrumb)
}

func Test_Session_UnchangedRefreshKeepsUiState(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "a/b.md", "# B\n\nneedle", past)
	writeDoc(t, root, "a/c/d.md", "# D", past)
	s := newTestSession(t, root, Config{}, nil)

	require.NoError(t, s.Open("a/b.md"))
	content, tree := 120, 40
	s.SetScroll(ScrollOffsets{Content: &content, Tree: &tree})
	s.Search("needle")
	_, err := s.ToggleDir("a/c")
	require.NoError(t, err)
	before := s.State()

	result, err := s.Reload(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Equal(t, before, s.State())
}

func Test_Session_ChangedRefreshRestoresUiState(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "a/b.md", "# B\n\nneedle", past)
	writeDoc(t, root, "a/c/d.md", "# D", past)
	s := newTestSession(t, root, Config{}, nil)

	clock := time.Now()
	s.SetClock(func() time.Time { clock = clock.Add(time.Second); return clock })

	require.NoError(t, s.Open("a/b.md"))
	readAt := s.readHistory["a/b.md"]
	content := 120
	s.SetScroll(ScrollOffsets{Content: &content})
	s.Search("needle")
	_, err := s.ToggleDir("a/c")
	require.NoError(t, err)
	entries := s.history.Len()

	writeDoc(t, root, "a/c/new.md", "needle too", past)
	writeDoc(t, root, "z/e.md", "# E", past)

	result, err := s.Reload(context.Background())
	require.NoError(t, err)
	require.True(t, result.Changed)

	state := s.State()
	assert.Equal(t, "a/b.md", state.OpenPath)
	assert.Equal(t, 120, state.ContentScroll)
	assert.Equal(t, "needle", state.Query)
	assert.Equal(t, 2, state.MatchCount)
	assert.Equal(t, []string{"a"}, state.ExpandedDirs)
	assert.Equal(t, entries, s.history.Len())
	assert.Equal(t, readAt, s.readHistory["a/b.md"])
	assert.Equal(t, testBaseURL+"?file=a%2Fb.md", state.URL)
}

func Test_Session_RefreshClosesVanishedDocument(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "keep.md", "keep", past)
	writeDoc(t, root, "gone.md", "gone", past)
	s := newTestSession(t, root, Config{}, nil)

	require.NoError(t, s.Open("gone.md"))
	require.NoError(t, os.Remove(filepath.Join(root, "gone.md")))

	result, err := s.Reload(context.Background())
	require.NoError(t, err)
	require.True(t, result.Changed)

	state := s.State()
	assert.Equal(t, navigation.NoFileOpen, state.Navigation)
	assert.Equal(t, testBaseURL, state.URL)
}

func Test_Session_RefreshScanErrorKeepsSnapshot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "corpus")
	writeDoc(t, root, "a.md", "a", past)
	s := newTestSession(t, root, Config{}, nil)

	require.NoError(t, os.RemoveAll(root))
	_, err := s.Reload(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, s.State().FileCount)
}

func Test_Session_DeepLink(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "docs/x.md", "# X", past)
	store := NewMemoryStore()
	s := newTestSession(t, root, Config{StartURL: testBaseURL + "?file=docs%2Fx.md"}, store)

	state := s.State()
	assert.Equal(t, "docs/x.md", state.OpenPath)
	assert.False(t, state.CanBack)
	assert.Empty(t, state.Revealed, "deep links do not reveal the sidebar item")

	history, err := store.LoadReadHistory(context.Background(), state.Root)
	require.NoError(t, err)
	assert.Empty(t, history, "deep links do not record read history")
}

func Test_Session_UnresolvableDeepLink(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "a.md", "a", past)
	s := newTestSession(t, root, Config{StartURL: testBaseURL + "?file=missing.md"}, nil)

	state := s.State()
	assert.Equal(t, navigation.NoFileOpen, state.Navigation)
	assert.Equal(t, testBaseURL, state.URL)
}

func Test_Session_Follow(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "docs/guide.md", "# Guide\n\n[Other](other.md#setup)\n", past)
	writeDoc(t, root, "docs/other.md", "# Intro\n\n## Setup\n\ntext\n", past)
	s := newTestSession(t, root, Config{}, nil)
	require.NoError(t, s.Open("docs/guide.md"))

	result, err := s.Follow("other.md#setup")
	require.NoError(t, err)
	assert.Equal(t, FollowDocument, result.Kind)
	assert.Equal(t, "docs/other.md", result.Path)
	assert.Equal(t, "setup", result.Anchor)
	assert.True(t, s.State().CanBack)

	result, err = s.Follow("#intro")
	require.NoError(t, err)
	assert.Equal(t, FollowFragment, result.Kind)
	assert.Equal(t, "intro", result.Anchor)

	result, err = s.Follow("//example.com/page")
	require.NoError(t, err)
	assert.Equal(t, FollowExternal, result.Kind)
	assert.Equal(t, "https://example.com/page", result.URL)

	_, err = s.Follow("missing.md")
	assert.ErrorIs(t, err, links.ErrUnresolved)
	_, err = s.Follow("#nowhere")
	assert.ErrorIs(t, err, links.ErrUnresolved)
	_, err = s.Follow("javascript:alert(1)")
	assert.ErrorIs(t, err, links.ErrUnresolved)
	_, err = s.Follow(" JavaScript:void(0)")
	assert.ErrorIs(t, err, links.ErrUnresolved)
	assert.Equal(t, "docs/other.md", s.State().OpenPath)

	require.True(t, s.Back())
	assert.Equal(t, "docs/guide.md", s.State().OpenPath)
}

func Test_Session_ReadIndicator(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "a.md", "a", past)
	s := newTestSession(t, root, Config{}, nil)
	now := time.Now()
	s.SetClock(func() time.Time { return now })

	require.False(t, s.TreeView()[0].Read)
	require.NoError(t, s.Open("a.md"))
	assert.True(t, s.TreeView()[0].Read)

	future := now.Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(root, "a.md"), future, future))
	_, err := s.Reload(context.Background())
	require.NoError(t, err)
	assert.False(t, s.TreeView()[0].Read)
}

func Test_Session_HiddenToggle(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "a.md", "plan", past)
	writeDoc(t, root, ".drafts/plan.md", "plan", past)
	store := NewMemoryStore()
	s := newTestSession(t, root, Config{}, store)

	assert.Len(t, s.TreeView(), 1)
	assert.Len(t, s.Search("plan"), 2, "search ignores the hidden toggle")

	s.SetShowHidden(context.Background(), true)
	rows := s.TreeView()
	require.Len(t, rows, 3)
	assert.Equal(t, ".drafts", rows[0].Name)
	assert.True(t, rows[0].Hidden)

	value, ok, _ := store.GetSetting(context.Background(), SettingShowHidden)
	assert.True(t, ok)
	assert.Equal(t, "true", value)
}

func Test_Session_PreferencesFromStore(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "a.md", "a", past)
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.PutSetting(ctx, SettingViewMode, "recent"))
	require.NoError(t, store.PutSetting(ctx, SettingAutoRefresh, "false"))
	require.NoError(t, store.PutSetting(ctx, SettingShowHidden, "not-a-bool"))

	s := newTestSession(t, root, Config{}, store)
	state := s.State()
	assert.Equal(t, ViewRecent, state.ViewMode)
	assert.False(t, state.AutoRefresh)
	assert.False(t, state.AutoRefreshRunning)
	assert.False(t, state.ShowHidden)

	s.SetAutoRefresh(ctx, true)
	assert.True(t, s.State().AutoRefreshRunning)
}

func Test_Session_NewRootDiscardsStaleRefresh(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeDoc(t, first, "one.md", "one", past)
	writeDoc(t, second, "two.md", "two", past)
	s := newTestSession(t, first, Config{}, nil)
	require.NoError(t, s.Open("one.md"))

	s.mu.Lock()
	stale := s.reconciler
	s.mu.Unlock()

	require.NoError(t, s.OpenRoot(context.Background(), second))
	state := s.State()
	assert.Equal(t, uint64(2), state.Generation)
	assert.Equal(t, navigation.NoFileOpen, state.Navigation)

	writeDoc(t, first, "late.md", "late", past)
	result, err := stale.Refresh(context.Background(), reconcile.RefreshOptions{Silent: true})
	require.NoError(t, err)
	assert.True(t, result.Stale)

	rows := s.TreeView()
	require.Len(t, rows, 1)
	assert.Equal(t, "two.md", rows[0].Path)
}

func Test_Session_SetAutoRefreshDuringOpenRoot(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeDoc(t, first, "one.md", "one", past)
	writeDoc(t, second, "two.md", "two", past)
	s := newTestSession(t, first, Config{}, nil)
	ctx := context.Background()

	s.mu.Lock()
	old := s.refresher
	s.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.OpenRoot(ctx, second))
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			s.SetAutoRefresh(ctx, i%2 == 0)
		}
	}()
	wg.Wait()

	s.SetAutoRefresh(ctx, true)
	state := s.State()
	assert.Equal(t, uint64(2), state.Generation)
	assert.True(t, state.AutoRefreshRunning)
	assert.False(t, old.Running())
}

func Test_Session_CancelledOpenRootIsNoOp(t *testing.T) {
	first := t.TempDir()
	writeDoc(t, first, "one.md", "one", past)
	s := newTestSession(t, first, Config{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.OpenRoot(ctx, t.TempDir()))

	state := s.State()
	assert.Equal(t, uint64(1), state.Generation)
	assert.Equal(t, 1, state.FileCount)
}

func Test_Session_RequiresRoot(t *testing.T) {
	s, err := NewSession(context.Background(), Config{BaseURL: testBaseURL}, NewMemoryStore(), testLogger())
	require.NoError(t, err)
	defer s.Close()

	assert.ErrorIs(t, s.Open("a.md"), ErrNoRoot)
	_, err = s.Reload(context.Background())
	assert.ErrorIs(t, err, ErrNoRoot)
}

func Test_Session_FoldAndUnfold(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, root, "a/b/c/d.md", "d", past)
	s := newTestSession(t, root, Config{}, nil)

	assert.Equal(t, []string{"a", "a/b"}, s.State().ExpandedDirs)

	s.ExpandAll()
	assert.Len(t, s.TreeView(), 4)

	s.CollapseAll()
	rows := s.TreeView()
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Expanded)

	require.NoError(t, s.Open("a/b/c/d.md"))
	assert.Equal(t, []string{"a", "a/b", "a/b/c"}, s.State().ExpandedDirs, "opening reveals the item")
}
