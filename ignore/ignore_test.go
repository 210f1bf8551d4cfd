package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Matcher_DefaultPatterns_NodeModules(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	assert.True(t, matcher.ShouldIgnore(filepath.Join(tmpDir, "node_modules", "pkg", "README.md")))
}

func Test_Matcher_DefaultPatterns_GitDir(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	assert.True(t, matcher.ShouldIgnore(filepath.Join(tmpDir, ".git", "description")))
}

func Test_Matcher_DefaultPatterns_AllowsHiddenDocs(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	assert.False(t, matcher.ShouldIgnore(filepath.Join(tmpDir, ".drafts", "plan.md")))
	assert.False(t, matcher.ShouldIgnoreDir(filepath.Join(tmpDir, ".drafts")))
	assert.False(t, matcher.ShouldIgnore(filepath.Join(tmpDir, "docs", "guide.md")))
}

func Test_Matcher_DefaultPatterns_ViewerState(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	assert.True(t, matcher.ShouldIgnore(filepath.Join(tmpDir, "mdview-mcp.log")))
	assert.True(t, matcher.ShouldIgnore(filepath.Join(tmpDir, "mdview.db-wal")))
}

func Test_Matcher_GitignoreIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".gitignore"), []byte("*.generated.md\nsecret/\n"), 0644))

	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	assert.True(t, matcher.ShouldIgnore(filepath.Join(tmpDir, "api.generated.md")))
	assert.False(t, matcher.ShouldIgnore(filepath.Join(tmpDir, "api.md")))
}

func Test_Matcher_MdviewignoreIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".mdviewignore"), []byte("*.draft.md\n"), 0644))

	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	assert.True(t, matcher.ShouldIgnore(filepath.Join(tmpDir, "notes.draft.md")))
}

func Test_Matcher_Reload(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})
	target := filepath.Join(tmpDir, "scratch.md")
	assert.False(t, matcher.ShouldIgnore(target))

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".mdviewignore"), []byte("scratch.md\n"), 0644))
	matcher.Reload()
	assert.True(t, matcher.ShouldIgnore(target))
}

func Test_Matcher_CustomPatterns(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{
		RootDir:        tmpDir,
		CustomPatterns: []string{"*.tmp.md", "archive/**"},
	})

	assert.True(t, matcher.ShouldIgnore(filepath.Join(tmpDir, "x.tmp.md")))
	assert.True(t, matcher.ShouldIgnore(filepath.Join(tmpDir, "archive", "2020", "old.md")))
	assert.False(t, matcher.ShouldIgnore(filepath.Join(tmpDir, "current", "new.md")))
}

func Test_Matcher_FileSizeLimit(t *testing.T) {
	matcher := NewMatcher(MatcherOptions{RootDir: t.TempDir(), MaxFileSizeBytes: 1024})

	assert.True(t, matcher.IsFileTooLarge(2048))
	assert.False(t, matcher.IsFileTooLarge(512))
}

func Test_Matcher_ShouldIgnoreDir(t *testing.T) {
	tmpDir := t.TempDir()
	matcher := NewMatcher(MatcherOptions{RootDir: tmpDir})

	tests := []struct {
		dirName string
		ignored bool
	}{
		{".git", true},
		{"node_modules", true},
		{"__pycache__", true},
		{".idea", true},
		{"docs", false},
		{".notes", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ignored, matcher.ShouldIgnoreDir(filepath.Join(tmpDir, tt.dirName)), tt.dirName)
	}
}

func Test_Matcher_DefaultMaxFileSize(t *testing.T) {
	matcher := NewMatcher(MatcherOptions{RootDir: t.TempDir()})
	assert.Equal(t, int64(2*1024*1024), matcher.MaxFileSizeBytes())
}

func Test_IsIgnoreFile(t *testing.T) {
	assert.True(t, IsIgnoreFile(".gitignore"))
	assert.True(t, IsIgnoreFile(".mdviewignore"))
	assert.False(t, IsIgnoreFile("README.md"))
}
