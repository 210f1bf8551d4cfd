package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecord(path string, lastModified int64) *DocumentRecord {
	return NewDocumentRecord(path, lastModified, nil)
}

func Test_FileIndex_RebuildAndGetFile(t *testing.T) {
	fi := NewFileIndex()
	fi.Rebuild([]*DocumentRecord{newTestRecord("src/main.md", 1), newTestRecord("README.md", 2)})

	got := fi.GetFile("src/main.md")
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.LastModified)
	assert.Nil(t, fi.GetFile("missing.md"))
	assert.Equal(t, 2, fi.FileCount())
}

func Test_FileIndex_RebuildReplacesSnapshot(t *testing.T) {
	fi := NewFileIndex()
	fi.Rebuild([]*DocumentRecord{newTestRecord("a.md", 1)})
	fi.Rebuild([]*DocumentRecord{newTestRecord("b.md", 1)})

	assert.Nil(t, fi.GetFile("a.md"))
	assert.NotNil(t, fi.GetFile("b.md"))
	assert.Equal(t, []string{"b.md"}, fi.Paths())
}

func Test_FileIndex_PathsKeepScanOrder(t *testing.T) {
	fi := NewFileIndex()
	fi.Rebuild([]*DocumentRecord{newTestRecord("z.md", 0), newTestRecord("a.md", 0), newTestRecord("z.md", 5)})

	assert.Equal(t, []string{"z.md", "a.md"}, fi.Paths(), "duplicates keep the first record")
	assert.Equal(t, int64(0), fi.GetFile("z.md").LastModified)
}

func Test_FileIndex_RecentFiles(t *testing.T) {
	fi := NewFileIndex()
	fi.Rebuild([]*DocumentRecord{
		newTestRecord("old.md", 100),
		newTestRecord("unknown.md", 0),
		newTestRecord("new.md", 300),
	})

	var paths []string
	for _, r := range fi.RecentFiles() {
		paths = append(paths, r.Path)
	}
	assert.Equal(t, []string{"new.md", "old.md", "unknown.md"}, paths)
}

func Test_FileIndex_HiddenCount(t *testing.T) {
	fi := NewFileIndex()
	fi.Rebuild([]*DocumentRecord{newTestRecord(".drafts/a.md", 0), newTestRecord("b.md", 0)})
	assert.Equal(t, 1, fi.HiddenCount())
}

func Test_FileIndex_SearchByGlob(t *testing.T) {
	fi := NewFileIndex()
	fi.Rebuild([]*DocumentRecord{
		newTestRecord("docs/guide/setup.md", 0),
		newTestRecord("docs/api.md", 0),
		newTestRecord("notes/todo.txt", 0),
	})

	results, err := fi.SearchByGlob("docs/**/*.md", 50)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = fi.SearchByGlob("**/*.txt", 50)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "notes/todo.txt", results[0].Path)
}

func Test_FileIndex_SearchByGlob_InvalidPattern(t *testing.T) {
	fi := NewFileIndex()
	_, err := fi.SearchByGlob("[invalid", 50)
	assert.Error(t, err)
}

func Test_FileIndex_SearchByGlob_MaxResults(t *testing.T) {
	fi := NewFileIndex()
	var records []*DocumentRecord
	for i := 0; i < 26; i++ {
		records = append(records, newTestRecord("file"+string(rune('a'+i))+".md", 0))
	}
	fi.Rebuild(records)

	results, err := fi.SearchByGlob("*.md", 5)
	require.NoError(t, err)
	assert.Len(t, results, 5)
}
