package index

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// FileIndex holds the current snapshot: the flat record list in scan order,
// a path map for O(1) lookups, a sorted path list for glob iteration, and the
// directory tree. It is replaced wholesale on every accepted refresh.
type FileIndex struct {
	mu          sync.RWMutex
	records     []*DocumentRecord          // scan order
	files       map[string]*DocumentRecord // key: canonical path
	sortedPaths []string                   // sorted for glob iteration
	root        *TreeNode
}

// NewFileIndex creates an empty index.
func NewFileIndex() *FileIndex {
	return &FileIndex{
		files:       make(map[string]*DocumentRecord),
		sortedPaths: make([]string, 0),
		root:        Build(nil),
	}
}

// Rebuild replaces the snapshot with records. Duplicate paths keep the first
// record seen.
func (fi *FileIndex) Rebuild(records []*DocumentRecord) {
	files := make(map[string]*DocumentRecord, len(records))
	unique := make([]*DocumentRecord, 0, len(records))
	sortedPaths := make([]string, 0, len(records))
	for _, record := range records {
		if _, exists := files[record.Path]; exists {
			continue
		}
		files[record.Path] = record
		unique = append(unique, record)
		sortedPaths = append(sortedPaths, record.Path)
	}
	sort.Strings(sortedPaths)
	root := Build(unique)

	fi.mu.Lock()
	defer fi.mu.Unlock()
	fi.records = unique
	fi.files = files
	fi.sortedPaths = sortedPaths
	fi.root = root
}

// Records returns the snapshot in scan order.
func (fi *FileIndex) Records() []*DocumentRecord {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	result := make([]*DocumentRecord, len(fi.records))
	copy(result, fi.records)
	return result
}

// Paths returns every canonical path in scan order.
func (fi *FileIndex) Paths() []string {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	paths := make([]string, len(fi.records))
	for i, record := range fi.records {
		paths[i] = record.Path
	}
	return paths
}

// GetFile returns the record for path, or nil if not found.
func (fi *FileIndex) GetFile(path string) *DocumentRecord {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return fi.files[path]
}

// FileCount returns the number of documents in the snapshot.
func (fi *FileIndex) FileCount() int {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return len(fi.files)
}

// HiddenCount returns the number of hidden documents.
func (fi *FileIndex) HiddenCount() int {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	count := 0
	for _, record := range fi.records {
		if record.Hidden {
			count++
		}
	}
	return count
}

// Tree returns the directory tree of the snapshot.
func (fi *FileIndex) Tree() *TreeNode {
	fi.mu.RLock()
	defer fi.mu.RUnlock()
	return fi.root
}

// RecentFiles returns the documents ordered by LastModified, newest first.
// Records without a timestamp sort last.
func (fi *FileIndex) RecentFiles() []*DocumentRecord {
	result := fi.Records()
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].LastModified > result[j].LastModified
	})
	return result
}

// SearchByGlob returns documents whose path matches a doublestar glob pattern.
func (fi *FileIndex) SearchByGlob(pattern string, maxResults int) ([]*DocumentRecord, error) {
	fi.mu.RLock()
	defer fi.mu.RUnlock()

	if maxResults <= 0 {
		maxResults = 50
	}

	pattern = strings.ReplaceAll(pattern, "\\", "/")
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	var results []*DocumentRecord
	for _, path := range fi.sortedPaths {
		if len(results) >= maxResults {
			break
		}
		matched, err := doublestar.Match(pattern, path)
		if err != nil || !matched {
			continue
		}
		results = append(results, fi.files[path])
	}
	return results, nil
}
