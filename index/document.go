package index

import (
	"context"
	"strings"
	"sync"
)

// ContentReader reads a document's full text. It is supplied by the scanner
// and may fail; callers treat a failure as "no content".
type ContentReader func(ctx context.Context) (string, error)

// DocumentRecord is one document of a snapshot.
// Path is the canonical identity: forward slashes, no leading slash, no "."
// or ".." segments. The cache fields are written only by this package.
type DocumentRecord struct {
	Path         string // Canonical path relative to the index root
	LastModified int64  // Epoch milliseconds, 0 if unknown
	Hidden       bool   // True if any path segment starts with "."

	read ContentReader

	mu        sync.RWMutex
	text      string
	loaded    bool
	firstLine string
}

// NewDocumentRecord creates a record for path. Hidden is derived from the path.
func NewDocumentRecord(path string, lastModified int64, read ContentReader) *DocumentRecord {
	return &DocumentRecord{
		Path:         path,
		LastModified: lastModified,
		Hidden:       IsHiddenPath(path),
		read:         read,
	}
}

// IsHiddenPath reports whether any segment of path starts with a dot.
func IsHiddenPath(path string) bool {
	for _, segment := range strings.Split(path, "/") {
		if strings.HasPrefix(segment, ".") {
			return true
		}
	}
	return false
}

// Name returns the last path segment.
func (d *DocumentRecord) Name() string {
	if i := strings.LastIndexByte(d.Path, '/'); i >= 0 {
		return d.Path[i+1:]
	}
	return d.Path
}

// Dir returns the parent directory path, "" for top-level documents.
func (d *DocumentRecord) Dir() string {
	if i := strings.LastIndexByte(d.Path, '/'); i >= 0 {
		return d.Path[:i]
	}
	return ""
}

// Text returns the cached full text and whether the cache has been populated.
func (d *DocumentRecord) Text() (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text, d.loaded
}

// FirstLine returns the cached heading extract, "" if none.
func (d *DocumentRecord) FirstLine() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.firstLine
}

// Read returns the cached text when present, otherwise reads through the
// content reader without touching the cache.
func (d *DocumentRecord) Read(ctx context.Context) (string, error) {
	if text, ok := d.Text(); ok && text != "" {
		return text, nil
	}
	if d.read == nil {
		return "", nil
	}
	return d.read(ctx)
}

func (d *DocumentRecord) setCache(text string, firstLine string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = text
	d.firstLine = firstLine
	d.loaded = true
}
