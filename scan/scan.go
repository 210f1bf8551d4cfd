// Package scan walks a corpus root and produces the record set of a snapshot.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lexandro/mdview-mcp/ignore"
	"github.com/lexandro/mdview-mcp/index"
)

// ErrNotDirectory is returned when the root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// ErrBinaryContent is returned by a record reader for binary files.
var ErrBinaryContent = errors.New("binary content")

// AllowedExtensions are the document extensions picked up by a scan.
var AllowedExtensions = []string{".md", ".mdc", ".mdx", ".markdown", ".mdown", ".txt"}

// IsAllowed reports whether name carries one of the allowed extensions.
func IsAllowed(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Scanner produces complete record sets for one root directory.
type Scanner struct {
	rootDir string
	matcher *ignore.Matcher
	logger  *slog.Logger
}

// New creates a scanner over the matcher's root directory.
func New(matcher *ignore.Matcher, logger *slog.Logger) (*Scanner, error) {
	rootDir := matcher.RootDir()
	if err := checkDir(rootDir); err != nil {
		return nil, err
	}
	return &Scanner{rootDir: rootDir, matcher: matcher, logger: logger}, nil
}

// RootDir returns the scanned directory.
func (s *Scanner) RootDir() string {
	return s.rootDir
}

func checkDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("opening root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", path, ErrNotDirectory)
	}
	return nil
}

// Scan walks the root in lexical order and returns one record per allowed
// document. Content is not read; each record carries a reader. Unreadable
// subtrees are skipped, an unreadable root fails the scan.
func (s *Scanner) Scan(ctx context.Context) ([]*index.DocumentRecord, error) {
	if err := checkDir(s.rootDir); err != nil {
		return nil, err
	}

	start := time.Now()
	var records []*index.DocumentRecord
	err := filepath.WalkDir(s.rootDir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == s.rootDir {
				return err
			}
			s.logger.Debug("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != s.rootDir && s.matcher.ShouldIgnoreDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !IsAllowed(d.Name()) {
			return nil
		}
		if s.matcher.ShouldIgnore(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if s.matcher.IsFileTooLarge(info.Size()) {
			s.logger.Debug("skipping oversize document", "path", path, "size", info.Size())
			return nil
		}

		relPath, err := filepath.Rel(s.rootDir, path)
		if err != nil {
			return nil
		}
		records = append(records, index.NewDocumentRecord(
			filepath.ToSlash(relPath),
			info.ModTime().UnixMilli(),
			fileReader(path),
		))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", s.rootDir, err)
	}

	s.logger.Debug("scan complete", "root", s.rootDir, "files", len(records), "duration", time.Since(start))
	return records, nil
}

func fileReader(absolutePath string) index.ContentReader {
	return func(ctx context.Context) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		data, err := readFileWithRetry(absolutePath)
		if err != nil {
			return "", fmt.Errorf("reading file: %w", err)
		}
		if IsBinaryContent(data) {
			return "", ErrBinaryContent
		}
		return string(data), nil
	}
}

// readFileWithRetry retries once after a short delay, for files an editor
// holds locked while saving.
func readFileWithRetry(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		time.Sleep(50 * time.Millisecond)
		return os.ReadFile(path)
	}
	return data, nil
}

// IsBinaryContent reports whether the first 512 bytes contain a NUL byte.
func IsBinaryContent(data []byte) bool {
	checkSize := min(len(data), 512)
	for i := 0; i < checkSize; i++ {
		if data[i] == 0 {
			return true
		}
	}
	return false
}
