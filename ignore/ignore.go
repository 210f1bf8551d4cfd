package ignore

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// IgnoreFileNames lists the ignore files read from the corpus root.
var IgnoreFileNames = []string{".gitignore", ".mdviewignore"}

// Matcher determines whether a path should be left out of the corpus.
// It combines default patterns, .gitignore and .mdviewignore rules, and
// custom CLI patterns. Reload takes the write lock; lookups take the read lock.
type Matcher struct {
	mu               sync.RWMutex
	rootDir          string
	ignoreFiles      []gitignore.GitIgnore
	customPatterns   []string
	maxFileSizeBytes int64
}

// MatcherOptions configures the ignore matcher.
type MatcherOptions struct {
	RootDir          string
	CustomPatterns   []string
	MaxFileSizeBytes int64
}

// NewMatcher creates a matcher rooted at options.RootDir.
func NewMatcher(options MatcherOptions) *Matcher {
	matcher := &Matcher{
		rootDir:          options.RootDir,
		maxFileSizeBytes: options.MaxFileSizeBytes,
	}
	for _, pattern := range options.CustomPatterns {
		matcher.customPatterns = append(matcher.customPatterns, filepath.ToSlash(pattern))
	}

	if matcher.maxFileSizeBytes <= 0 {
		matcher.maxFileSizeBytes = 2 * 1024 * 1024 // 2MB default
	}

	matcher.ignoreFiles = loadIgnoreFiles(options.RootDir)
	return matcher
}

// RootDir returns the directory the matcher is rooted at.
func (m *Matcher) RootDir() string {
	return m.rootDir
}

// ShouldIgnore reports whether absolutePath is excluded from the corpus.
func (m *Matcher) ShouldIgnore(absolutePath string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	relativePath, err := filepath.Rel(m.rootDir, absolutePath)
	if err != nil {
		relativePath = absolutePath
	}
	relativePath = filepath.ToSlash(relativePath)

	if matchesDefaultPatterns(relativePath) {
		return true
	}

	isDir := false
	if info, err := os.Stat(absolutePath); err == nil {
		isDir = info.IsDir()
	}

	// Relative() does not require the path to exist on disk
	for _, ignoreFile := range m.ignoreFiles {
		match := ignoreFile.Relative(relativePath, isDir)
		if match != nil && match.Ignore() {
			return true
		}
	}

	return m.matchesCustomPatterns(relativePath)
}

// ShouldIgnoreDir reports whether a directory should be skipped entirely
// during traversal.
func (m *Matcher) ShouldIgnoreDir(absolutePath string) bool {
	if isSkippedDir(filepath.Base(absolutePath)) {
		return true
	}
	return m.ShouldIgnore(absolutePath)
}

// IsFileTooLarge reports whether fileSize exceeds the configured limit.
func (m *Matcher) IsFileTooLarge(fileSize int64) bool {
	return fileSize > m.maxFileSizeBytes
}

// MaxFileSizeBytes returns the configured maximum file size.
func (m *Matcher) MaxFileSizeBytes() int64 {
	return m.maxFileSizeBytes
}

// IsIgnoreFile reports whether name is one of the ignore files the matcher
// reads, so a change to it calls for Reload.
func IsIgnoreFile(name string) bool {
	for _, ignoreName := range IgnoreFileNames {
		if name == ignoreName {
			return true
		}
	}
	return false
}

func isSkippedDir(name string) bool {
	switch name {
	case ".git", ".svn", ".hg", "node_modules", "bower_components",
		"__pycache__", ".venv", "venv", ".idea", ".vscode", ".vs",
		".cache", ".parcel-cache", ".next", ".nuxt", ".nyc_output":
		return true
	}
	return false
}

func matchesDefaultPatterns(relativePath string) bool {
	segments := strings.Split(strings.ToLower(relativePath), "/")
	baseName := segments[len(segments)-1]

	for _, pattern := range DefaultIgnorePatterns {
		pattern = strings.ToLower(pattern)
		if !strings.ContainsAny(pattern, "*?[") {
			for _, segment := range segments {
				if segment == pattern {
					return true
				}
			}
			continue
		}
		if matched, err := doublestar.Match(pattern, baseName); err == nil && matched {
			return true
		}
	}
	return false
}

// matchesCustomPatterns checks the CLI exclude patterns against the relative
// path and the base name. Patterns may use "**".
func (m *Matcher) matchesCustomPatterns(relativePath string) bool {
	baseName := filepath.Base(relativePath)
	for _, pattern := range m.customPatterns {
		if matched, err := doublestar.Match(pattern, relativePath); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, baseName); err == nil && matched {
			return true
		}
	}
	return false
}

// Reload re-reads the ignore files from disk.
func (m *Matcher) Reload() {
	ignoreFiles := loadIgnoreFiles(m.rootDir)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ignoreFiles = ignoreFiles
}

func loadIgnoreFiles(rootDir string) []gitignore.GitIgnore {
	var ignoreFiles []gitignore.GitIgnore
	for _, name := range IgnoreFileNames {
		if gi := loadIgnoreFile(filepath.Join(rootDir, name), rootDir); gi != nil {
			ignoreFiles = append(ignoreFiles, gi)
		}
	}
	return ignoreFiles
}

// loadIgnoreFile reads an ignore file through an io.Reader so the handle is
// closed before returning.
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	return gitignore.New(f, baseDir, nil)
}
