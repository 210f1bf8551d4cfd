package index

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/bmatcuk/doublestar/v4"
)

// FullTextIndex is a word-level Bleve index over the cached text of the
// current snapshot. It complements the interactive substring search with
// phrase and regexp queries, and is rebuilt wholesale with the snapshot.
type FullTextIndex struct {
	mu    sync.RWMutex
	index bleve.Index
	texts map[string]string // key: canonical path
}

// NewFullTextIndex creates an empty in-memory index.
func NewFullTextIndex() (*FullTextIndex, error) {
	bleveIndex, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating bleve index: %w", err)
	}
	return &FullTextIndex{
		index: bleveIndex,
		texts: make(map[string]string),
	}, nil
}

type bleveDocument struct {
	Content string `json:"content"`
	Path    string `json:"path"`
	Heading string `json:"heading"`
}

func buildIndexMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	contentFieldMapping := bleve.NewTextFieldMapping()
	contentFieldMapping.Store = false // Raw text lives in texts
	contentFieldMapping.IncludeInAll = true
	docMapping.AddFieldMappingsAt("content", contentFieldMapping)

	pathFieldMapping := bleve.NewTextFieldMapping()
	pathFieldMapping.Store = true
	pathFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("path", pathFieldMapping)

	headingFieldMapping := bleve.NewTextFieldMapping()
	headingFieldMapping.Store = true
	headingFieldMapping.IncludeInAll = true
	docMapping.AddFieldMappingsAt("heading", headingFieldMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Rebuild indexes the cached text of records into a fresh index and swaps it
// in. Records whose content never loaded are skipped.
func (ft *FullTextIndex) Rebuild(records []*DocumentRecord) error {
	newIndex, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("creating bleve index: %w", err)
	}

	texts := make(map[string]string, len(records))
	batch := newIndex.NewBatch()
	for _, record := range records {
		text, ok := record.Text()
		if !ok || text == "" {
			continue
		}
		texts[record.Path] = text
		doc := bleveDocument{Content: text, Path: record.Path, Heading: record.FirstLine()}
		if err := batch.Index(record.Path, doc); err != nil {
			newIndex.Close()
			return fmt.Errorf("indexing %s: %w", record.Path, err)
		}
	}
	if err := newIndex.Batch(batch); err != nil {
		newIndex.Close()
		return fmt.Errorf("applying batch: %w", err)
	}

	ft.mu.Lock()
	old := ft.index
	ft.index = newIndex
	ft.texts = texts
	ft.mu.Unlock()

	if old != nil {
		return old.Close()
	}
	return nil
}

// FullTextResult groups the matching lines of one document.
type FullTextResult struct {
	Path    string
	Matches []LineMatch
}

// LineMatch is a single matching line within a document.
type LineMatch struct {
	LineNumber    int
	LineText      string
	ContextBefore []string
	ContextAfter  []string
}

// FullTextOptions configures a full-text search.
type FullTextOptions struct {
	Query        string
	FileGlob     string
	MaxResults   int
	ContextLines int
}

// Search runs a full-text query.
// Query format:
//   - Plain text: match query (word-level matching)
//   - "quoted text": phrase query
//   - /regex/: regexp query
func (ft *FullTextIndex) Search(options FullTextOptions) ([]FullTextResult, int, error) {
	ft.mu.RLock()
	defer ft.mu.RUnlock()

	if options.MaxResults <= 0 {
		options.MaxResults = 50
	}
	if options.ContextLines < 0 {
		options.ContextLines = 0
	}

	request := bleve.NewSearchRequest(buildQuery(options.Query))
	request.Size = options.MaxResults * 5 // Over-fetch; some hits have no literal line match
	request.Fields = []string{"path"}

	searchResults, err := ft.index.Search(request)
	if err != nil {
		return nil, 0, fmt.Errorf("searching index: %w", err)
	}

	glob := strings.ReplaceAll(options.FileGlob, "\\", "/")
	var results []FullTextResult
	totalMatches := 0

	for _, hit := range searchResults.Hits {
		text, ok := ft.texts[hit.ID]
		if !ok {
			continue
		}
		if glob != "" {
			matched, matchErr := doublestar.Match(glob, hit.ID)
			if matchErr != nil || !matched {
				continue
			}
		}

		lineMatches := findMatchingLines(text, options.Query, options.ContextLines)
		if len(lineMatches) == 0 {
			continue
		}
		totalMatches += len(lineMatches)
		results = append(results, FullTextResult{Path: hit.ID, Matches: lineMatches})

		if len(results) >= options.MaxResults {
			break
		}
	}

	return results, totalMatches, nil
}

// DocumentCount returns the number of indexed documents.
func (ft *FullTextIndex) DocumentCount() uint64 {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	count, _ := ft.index.DocCount()
	return count
}

// Close releases the Bleve index.
func (ft *FullTextIndex) Close() error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.index.Close()
}

func buildQuery(queryString string) query.Query {
	queryString = strings.TrimSpace(queryString)

	if isDelimited(queryString, "/") {
		return bleve.NewRegexpQuery(queryString[1 : len(queryString)-1])
	}
	if isDelimited(queryString, "\"") {
		return bleve.NewMatchPhraseQuery(queryString[1 : len(queryString)-1])
	}
	return bleve.NewMatchQuery(queryString)
}

func isDelimited(s string, delim string) bool {
	return len(s) > 2 && strings.HasPrefix(s, delim) && strings.HasSuffix(s, delim)
}

// extractSearchTerm strips query syntax to get the literal used for line matching.
func extractSearchTerm(queryString string) string {
	queryString = strings.TrimSpace(queryString)
	if isDelimited(queryString, "/") || isDelimited(queryString, "\"") {
		return queryString[1 : len(queryString)-1]
	}
	return queryString
}

func findMatchingLines(content string, queryString string, contextLines int) []LineMatch {
	lines := strings.Split(content, "\n")
	termLower := strings.ToLower(extractSearchTerm(queryString))

	var matches []LineMatch
	for lineIdx, line := range lines {
		if !strings.Contains(strings.ToLower(line), termLower) {
			continue
		}

		match := LineMatch{LineNumber: lineIdx + 1, LineText: line}
		if contextLines > 0 {
			start := max(lineIdx-contextLines, 0)
			match.ContextBefore = append(match.ContextBefore, lines[start:lineIdx]...)
			end := min(lineIdx+contextLines+1, len(lines))
			match.ContextAfter = append(match.ContextAfter, lines[lineIdx+1:end]...)
		}
		matches = append(matches, match)
	}
	return matches
}
