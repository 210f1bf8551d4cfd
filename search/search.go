// Package search implements the interactive substring search over the
// current snapshot: ordered matches with highlighted names and snippets.
package search

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/lexandro/mdview-mcp/index"
)

const (
	snippetBefore = 30
	snippetAfter  = 50
	ellipsis      = "…"
)

// Match is one search hit.
type Match struct {
	Record *index.DocumentRecord
	Path   string
	Name   string
	Dir    string

	// NameHTML is the escaped file name with the query marked.
	NameHTML string
	// Snippet is the plain text window around the first content match,
	// empty for path-only matches.
	Snippet string
	// SnippetHTML is Snippet escaped and highlighted.
	SnippetHTML string
}

// Search returns every record whose path or cached text contains query,
// case-insensitively, in input order. An empty query returns nil: the caller
// leaves search mode. Hidden records are searched like any other.
func Search(records []*index.DocumentRecord, query string) []Match {
	if query == "" {
		return nil
	}
	lower := strings.ToLower(query)

	matches := []Match{}
	for _, record := range records {
		text, _ := record.Text()
		inPath := strings.Contains(strings.ToLower(record.Path), lower)
		inContent := text != "" && strings.Contains(strings.ToLower(text), lower)
		if !inPath && !inContent {
			continue
		}

		snippet := Snippet(text, query)
		match := Match{
			Record:   record,
			Path:     record.Path,
			Name:     record.Name(),
			Dir:      record.Dir(),
			NameHTML: Highlight(record.Name(), query),
			Snippet:  snippet,
		}
		if snippet != "" {
			match.SnippetHTML = Highlight(snippet, query)
		}
		matches = append(matches, match)
	}
	return matches
}

// Snippet returns a window of text around the first case-insensitive
// occurrence of query: 30 characters before, 50 after the match. Newlines
// become spaces, and an ellipsis marks each side that was cut.
func Snippet(text string, query string) string {
	if text == "" || query == "" {
		return ""
	}
	runes := []rune(text)
	queryRunes := []rune(query)

	idx := indexFold(runes, queryRunes)
	if idx < 0 {
		return ""
	}

	start := max(0, idx-snippetBefore)
	end := min(len(runes), idx+len(queryRunes)+snippetAfter)

	var builder strings.Builder
	if start > 0 {
		builder.WriteString(ellipsis)
	}
	builder.WriteString(strings.ReplaceAll(string(runes[start:end]), "\n", " "))
	if end < len(runes) {
		builder.WriteString(ellipsis)
	}
	return builder.String()
}

// indexFold finds needle in haystack comparing lower-cased runes, so offsets
// stay valid in the original text.
func indexFold(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, r := range needle {
			if unicode.ToLower(haystack[i+j]) != unicode.ToLower(r) {
				continue outer
			}
		}
		return i
	}
	return -1
}

// Highlight escapes text for HTML and wraps every case-insensitive
// occurrence of query in <mark>. The query is matched literally against the
// escaped text.
func Highlight(text string, query string) string {
	escaped := html.EscapeString(text)
	if query == "" {
		return escaped
	}
	pattern, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(query))
	if err != nil {
		return escaped
	}
	return pattern.ReplaceAllString(escaped, `<mark>${0}</mark>`)
}
