package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/lexandro/mdview-mcp/index"
	"github.com/lexandro/mdview-mcp/viewer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchArgs defines the input parameters for the mdview_search tool.
type SearchArgs struct {
	Query string `json:"query" jsonschema:"Case-insensitive substring matched against document paths and content. Empty clears the search"`
}

// SearchHandler holds the dependencies for the search tool.
type SearchHandler struct {
	Session *viewer.Session
	Logger  *slog.Logger
}

// Handle processes a mdview_search request.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	matches := h.Session.Search(args.Query)

	h.Logger.Info("mdview_search",
		"query", args.Query,
		"matches", len(matches),
		"elapsed", time.Since(start),
	)
	return textResult(FormatMatches(args.Query, matches)), nil, nil
}

// FullTextArgs defines the input parameters for the mdview_fulltext tool.
type FullTextArgs struct {
	Query        string `json:"query" jsonschema:"Search query. Plain text for word match, quoted for exact phrase, /regex/ for regular expression"`
	FileGlob     string `json:"fileGlob,omitempty" jsonschema:"Optional glob pattern to filter documents (e.g. docs/**/*.md)"`
	MaxResults   int    `json:"maxResults,omitempty" jsonschema:"Maximum number of document results to return (default 50)"`
	ContextLines int    `json:"contextLines,omitempty" jsonschema:"Number of context lines before and after each match (default 2)"`
}

// FullTextHandler holds the dependencies for the full-text tool.
type FullTextHandler struct {
	Session *viewer.Session
	Logger  *slog.Logger
}

// Handle processes a mdview_fulltext request.
func (h *FullTextHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args FullTextArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Query == "" {
		h.Logger.Warn("mdview_fulltext called with empty query")
		return errorResult("Error: query parameter is required"), nil, nil
	}

	contextLines := args.ContextLines
	if contextLines == 0 {
		contextLines = 2
	}

	results, totalMatches, err := h.Session.FullText(index.FullTextOptions{
		Query:        args.Query,
		FileGlob:     args.FileGlob,
		MaxResults:   args.MaxResults,
		ContextLines: contextLines,
	})
	if err != nil {
		h.Logger.Error("mdview_fulltext failed", "query", args.Query, "error", err)
		return errorResult("Search error: %v", err), nil, nil
	}

	h.Logger.Info("mdview_fulltext",
		"query", args.Query,
		"fileGlob", args.FileGlob,
		"documents", len(results),
		"matches", totalMatches,
		"elapsed", time.Since(start),
	)
	return textResult(FormatFullTextResults(results, totalMatches)), nil, nil
}

// FilesArgs defines the input parameters for the mdview_files tool.
type FilesArgs struct {
	Pattern    string `json:"pattern" jsonschema:"Glob pattern (e.g. **/*.md, docs/*)"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema:"Maximum number of results (default 200)"`
}

// FilesHandler holds the dependencies for the files tool.
type FilesHandler struct {
	Session *viewer.Session
	Logger  *slog.Logger
}

// Handle processes a mdview_files request.
func (h *FilesHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args FilesArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Pattern == "" {
		h.Logger.Warn("mdview_files called with empty pattern")
		return errorResult("Error: pattern parameter is required"), nil, nil
	}

	maxResults := args.MaxResults
	if maxResults == 0 {
		maxResults = 200
	}

	records, err := h.Session.Glob(args.Pattern, maxResults)
	if err != nil {
		h.Logger.Error("mdview_files failed", "pattern", args.Pattern, "error", err)
		return errorResult("Glob error: %v", err), nil, nil
	}

	h.Logger.Info("mdview_files",
		"pattern", args.Pattern,
		"results", len(records),
		"elapsed", time.Since(start),
	)
	return textResult(FormatFileResults(records)), nil, nil
}
