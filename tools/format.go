package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/lexandro/mdview-mcp/index"
	"github.com/lexandro/mdview-mcp/search"
	"github.com/lexandro/mdview-mcp/viewer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

// FormatMatches formats interactive search matches: name, folder and the
// snippet around the first content match.
func FormatMatches(query string, matches []search.Match) string {
	if query == "" {
		return "Search cleared."
	}
	if len(matches) == 0 {
		return fmt.Sprintf("No documents match %q.", query)
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d documents matching %q:\n\n", len(matches), query))
	for _, match := range matches {
		builder.WriteString(fmt.Sprintf("  %s", match.Path))
		if match.Record != nil && match.Record.Hidden {
			builder.WriteString("  (hidden)")
		}
		builder.WriteString("\n")
		if match.Snippet != "" {
			builder.WriteString(fmt.Sprintf("      %s\n", match.Snippet))
		}
	}
	return builder.String()
}

// FormatFullTextResults formats full-text results grouped by document with
// line numbers and optional context.
func FormatFullTextResults(results []index.FullTextResult, totalMatches int) string {
	if len(results) == 0 {
		return "No matches found."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d matches in %d documents:\n\n", totalMatches, len(results)))

	for i, result := range results {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(fmt.Sprintf("── %s ──\n", result.Path))

		for _, match := range result.Matches {
			for _, ctxLine := range match.ContextBefore {
				builder.WriteString(fmt.Sprintf("  %s\n", ctxLine))
			}
			builder.WriteString(fmt.Sprintf("  %d: %s\n", match.LineNumber, match.LineText))
			for _, ctxLine := range match.ContextAfter {
				builder.WriteString(fmt.Sprintf("  %s\n", ctxLine))
			}
		}
	}

	return builder.String()
}

// FormatFileResults lists documents found by glob.
func FormatFileResults(records []*index.DocumentRecord) string {
	if len(records) == 0 {
		return "No documents matched."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d documents:\n\n", len(records)))
	for _, record := range records {
		builder.WriteString(fmt.Sprintf("  %s  (%s)\n", record.Path, formatTimestamp(record.LastModified)))
	}
	return builder.String()
}

// FormatTree renders tree rows with indentation. Directories show ▾ when
// expanded and ▸ when collapsed; unread documents carry a dot and the open
// document an arrow.
func FormatTree(rows []viewer.TreeRow) string {
	if len(rows) == 0 {
		return "No documents."
	}

	var builder strings.Builder
	for _, row := range rows {
		indent := strings.Repeat("  ", row.Level)
		if row.IsDir {
			marker := "▸"
			if row.Expanded {
				marker = "▾"
			}
			builder.WriteString(fmt.Sprintf("%s%s %s/\n", indent, marker, row.Name))
			continue
		}
		builder.WriteString(fmt.Sprintf("%s%s %s", indent, fileMarker(row.Active, row.Read), row.Name))
		if row.FirstLine != "" {
			builder.WriteString(fmt.Sprintf("  (%s)", row.FirstLine))
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

// FormatRecent renders recent rows newest first.
func FormatRecent(rows []viewer.RecentRow) string {
	if len(rows) == 0 {
		return "No documents."
	}

	var builder strings.Builder
	for _, row := range rows {
		builder.WriteString(fmt.Sprintf("%s %s", fileMarker(row.Active, row.Read), row.Name))
		if row.Dir != "" {
			builder.WriteString(fmt.Sprintf("  in %s", row.Dir))
		}
		if row.RelativeTime != "" {
			builder.WriteString(fmt.Sprintf("  · %s", row.RelativeTime))
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

func fileMarker(active, read bool) string {
	switch {
	case active:
		return "→"
	case !read:
		return "•"
	default:
		return " "
	}
}

// FormatDocument renders the open document in the requested format.
func FormatDocument(doc viewer.DocumentView, format string) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("── %s ──\n", doc.Breadcrumb))
	if doc.Anchor != "" {
		builder.WriteString(fmt.Sprintf("Anchor: #%s\n", doc.Anchor))
	}

	switch format {
	case "html":
		builder.WriteString(doc.HTML)
	case "headings":
		if len(doc.Headings) == 0 {
			builder.WriteString("No headings.\n")
		}
		for _, heading := range doc.Headings {
			builder.WriteString(fmt.Sprintf("%s%s  #%s\n", strings.Repeat("  ", heading.Level-1), heading.Text, heading.ID))
		}
	case "links":
		if len(doc.Links) == 0 {
			builder.WriteString("No links.\n")
		}
		for _, link := range doc.Links {
			builder.WriteString(fmt.Sprintf("%s  (%s)\n", link.Text, link.Href))
		}
	default:
		builder.WriteString(formatNumberedLines(doc.Text))
	}
	return builder.String()
}

func formatNumberedLines(content string) string {
	lines := strings.Split(content, "\n")
	width := len(fmt.Sprintf("%d", len(lines)))

	var builder strings.Builder
	for i, line := range lines {
		builder.WriteString(fmt.Sprintf("%*d│ %s\n", width, i+1, line))
	}
	return builder.String()
}

func formatTimestamp(epochMillis int64) string {
	if epochMillis <= 0 {
		return "modified: unknown"
	}
	return "modified " + time.UnixMilli(epochMillis).UTC().Format(time.RFC3339)
}

// formatFileSize converts bytes to a human-readable string.
func formatFileSize(bytes int64) string {
	switch {
	case bytes >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	case bytes >= 1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	totalMinutes := totalSeconds / 60
	remainderSeconds := totalSeconds % 60
	if totalMinutes < 60 {
		return fmt.Sprintf("%dm%ds", totalMinutes, remainderSeconds)
	}
	hours := totalMinutes / 60
	remainderMinutes := totalMinutes % 60
	return fmt.Sprintf("%dh%dm", hours, remainderMinutes)
}
