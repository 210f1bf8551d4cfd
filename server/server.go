package server

import (
	"github.com/lexandro/mdview-mcp/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// Handlers groups the tool handlers served over MCP.
type Handlers struct {
	Navigate *tools.NavigateHandler
	Search   *tools.SearchHandler
	FullText *tools.FullTextHandler
	Files    *tools.FilesHandler
	Tree     *tools.TreeHandler
	View     *tools.ViewHandler
	Settings *tools.SettingsHandler
	Reload   *tools.ReloadHandler
	Root     *tools.RootHandler
	Status   *tools.StatusHandler
}

// Setup creates and configures the MCP server with all tool registrations.
func Setup(h Handlers) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "mdview-mcp",
			Version: Version,
		},
		&mcp.ServerOptions{
			Instructions: `This server is a viewer for a folder of markdown and text documents. It keeps a navigation history like a browser: opening a document pushes an entry, back and forward step through it, and every state has a shareable URL (mdview://viewer?file=<path>).

Typical flow:
- Use mdview_tree to see the folder (or the recently modified list)
- Use mdview_search to filter documents by name or content, mdview_fulltext for word and phrase queries
- Use mdview_open to show a document, mdview_follow to follow a link inside it
- Use mdview_back / mdview_forward to move through history
- The folder is re-scanned in the background; mdview_reload forces a refresh`,
		},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "mdview_open",
		Description: "Open a document by its path relative to the root folder. Pushes a history entry, marks the document read and reveals it in the tree. Returns the numbered source.",
	}, h.Navigate.Open)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "mdview_follow",
		Description: `Follow a link found in the open document.

Link forms:
  - "#section": scroll the open document to the element with that id
  - "other.md", "../api/auth.md#login", "/docs/x.md": open a document (relative to the open one, or to the root with a leading /)
  - "file:///abs/path/to/doc.md": matched against known documents by path suffix
  - "https://...", "mailto:...": returned for opening outside the viewer`,
	}, h.Navigate.Follow)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "mdview_back",
		Description: "Go back one history entry.",
	}, h.Navigate.Back)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "mdview_forward",
		Description: "Go forward one history entry.",
	}, h.Navigate.Forward)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "mdview_close",
		Description: "Close the open document. The current history entry is rewritten to carry no document.",
	}, h.Navigate.Close)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "mdview_search",
		Description: "Filter documents by a case-insensitive substring of their path or content. Shows a snippet around the first content match. An empty query clears the search. Hidden documents are included.",
	}, h.Search.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "mdview_fulltext",
		Description: `Full-text search over document contents with matching lines.

Query formats:
  - Plain text: word-level matching (e.g., "install")
  - "quoted text": exact phrase matching
  - /regex/: regular expression matching`,
	}, h.FullText.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "mdview_files",
		Description: `Find documents by glob pattern.

Pattern examples:
  - "**/*.md" - all markdown documents
  - "docs/**" - everything under docs/
  - "*.txt" - text files in the root only`,
	}, h.Files.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "mdview_tree",
		Description: "List the sidebar: the folder tree or the recently modified list, depending on the view mode. Directories can be toggled, or all expanded or collapsed. Unread documents are marked with •, the open document with →.",
	}, h.Tree.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "mdview_view",
		Description: "Show the open document as numbered source, rendered HTML or a heading outline.",
	}, h.View.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "mdview_settings",
		Description: "Change persisted viewer settings: show hidden documents, background refresh and sidebar view mode.",
	}, h.Settings.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "mdview_reload",
		Description: "Re-scan the root folder now. The open document, scroll position, search and expanded folders are kept when they still exist.",
	}, h.Reload.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "mdview_root",
		Description: "Open a different folder as the root. Closes the open document.",
	}, h.Root.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "mdview_status",
		Description: "Show viewer status: root folder, document counts, navigation state, settings, memory usage and uptime.",
	}, h.Status.Handle)

	return mcpServer
}
