package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lexandro/mdview-mcp/viewer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// TreeArgs defines the input parameters for the mdview_tree tool.
type TreeArgs struct {
	Toggle      string `json:"toggle,omitempty" jsonschema:"Directory path to expand or collapse before listing"`
	ExpandAll   bool   `json:"expandAll,omitempty" jsonschema:"Expand every directory"`
	CollapseAll bool   `json:"collapseAll,omitempty" jsonschema:"Collapse every directory"`
	Scroll      *int   `json:"scroll,omitempty" jsonschema:"Sidebar scroll offset reported by the client"`
}

// TreeHandler holds the dependencies for the tree tool.
type TreeHandler struct {
	Session *viewer.Session
	Logger  *slog.Logger
}

// Handle processes a mdview_tree request. The listing follows the current
// view mode: the folder tree or the recently modified list.
func (h *TreeHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args TreeArgs) (*mcp.CallToolResult, any, error) {
	if args.ExpandAll && args.CollapseAll {
		return errorResult("Error: expandAll and collapseAll are mutually exclusive"), nil, nil
	}

	switch {
	case args.ExpandAll:
		h.Session.ExpandAll()
	case args.CollapseAll:
		h.Session.CollapseAll()
	}
	if args.Toggle != "" {
		if _, err := h.Session.ToggleDir(strings.Trim(args.Toggle, "/")); err != nil {
			return errorResult("Toggle error: %v", err), nil, nil
		}
	}
	if args.Scroll != nil {
		h.Session.SetScroll(viewer.ScrollOffsets{Tree: args.Scroll})
	}

	state := h.Session.State()
	if state.Root == "" {
		return errorResult("Error: %v", viewer.ErrNoRoot), nil, nil
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("── %s (%s view, %d documents", state.Root, state.ViewMode, state.FileCount))
	if state.HiddenCount > 0 && !state.ShowHidden {
		builder.WriteString(fmt.Sprintf(", %d hidden", state.HiddenCount))
	}
	builder.WriteString(") ──\n")

	if state.ViewMode == viewer.ViewRecent {
		builder.WriteString(FormatRecent(h.Session.RecentView()))
	} else {
		builder.WriteString(FormatTree(h.Session.TreeView()))
	}

	h.Logger.Info("mdview_tree", "mode", state.ViewMode, "toggle", args.Toggle)
	return textResult(builder.String()), nil, nil
}

// ViewArgs defines the input parameters for the mdview_view tool.
type ViewArgs struct {
	Format string `json:"format,omitempty" jsonschema:"Output format: text (default, numbered source lines), html (rendered fragment) headings (outline) or links (hrefs to pass to mdview_follow)"`
	Scroll *int   `json:"scroll,omitempty" jsonschema:"Content scroll offset reported by the client"`
}

// ViewHandler holds the dependencies for the view tool.
type ViewHandler struct {
	Session *viewer.Session
	Logger  *slog.Logger
}

// Handle processes a mdview_view request.
func (h *ViewHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ViewArgs) (*mcp.CallToolResult, any, error) {
	format := args.Format
	if format == "" {
		format = "text"
	}
	switch format {
	case "text", "html", "headings", "links":
	default:
		return errorResult("Error: unknown format %q (use text, html, headings or links)", format), nil, nil
	}

	if args.Scroll != nil {
		h.Session.SetScroll(viewer.ScrollOffsets{Content: args.Scroll})
	}

	doc, ok := h.Session.Document()
	if !ok {
		return textResult(fmt.Sprintf("No document open.\nURL: %s", h.Session.URL())), nil, nil
	}

	h.Logger.Info("mdview_view", "path", doc.Path, "format", format)
	return textResult(FormatDocument(doc, format)), nil, nil
}

// SettingsArgs defines the input parameters for the mdview_settings tool.
type SettingsArgs struct {
	ShowHidden  *bool  `json:"showHidden,omitempty" jsonschema:"Show documents and folders whose name starts with a dot"`
	AutoRefresh *bool  `json:"autoRefresh,omitempty" jsonschema:"Re-scan the root folder in the background"`
	ViewMode    string `json:"viewMode,omitempty" jsonschema:"Sidebar mode: tree or recent"`
}

// SettingsHandler holds the dependencies for the settings tool.
type SettingsHandler struct {
	Session *viewer.Session
	Logger  *slog.Logger
}

// Handle processes a mdview_settings request. Changes are persisted.
func (h *SettingsHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SettingsArgs) (*mcp.CallToolResult, any, error) {
	if args.ViewMode != "" {
		if err := h.Session.SetViewMode(ctx, viewer.ViewMode(args.ViewMode)); err != nil {
			return errorResult("Error: %v", err), nil, nil
		}
	}
	if args.ShowHidden != nil {
		h.Session.SetShowHidden(ctx, *args.ShowHidden)
	}
	if args.AutoRefresh != nil {
		h.Session.SetAutoRefresh(ctx, *args.AutoRefresh)
	}

	state := h.Session.State()
	h.Logger.Info("mdview_settings",
		"viewMode", state.ViewMode,
		"showHidden", state.ShowHidden,
		"autoRefresh", state.AutoRefresh,
	)
	return textResult(fmt.Sprintf("View mode: %s\nShow hidden: %t\nAuto refresh: %t",
		state.ViewMode, state.ShowHidden, state.AutoRefresh)), nil, nil
}

func isNoRoot(err error) bool {
	return errors.Is(err, viewer.ErrNoRoot)
}
