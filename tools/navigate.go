package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lexandro/mdview-mcp/links"
	"github.com/lexandro/mdview-mcp/navigation"
	"github.com/lexandro/mdview-mcp/viewer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// OpenArgs defines the input parameters for the mdview_open tool.
type OpenArgs struct {
	Path string `json:"path" jsonschema:"Document path relative to the root folder (e.g. docs/guide.md)"`
}

// FollowArgs defines the input parameters for the mdview_follow tool.
type FollowArgs struct {
	Href string `json:"href" jsonschema:"Link target as written in the open document (e.g. ../api.md#auth, #setup, https://example.com)"`
}

// HistoryArgs defines the input parameters for mdview_back, mdview_forward and mdview_close (none required).
type HistoryArgs struct{}

// NavigateHandler holds the dependencies for the navigation tools.
type NavigateHandler struct {
	Session *viewer.Session
	Logger  *slog.Logger
}

// Open processes a mdview_open request.
func (h *NavigateHandler) Open(ctx context.Context, req *mcp.CallToolRequest, args OpenArgs) (*mcp.CallToolResult, any, error) {
	if args.Path == "" {
		h.Logger.Warn("mdview_open called with empty path")
		return errorResult("Error: path parameter is required"), nil, nil
	}

	path := links.NormalizePath(args.Path)
	if err := h.Session.Open(path); err != nil {
		h.Logger.Info("mdview_open failed", "path", path, "error", err)
		if errors.Is(err, navigation.ErrUnknownDocument) {
			return errorResult("Document not found: %s", path), nil, nil
		}
		return errorResult("Open error: %v", err), nil, nil
	}

	h.Logger.Info("mdview_open", "path", path)
	return h.documentResult(), nil, nil
}

// Follow processes a mdview_follow request.
func (h *NavigateHandler) Follow(ctx context.Context, req *mcp.CallToolRequest, args FollowArgs) (*mcp.CallToolResult, any, error) {
	if args.Href == "" {
		h.Logger.Warn("mdview_follow called with empty href")
		return errorResult("Error: href parameter is required"), nil, nil
	}

	result, err := h.Session.Follow(args.Href)
	if err != nil {
		if errors.Is(err, links.ErrUnresolved) {
			return errorResult("Link does not resolve: %s", args.Href), nil, nil
		}
		return errorResult("Follow error: %v", err), nil, nil
	}

	h.Logger.Info("mdview_follow", "href", args.Href, "kind", result.Kind, "path", result.Path, "anchor", result.Anchor)

	switch result.Kind {
	case viewer.FollowExternal:
		return textResult(fmt.Sprintf("External link, open outside the viewer: %s", result.URL)), nil, nil
	case viewer.FollowFragment:
		return textResult(fmt.Sprintf("Scrolled %s to #%s", result.Path, result.Anchor)), nil, nil
	}
	return h.documentResult(), nil, nil
}

// Back processes a mdview_back request.
func (h *NavigateHandler) Back(ctx context.Context, req *mcp.CallToolRequest, args HistoryArgs) (*mcp.CallToolResult, any, error) {
	if !h.Session.Back() {
		return textResult("Already at the oldest history entry."), nil, nil
	}
	h.Logger.Info("mdview_back", "url", h.Session.URL())
	return h.documentResult(), nil, nil
}

// Forward processes a mdview_forward request.
func (h *NavigateHandler) Forward(ctx context.Context, req *mcp.CallToolRequest, args HistoryArgs) (*mcp.CallToolResult, any, error) {
	if !h.Session.Forward() {
		return textResult("Already at the newest history entry."), nil, nil
	}
	h.Logger.Info("mdview_forward", "url", h.Session.URL())
	return h.documentResult(), nil, nil
}

// Close processes a mdview_close request.
func (h *NavigateHandler) Close(ctx context.Context, req *mcp.CallToolRequest, args HistoryArgs) (*mcp.CallToolResult, any, error) {
	h.Session.CloseDocument()
	h.Logger.Info("mdview_close")
	return textResult(fmt.Sprintf("No document open.\nURL: %s", h.Session.URL())), nil, nil
}

func (h *NavigateHandler) documentResult() *mcp.CallToolResult {
	doc, ok := h.Session.Document()
	if !ok {
		return textResult(fmt.Sprintf("No document open.\nURL: %s", h.Session.URL()))
	}
	return textResult(fmt.Sprintf("URL: %s\n%s", h.Session.URL(), FormatDocument(doc, "text")))
}
