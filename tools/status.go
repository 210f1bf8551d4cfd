package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/lexandro/mdview-mcp/viewer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RootArgs defines the input parameters for the mdview_root tool.
type RootArgs struct {
	Path string `json:"path" jsonschema:"Absolute or relative folder to open as the new root"`
}

// RootHandler holds the dependencies for the root tool.
type RootHandler struct {
	Session *viewer.Session
	Logger  *slog.Logger
}

// Handle processes a mdview_root request.
func (h *RootHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args RootArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Path == "" {
		h.Logger.Warn("mdview_root called with empty path")
		return errorResult("Error: path parameter is required"), nil, nil
	}

	if err := h.Session.OpenRoot(ctx, args.Path); err != nil {
		h.Logger.Error("mdview_root failed", "path", args.Path, "error", err)
		return errorResult("Open root error: %v", err), nil, nil
	}

	state := h.Session.State()
	elapsed := time.Since(start)
	h.Logger.Info("mdview_root", "root", state.Root, "files", state.FileCount, "elapsed", elapsed)
	return textResult(fmt.Sprintf("opened %s: %d documents in %s", state.Root, state.FileCount, elapsed.Round(time.Millisecond))), nil, nil
}

// ReloadArgs defines the input parameters for the mdview_reload tool (none required).
type ReloadArgs struct{}

// ReloadHandler holds the dependencies for the reload tool.
type ReloadHandler struct {
	Session *viewer.Session
	Logger  *slog.Logger
}

// Handle processes a mdview_reload request.
func (h *ReloadHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReloadArgs) (*mcp.CallToolResult, any, error) {
	h.Logger.Info("mdview_reload started")

	result, err := h.Session.Reload(ctx)
	if err != nil {
		if isNoRoot(err) {
			return errorResult("Error: %v", err), nil, nil
		}
		h.Logger.Error("mdview_reload failed", "error", err)
		return errorResult("Reload error: %v", err), nil, nil
	}

	h.Logger.Info("mdview_reload complete",
		"changed", result.Changed,
		"stale", result.Stale,
		"files", result.FileCount,
		"elapsed", result.Duration,
	)

	switch {
	case result.Stale:
		return textResult("reload discarded: the root folder changed meanwhile"), nil, nil
	case !result.Changed:
		return textResult(fmt.Sprintf("no changes: %d documents", result.FileCount)), nil, nil
	}
	return textResult(fmt.Sprintf("reloaded: %d documents in %s", result.FileCount, result.Duration.Round(time.Millisecond))), nil, nil
}

// StatusArgs defines the input parameters for the mdview_status tool (none required).
type StatusArgs struct{}

// StatusHandler holds the dependencies for the status tool.
type StatusHandler struct {
	Session   *viewer.Session
	StartTime time.Time
	Logger    *slog.Logger
}

// Handle processes a mdview_status request.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	state := h.Session.State()
	uptime := time.Since(h.StartTime)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	h.Logger.Info("mdview_status",
		"files", state.FileCount,
		"memory", memStats.Alloc,
		"uptime", uptime,
	)

	var builder strings.Builder
	builder.WriteString("=== mdview-mcp Status ===\n\n")
	if state.Root == "" {
		builder.WriteString("Root directory: (none)\n")
	} else {
		builder.WriteString(fmt.Sprintf("Root directory: %s\n", state.Root))
	}
	builder.WriteString(fmt.Sprintf("Uptime: %s\n", formatDuration(uptime)))
	builder.WriteString(fmt.Sprintf("Documents: %d (%d hidden)\n", state.FileCount, state.HiddenCount))
	builder.WriteString(fmt.Sprintf("Full-text documents: %d\n", state.FullText))
	builder.WriteString(fmt.Sprintf("Memory usage: %s (heap: %s)\n",
		formatFileSize(int64(memStats.Alloc)),
		formatFileSize(int64(memStats.HeapAlloc)),
	))

	builder.WriteString(fmt.Sprintf("\nState: %s\n", state.Navigation))
	if state.OpenPath != "" {
		builder.WriteString(fmt.Sprintf("Open document: %s\n", state.OpenPath))
	}
	builder.WriteString(fmt.Sprintf("URL: %s\n", state.URL))
	builder.WriteString(fmt.Sprintf("Back: %t  Forward: %t\n", state.CanBack, state.CanForward))
	if state.Query != "" {
		builder.WriteString(fmt.Sprintf("Search: %q (%d matches)\n", state.Query, state.MatchCount))
	}

	builder.WriteString(fmt.Sprintf("\nView mode: %s\n", state.ViewMode))
	builder.WriteString(fmt.Sprintf("Show hidden: %t\n", state.ShowHidden))
	builder.WriteString(fmt.Sprintf("Auto refresh: %t (running: %t)\n", state.AutoRefresh, state.AutoRefreshRunning))
	if !state.LastRefresh.IsZero() {
		builder.WriteString(fmt.Sprintf("Last refresh: %s ago\n", formatDuration(time.Since(state.LastRefresh))))
	}
	if state.Status != "" {
		builder.WriteString(fmt.Sprintf("Status: %s\n", state.Status))
	}

	return textResult(builder.String()), nil, nil
}
