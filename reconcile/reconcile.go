// Package reconcile applies fresh directory scans to a live viewer session
// without disturbing what the user is looking at.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lexandro/mdview-mcp/index"
)

// ErrRefreshInFlight is returned when a refresh is requested while another
// one is still running.
var ErrRefreshInFlight = errors.New("refresh already in flight")

// HasChanged reports whether next differs from prev in membership,
// modification time or hidden flag. Order is ignored.
func HasChanged(prev, next []*index.DocumentRecord) bool {
	if len(prev) != len(next) {
		return true
	}
	previous := make(map[string]*index.DocumentRecord, len(prev))
	for _, record := range prev {
		previous[record.Path] = record
	}
	for _, record := range next {
		old, ok := previous[record.Path]
		if !ok {
			return true
		}
		if old.LastModified != record.LastModified || old.Hidden != record.Hidden {
			return true
		}
	}
	return false
}

// UiState is the UI context captured right before a snapshot swap and
// restored right after it.
type UiState struct {
	OpenPath      string   `json:"openPath,omitempty"`
	ContentScroll int      `json:"contentScroll"`
	Query         string   `json:"query,omitempty"`
	SearchScroll  int      `json:"searchScroll"`
	ViewMode      string   `json:"viewMode"`
	ExpandedDirs  []string `json:"expandedDirs,omitempty"`
	TreeScroll    int      `json:"treeScroll"`
}

// Scanner produces a complete record set for the current root.
type Scanner interface {
	Scan(ctx context.Context) ([]*index.DocumentRecord, error)
}

// Workspace is the session side of a refresh.
type Workspace interface {
	// Snapshot returns the records of the current snapshot.
	Snapshot() []*index.DocumentRecord
	// Apply swaps in records while preserving UI state. It returns false
	// when generation no longer matches the session, in which case nothing
	// is changed.
	Apply(generation uint64, records []*index.DocumentRecord) (bool, error)
	// Status shows a transient progress message. An empty message clears it.
	Status(message string)
}

// RefreshOptions controls a single refresh.
type RefreshOptions struct {
	// Silent suppresses progress messages. Background refreshes are silent.
	Silent bool
}

// Result describes the outcome of a refresh.
type Result struct {
	Changed   bool
	Stale     bool
	FileCount int
	Duration  time.Duration
}

// Reconciler runs refresh cycles for one root. A new root gets a new
// reconciler with a new generation.
type Reconciler struct {
	scanner    Scanner
	workspace  Workspace
	generation uint64
	logger     *slog.Logger

	inFlight atomic.Bool
}

// NewReconciler creates a reconciler bound to generation.
func NewReconciler(scanner Scanner, workspace Workspace, generation uint64, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		scanner:    scanner,
		workspace:  workspace,
		generation: generation,
		logger:     logger,
	}
}

// Generation returns the session generation this reconciler was created for.
func (r *Reconciler) Generation() uint64 {
	return r.generation
}

// Refresh rescans the root and, when anything changed, preloads the new
// records and applies them. Scan and preload run without holding the
// session; only Apply touches published state. A cancelled context is a
// silent no-op. Any other scan failure keeps the current snapshot.
func (r *Reconciler) Refresh(ctx context.Context, options RefreshOptions) (Result, error) {
	if !r.inFlight.CompareAndSwap(false, true) {
		return Result{}, ErrRefreshInFlight
	}
	defer r.inFlight.Store(false)

	start := time.Now()
	r.status(options, "Scanning folder…")
	defer r.status(options, "")

	records, err := r.scanner.Scan(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Result{}, nil
		}
		r.logger.Warn("refresh scan failed, keeping current snapshot", "error", err)
		return Result{}, fmt.Errorf("scanning: %w", err)
	}

	if !HasChanged(r.workspace.Snapshot(), records) {
		r.logger.Debug("refresh found no changes", "files", len(records), "duration", time.Since(start))
		return Result{FileCount: len(records), Duration: time.Since(start)}, nil
	}

	r.status(options, fmt.Sprintf("Loading %d documents…", len(records)))
	if err := index.Preload(ctx, records, r.logger); err != nil {
		if errors.Is(err, context.Canceled) {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("preloading: %w", err)
	}

	applied, err := r.workspace.Apply(r.generation, records)
	if err != nil {
		return Result{}, fmt.Errorf("applying snapshot: %w", err)
	}
	if !applied {
		r.logger.Debug("discarding refresh for a previous root", "generation", r.generation)
		return Result{Stale: true}, nil
	}

	result := Result{Changed: true, FileCount: len(records), Duration: time.Since(start)}
	r.logger.Info("refresh applied", "files", result.FileCount, "duration", result.Duration)
	return result, nil
}

func (r *Reconciler) status(options RefreshOptions, message string) {
	if options.Silent {
		return
	}
	r.workspace.Status(message)
}
