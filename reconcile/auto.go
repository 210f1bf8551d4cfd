package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the background refresh period.
const DefaultInterval = 60 * time.Second

// AutoRefresher runs silent refreshes on a ticker until stopped.
// Refreshes run one after another on the refresher goroutine, so a tick that
// fires during a slow refresh waits for it.
type AutoRefresher struct {
	reconciler *Reconciler
	interval   time.Duration
	logger     *slog.Logger

	trigger chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAutoRefresher creates a stopped refresher. A non-positive interval
// selects DefaultInterval.
func NewAutoRefresher(reconciler *Reconciler, interval time.Duration, logger *slog.Logger) *AutoRefresher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &AutoRefresher{
		reconciler: reconciler,
		interval:   interval,
		logger:     logger,
		trigger:    make(chan struct{}, 1),
	}
}

// Start launches the refresh loop. Calling Start on a running refresher does
// nothing.
func (a *AutoRefresher) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.run(loopCtx, a.done)
}

// Stop cancels the loop, including a refresh in progress, and waits for it
// to exit.
func (a *AutoRefresher) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active.
func (a *AutoRefresher) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancel != nil
}

// Trigger requests an early refresh. Requests made while one is pending
// collapse into it.
func (a *AutoRefresher) Trigger() {
	select {
	case a.trigger <- struct{}{}:
	default:
	}
}

func (a *AutoRefresher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info("auto refresh started", "interval", a.interval)
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("auto refresh stopped")
			return
		case <-ticker.C:
			a.refresh(ctx, "tick")
		case <-a.trigger:
			a.refresh(ctx, "trigger")
		}
	}
}

func (a *AutoRefresher) refresh(ctx context.Context, reason string) {
	result, err := a.reconciler.Refresh(ctx, RefreshOptions{Silent: true})
	switch {
	case errors.Is(err, ErrRefreshInFlight):
		a.logger.Debug("skipping auto refresh, another refresh is running", "reason", reason)
	case err != nil:
		a.logger.Warn("auto refresh failed", "reason", reason, "error", err)
	case result.Changed:
		a.logger.Info("auto refresh picked up changes", "reason", reason, "files", result.FileCount)
	default:
		a.logger.Debug("auto refresh complete, snapshot is current", "reason", reason, "duration", result.Duration)
	}
}
