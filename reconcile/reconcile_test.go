package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexandro/mdview-mcp/index"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func record(path string, lastModified int64) *index.DocumentRecord {
	return index.NewDocumentRecord(path, lastModified, func(context.Context) (string, error) {
		return "# " + path, nil
	})
}

type scanFunc func(ctx context.Context) ([]*index.DocumentRecord, error)

func (f scanFunc) Scan(ctx context.Context) ([]*index.DocumentRecord, error) { return f(ctx) }

type fakeWorkspace struct {
	mu         sync.Mutex
	snapshot   []*index.DocumentRecord
	generation uint64
	applied    [][]*index.DocumentRecord
	statuses   []string
	onApply    func()
}

func (w *fakeWorkspace) Snapshot() []*index.DocumentRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot
}

func (w *fakeWorkspace) Apply(generation uint64, records []*index.DocumentRecord) (bool, error) {
	w.mu.Lock()
	if generation != w.generation {
		w.mu.Unlock()
		return false, nil
	}
	w.snapshot = records
	w.applied = append(w.applied, records)
	onApply := w.onApply
	w.mu.Unlock()
	if onApply != nil {
		onApply()
	}
	return true, nil
}

func (w *fakeWorkspace) Status(message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.statuses = append(w.statuses, message)
}

func (w *fakeWorkspace) appliedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.applied)
}

func staticScan(records ...*index.DocumentRecord) scanFunc {
	return func(context.Context) ([]*index.DocumentRecord, error) { return records, nil }
}

func Test_HasChanged(t *testing.T) {
	prev := []*index.DocumentRecord{record("a.md", 100), record("b/c.md", 200)}

	assert.False(t, HasChanged(prev, []*index.DocumentRecord{record("b/c.md", 200), record("a.md", 100)}))
	assert.True(t, HasChanged(prev, []*index.DocumentRecord{record("a.md", 101), record("b/c.md", 200)}))
	assert.True(t, HasChanged(prev, []*index.DocumentRecord{record("a.md", 100)}))
	assert.True(t, HasChanged(prev, []*index.DocumentRecord{record("a.md", 100), record("b/d.md", 200)}))
	assert.False(t, HasChanged(nil, nil))

	flipped := record("b/c.md", 200)
	flipped.Hidden = true
	assert.True(t, HasChanged(prev, []*index.DocumentRecord{record("a.md", 100), flipped}))
}

func Test_Reconciler_UnchangedIsNoOp(t *testing.T) {
	workspace := &fakeWorkspace{snapshot: []*index.DocumentRecord{record("a.md", 100)}}
	r := NewReconciler(staticScan(record("a.md", 100)), workspace, 0, testLogger())

	result, err := r.Refresh(context.Background(), RefreshOptions{Silent: true})
	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Equal(t, 1, result.FileCount)
	assert.Equal(t, 0, workspace.appliedCount())
	assert.Empty(t, workspace.statuses)
}

func Test_Reconciler_AppliesPreloadedRecords(t *testing.T) {
	workspace := &fakeWorkspace{}
	r := NewReconciler(staticScan(record("a.md", 100)), workspace, 0, testLogger())

	result, err := r.Refresh(context.Background(), RefreshOptions{})
	require.NoError(t, err)
	assert.True(t, result.Changed)
	require.Equal(t, 1, workspace.appliedCount())

	text, loaded := workspace.applied[0][0].Text()
	assert.True(t, loaded)
	assert.Equal(t, "# a.md", text)
	assert.Equal(t, []string{"Scanning folder…", "Loading 1 documents…", ""}, workspace.statuses)
}

func Test_Reconciler_ScanErrorKeepsSnapshot(t *testing.T) {
	current := []*index.DocumentRecord{record("a.md", 100)}
	workspace := &fakeWorkspace{snapshot: current}
	failing := scanFunc(func(context.Context) ([]*index.DocumentRecord, error) {
		return nil, errors.New("permission denied")
	})
	r := NewReconciler(failing, workspace, 0, testLogger())

	_, err := r.Refresh(context.Background(), RefreshOptions{Silent: true})
	assert.ErrorContains(t, err, "permission denied")
	assert.Equal(t, current, workspace.Snapshot())
}

func Test_Reconciler_CancelledScanIsSilent(t *testing.T) {
	workspace := &fakeWorkspace{}
	cancelled := scanFunc(func(context.Context) ([]*index.DocumentRecord, error) {
		return nil, context.Canceled
	})
	r := NewReconciler(cancelled, workspace, 0, testLogger())

	result, err := r.Refresh(context.Background(), RefreshOptions{Silent: true})
	assert.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Equal(t, 0, workspace.appliedCount())
}

func Test_Reconciler_StaleGenerationDiscarded(t *testing.T) {
	workspace := &fakeWorkspace{generation: 2}
	r := NewReconciler(staticScan(record("a.md", 100)), workspace, 1, testLogger())

	result, err := r.Refresh(context.Background(), RefreshOptions{Silent: true})
	require.NoError(t, err)
	assert.True(t, result.Stale)
	assert.Empty(t, workspace.Snapshot())
}

func Test_Reconciler_RejectsOverlappingRefresh(t *testing.T) {
	workspace := &fakeWorkspace{}
	entered := make(chan struct{})
	release := make(chan struct{})
	blocking := scanFunc(func(context.Context) ([]*index.DocumentRecord, error) {
		close(entered)
		<-release
		return []*index.DocumentRecord{record("a.md", 1)}, nil
	})
	r := NewReconciler(blocking, workspace, 0, testLogger())

	errs := make(chan error, 1)
	go func() {
		_, err := r.Refresh(context.Background(), RefreshOptions{Silent: true})
		errs <- err
	}()
	<-entered

	_, err := r.Refresh(context.Background(), RefreshOptions{Silent: true})
	assert.ErrorIs(t, err, ErrRefreshInFlight)

	close(release)
	require.NoError(t, <-errs)
	assert.Equal(t, 1, workspace.appliedCount())
}

func Test_AutoRefresher_TriggerAndStop(t *testing.T) {
	applied := make(chan struct{}, 1)
	workspace := &fakeWorkspace{onApply: func() { applied <- struct{}{} }}
	r := NewReconciler(staticScan(record("a.md", 100)), workspace, 0, testLogger())
	refresher := NewAutoRefresher(r, time.Hour, testLogger())

	refresher.Start(context.Background())
	assert.True(t, refresher.Running())

	refresher.Trigger()
	select {
	case <-applied:
	case <-time.After(5 * time.Second):
		t.Fatal("triggered refresh did not apply")
	}

	refresher.Stop()
	assert.False(t, refresher.Running())
	refresher.Stop()
}

func Test_AutoRefresher_Ticks(t *testing.T) {
	workspace := &fakeWorkspace{}
	calls := 0
	var mu sync.Mutex
	counting := scanFunc(func(context.Context) ([]*index.DocumentRecord, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil, nil
	})
	r := NewReconciler(counting, workspace, 0, testLogger())
	refresher := NewAutoRefresher(r, 10*time.Millisecond, testLogger())

	refresher.Start(context.Background())
	defer refresher.Stop()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 2
	}, 5*time.Second, 5*time.Millisecond)
}

func Test_NewAutoRefresher_DefaultInterval(t *testing.T) {
	refresher := NewAutoRefresher(nil, 0, testLogger())
	assert.Equal(t, DefaultInterval, refresher.interval)
}
