package watcher

import (
	"sort"
	"sync"
	"time"
)

// DebouncedEvent is one path of a batch with its latest operation.
type DebouncedEvent struct {
	Path string
	Op   EventOp
}

// EventOp is the kind of file system operation.
type EventOp int

const (
	OpCreate EventOp = iota
	OpWrite
	OpRemove
	OpRename
)

func (op EventOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	}
	return "unknown"
}

// Debouncer collects events and emits them as one batch after a quiet
// period. Events for the same path within the window collapse to the latest.
// When the consumer falls behind, pending events stay buffered and join the
// next batch.
type Debouncer struct {
	interval time.Duration
	events   map[string]DebouncedEvent
	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
	output   chan []DebouncedEvent
}

// NewDebouncer creates a debouncer with the given quiet interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		events:   make(map[string]DebouncedEvent),
		output:   make(chan []DebouncedEvent, 1),
	}
}

// Output returns the channel of batches. It is never closed.
func (d *Debouncer) Output() <-chan []DebouncedEvent {
	return d.output
}

// Add records an event and restarts the quiet period.
func (d *Debouncer) Add(path string, op EventOp) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.events[path] = DebouncedEvent{Path: path, Op: op}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.flush)
}

// Stop cancels a pending flush and drops further events.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || len(d.events) == 0 {
		return
	}

	batch := make([]DebouncedEvent, 0, len(d.events))
	for _, event := range d.events {
		batch = append(batch, event)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })

	select {
	case d.output <- batch:
		d.events = make(map[string]DebouncedEvent)
	default:
		// Consumer busy; retry after another quiet period.
		d.timer = time.AfterFunc(d.interval, d.flush)
	}
}
