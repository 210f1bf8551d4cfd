// Package navigation keeps the open document, the shareable URL and the
// back/forward history consistent.
package navigation

import (
	"net/url"
	"sync"

	"github.com/google/uuid"
)

// FileParam is the single URL query parameter naming the open document.
const FileParam = "file"

// Entry is one step of the navigation history. An empty Path means no
// document is open.
type Entry struct {
	ID   string
	Path string
}

// History is the platform history stack the controller writes to.
type History interface {
	// Push appends a new entry after the current one, dropping forward entries.
	Push(path string) Entry
	// Replace rewrites the path of the current entry.
	Replace(path string) Entry
	// Current returns the active entry.
	Current() Entry
	// Subscribe registers fn for back/forward notifications. fn receives the
	// entry active after the transition.
	Subscribe(fn func(Entry)) (unsubscribe func())
}

// MemoryHistory is an in-process History with a cursor over its entries.
type MemoryHistory struct {
	mu          sync.Mutex
	baseURL     string
	entries     []Entry
	cursor      int
	subscribers map[int]func(Entry)
	nextSubID   int
}

var _ History = (*MemoryHistory)(nil)

// NewMemoryHistory creates a history whose first entry is derived from
// startURL, the URL the session was started with.
func NewMemoryHistory(baseURL string, startURL string) *MemoryHistory {
	return &MemoryHistory{
		baseURL:     baseURL,
		entries:     []Entry{newEntry(ParseURL(startURL))},
		subscribers: make(map[int]func(Entry)),
	}
}

func newEntry(path string) Entry {
	return Entry{ID: uuid.NewString(), Path: path}
}

func (h *MemoryHistory) Push(path string) Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry := newEntry(path)
	h.entries = append(h.entries[:h.cursor+1], entry)
	h.cursor++
	return entry
}

func (h *MemoryHistory) Replace(path string) Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.cursor].Path = path
	return h.entries[h.cursor]
}

func (h *MemoryHistory) Current() Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.cursor]
}

func (h *MemoryHistory) Subscribe(fn func(Entry)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextSubID
	h.nextSubID++
	h.subscribers[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subscribers, id)
	}
}

// Back moves the cursor one entry back and notifies subscribers.
// Returns false when there is no earlier entry.
func (h *MemoryHistory) Back() bool {
	return h.move(-1)
}

// Forward moves the cursor one entry forward and notifies subscribers.
// Returns false when there is no later entry.
func (h *MemoryHistory) Forward() bool {
	return h.move(1)
}

func (h *MemoryHistory) move(delta int) bool {
	h.mu.Lock()
	next := h.cursor + delta
	if next < 0 || next >= len(h.entries) {
		h.mu.Unlock()
		return false
	}
	h.cursor = next
	entry := h.entries[next]
	subscribers := make([]func(Entry), 0, len(h.subscribers))
	for _, fn := range h.subscribers {
		subscribers = append(subscribers, fn)
	}
	h.mu.Unlock()

	// Notify outside the lock so subscribers may write entries.
	for _, fn := range subscribers {
		fn(entry)
	}
	return true
}

// CanGoBack reports whether Back would move.
func (h *MemoryHistory) CanGoBack() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor > 0
}

// CanGoForward reports whether Forward would move.
func (h *MemoryHistory) CanGoForward() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor < len(h.entries)-1
}

// Len returns the number of entries.
func (h *MemoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// URL returns the shareable URL for the current entry.
func (h *MemoryHistory) URL() string {
	return BuildURL(h.baseURL, h.Current().Path)
}

// BuildURL sets or removes the file parameter on base.
func BuildURL(base string, path string) string {
	u, err := url.Parse(base)
	if err != nil {
		u = &url.URL{Path: base}
	}
	query := u.Query()
	if path == "" {
		query.Del(FileParam)
	} else {
		query.Set(FileParam, path)
	}
	u.RawQuery = query.Encode()
	return u.String()
}

// ParseURL returns the document path carried by rawURL, "" if none.
func ParseURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get(FileParam)
}
