package viewer

import (
	"context"
	"strconv"
	"sync"
)

// Setting keys persisted through the Store.
const (
	SettingShowHidden  = "showHidden"
	SettingAutoRefresh = "autoRefresh"
	SettingViewMode    = "viewMode"
)

// Store persists preferences and read history.
type Store interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	PutSetting(ctx context.Context, key string, value string) error
	LoadReadHistory(ctx context.Context, root string) (map[string]int64, error)
	MarkRead(ctx context.Context, root string, path string, readAt int64) error
}

// MemoryStore is a Store that lives as long as the process.
type MemoryStore struct {
	mu       sync.Mutex
	settings map[string]string
	reads    map[string]map[string]int64 // root -> path -> epoch ms
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		settings: make(map[string]string),
		reads:    make(map[string]map[string]int64),
	}
}

func (m *MemoryStore) GetSetting(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.settings[key]
	return value, ok, nil
}

func (m *MemoryStore) PutSetting(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

func (m *MemoryStore) LoadReadHistory(_ context.Context, root string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	history := make(map[string]int64, len(m.reads[root]))
	for path, readAt := range m.reads[root] {
		history[path] = readAt
	}
	return history, nil
}

func (m *MemoryStore) MarkRead(_ context.Context, root string, path string, readAt int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reads[root] == nil {
		m.reads[root] = make(map[string]int64)
	}
	m.reads[root][path] = readAt
	return nil
}

// preferences are the persisted toggles. Missing or malformed values fall
// back to the defaults.
type preferences struct {
	showHidden  bool
	autoRefresh bool
	viewMode    ViewMode
}

func loadPreferences(ctx context.Context, store Store) (preferences, error) {
	prefs := preferences{autoRefresh: true, viewMode: ViewTree}

	if value, ok, err := store.GetSetting(ctx, SettingShowHidden); err != nil {
		return prefs, err
	} else if ok {
		prefs.showHidden, _ = strconv.ParseBool(value)
	}

	if value, ok, err := store.GetSetting(ctx, SettingAutoRefresh); err != nil {
		return prefs, err
	} else if ok {
		if parsed, parseErr := strconv.ParseBool(value); parseErr == nil {
			prefs.autoRefresh = parsed
		}
	}

	if value, ok, err := store.GetSetting(ctx, SettingViewMode); err != nil {
		return prefs, err
	} else if ok && ViewMode(value).Valid() {
		prefs.viewMode = ViewMode(value)
	}

	return prefs, nil
}
