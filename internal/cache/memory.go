package cache

import (
	"context"
	"sort"
	"sync"
)

// MemoryBackend keeps entries in a mutex-guarded map. It is the only
// backend with an eviction policy; Redis expires keys itself and SQLite
// is treated as durable storage.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]*Entry)}
}

func (m *MemoryBackend) Get(_ context.Context, id string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MemoryBackend) Put(_ context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.entries[entry.ID] = &cp
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *MemoryBackend) Size(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

func (m *MemoryBackend) Flush(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*Entry)
	return nil
}

func (m *MemoryBackend) Close() error { return nil }

// EvictLeastUsed removes the n entries with the lowest hit count,
// breaking ties by age (oldest first), and returns their ids.
func (m *MemoryBackend) EvictLeastUsed(n int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n <= 0 || len(m.entries) == 0 {
		return nil
	}
	all := make([]*Entry, 0, len(m.entries))
	for _, e := range m.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].HitCount != all[j].HitCount {
			return all[i].HitCount < all[j].HitCount
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	if n > len(all) {
		n = len(all)
	}
	ids := make([]string, 0, n)
	for _, e := range all[:n] {
		delete(m.entries, e.ID)
		ids = append(ids, e.ID)
	}
	return ids
}
