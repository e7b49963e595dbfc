package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryBackend_CRUD(t *testing.T) {
	m := NewMemoryBackend()
	ctx := context.Background()

	if _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}
	e := &Entry{ID: "a", Query: "q", Response: "r", CreatedAt: time.Now()}
	if err := m.Put(ctx, e); err != nil {
		t.Fatal(err)
	}
	got, err := m.Get(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	got.Response = "mutated"
	again, _ := m.Get(ctx, "a")
	if again.Response != "r" {
		t.Error("Get exposed internal entry")
	}
	if err := m.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if n, _ := m.Size(ctx); n != 0 {
		t.Errorf("size = %d after delete", n)
	}
}

func TestMemoryBackend_EvictLeastUsed(t *testing.T) {
	m := NewMemoryBackend()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	m.Put(ctx, &Entry{ID: "hot", HitCount: 5, CreatedAt: base})
	m.Put(ctx, &Entry{ID: "cold-old", HitCount: 0, CreatedAt: base})
	m.Put(ctx, &Entry{ID: "cold-new", HitCount: 0, CreatedAt: base.Add(time.Hour)})

	ids := m.EvictLeastUsed(2)
	if len(ids) != 2 {
		t.Fatalf("evicted %d, want 2", len(ids))
	}
	if ids[0] != "cold-old" || ids[1] != "cold-new" {
		t.Errorf("eviction order = %v, want lowest hits then oldest first", ids)
	}
	if _, err := m.Get(ctx, "hot"); err != nil {
		t.Error("most-used entry was evicted")
	}
}
