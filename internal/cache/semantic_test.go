package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T, opts Options) *Cache {
	t.Helper()
	text, err := NewTextIndex()
	if err != nil {
		t.Fatal(err)
	}
	idx, err := vector.New(4)
	if err != nil {
		t.Fatal(err)
	}
	return New(idx, NewMemoryBackend(), text, opts, zap.NewNop())
}

func TestCache_StoreAndLookup(t *testing.T) {
	c := newTestCache(t, Options{})
	ctx := context.Background()
	vec := []float32{1, 0, 0, 0}

	if err := c.Store(ctx, "What do tigers eat?", "Mostly deer.", vec); err != nil {
		t.Fatal(err)
	}
	hit, ok := c.Lookup(ctx, vec)
	if !ok {
		t.Fatal("expected hit")
	}
	if hit.Entry.Response != "Mostly deer." {
		t.Errorf("response = %q", hit.Entry.Response)
	}
	if hit.Entry.HitCount != 1 {
		t.Errorf("hit count = %d, want 1", hit.Entry.HitCount)
	}
	if hit.Similarity < 0.999 {
		t.Errorf("similarity = %f", hit.Similarity)
	}

	hit, _ = c.Lookup(ctx, vec)
	if hit.Entry.HitCount != 2 {
		t.Errorf("hit count after second lookup = %d, want 2", hit.Entry.HitCount)
	}
}

func TestCache_MissBelowThreshold(t *testing.T) {
	c := newTestCache(t, Options{})
	ctx := context.Background()
	if err := c.Store(ctx, "What do tigers eat?", "Mostly deer.", []float32{1, 0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Lookup(ctx, []float32{0, 1, 0, 0}); ok {
		t.Error("dissimilar query hit the cache")
	}
	s := c.Stats(ctx)
	if s.Misses != 1 {
		t.Errorf("misses = %d, want 1", s.Misses)
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := newTestCache(t, Options{TTL: time.Hour})
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	vec := []float32{1, 0, 0, 0}
	if err := c.Store(ctx, "What do tigers eat?", "Mostly deer.", vec); err != nil {
		t.Fatal(err)
	}

	c.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, ok := c.Lookup(ctx, vec); ok {
		t.Fatal("expired entry served")
	}
	s := c.Stats(ctx)
	if s.Expirations != 1 {
		t.Errorf("expirations = %d, want 1", s.Expirations)
	}
	if s.Entries != 0 {
		t.Errorf("entries = %d, want 0 after lazy delete", s.Entries)
	}
}

func TestCache_OrphanedVectorIsMiss(t *testing.T) {
	c := newTestCache(t, Options{})
	ctx := context.Background()
	vec := []float32{1, 0, 0, 0}
	if err := c.Store(ctx, "What do tigers eat?", "Mostly deer.", vec); err != nil {
		t.Fatal(err)
	}
	if err := c.backend.Delete(ctx, EntryID("What do tigers eat?")); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Lookup(ctx, vec); ok {
		t.Error("orphaned index entry served a hit")
	}
}

func TestCache_EvictionOnMemoryBackend(t *testing.T) {
	c := newTestCache(t, Options{MaxSize: 10})
	ctx := context.Background()
	for i := 0; i < 11; i++ {
		vec := make([]float32, 4)
		vec[i%4] = 1
		vec[(i+1)%4] = float32(i+1) * 0.1
		if err := c.Store(ctx, fmt.Sprintf("question %d", i), "answer", vec); err != nil {
			t.Fatal(err)
		}
	}
	s := c.Stats(ctx)
	if s.Evictions != 1 {
		t.Errorf("evictions = %d, want 1 (MaxSize/10)", s.Evictions)
	}
	if s.Entries != 10 {
		t.Errorf("entries = %d, want 10", s.Entries)
	}
}

func TestCache_Clear(t *testing.T) {
	c := newTestCache(t, Options{})
	ctx := context.Background()
	vec := []float32{1, 0, 0, 0}
	if err := c.Store(ctx, "What do tigers eat?", "Mostly deer.", vec); err != nil {
		t.Fatal(err)
	}
	c.Lookup(ctx, vec)
	if err := c.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Lookup(ctx, vec); ok {
		t.Error("hit after Clear")
	}
	s := c.Stats(ctx)
	if s.Entries != 0 {
		t.Errorf("entries = %d after Clear", s.Entries)
	}
	if s.Hits != 0 || s.Stores != 0 {
		t.Errorf("counters survived Clear: %+v", s)
	}

	// Clearing an already-empty cache is safe.
	if err := c.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if s := c.Stats(ctx); s.Entries != 0 {
		t.Errorf("entries = %d after second Clear", s.Entries)
	}
}

func TestCache_SearchText(t *testing.T) {
	c := newTestCache(t, Options{})
	ctx := context.Background()
	if err := c.Store(ctx, "What do tigers eat?", "Mostly deer.", []float32{1, 0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := c.Store(ctx, "Where do penguins live?", "Antarctica.", []float32{0, 1, 0, 0}); err != nil {
		t.Fatal(err)
	}
	entries, err := c.SearchText(ctx, "tigers", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Query != "What do tigers eat?" {
		t.Errorf("SearchText = %+v", entries)
	}
}

func TestEntryID_Normalization(t *testing.T) {
	a := EntryID("  What do Tigers eat?  ")
	b := EntryID("what do tigers eat?")
	if a != b {
		t.Errorf("ids differ: %s vs %s", a, b)
	}
	if len(a) != 16 {
		t.Errorf("id length = %d, want 16", len(a))
	}
}
