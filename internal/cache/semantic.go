package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

// Defaults for the semantic cache.
const (
	DefaultHitThreshold = 0.95
	DefaultTTL          = 168 * time.Hour
	DefaultMaxSize      = 10000

	// evictDivisor: one eviction pass removes maxSize/evictDivisor entries.
	evictDivisor = 10
)

// Options tune the semantic cache.
type Options struct {
	// HitThreshold is the minimum similarity for a cached answer to be
	// reused.
	HitThreshold float64
	// TTL is how long an entry stays servable. Expiry is lazy: entries
	// are dropped when a lookup lands on them past their TTL.
	TTL time.Duration
	// MaxSize bounds the entry count on the in-memory backend. Other
	// backends manage their own capacity.
	MaxSize int
}

func (o *Options) applyDefaults() {
	if o.HitThreshold <= 0 {
		o.HitThreshold = DefaultHitThreshold
	}
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxSize
	}
}

// Stats is a snapshot of cache counters. Counters only ever grow except
// through an explicit Clear, which zeroes them with the entries.
type Stats struct {
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Stores      uint64 `json:"stores"`
	Evictions   uint64 `json:"evictions"`
	Expirations uint64 `json:"expirations"`
	Entries     int    `json:"entries"`
}

// Hit is a successful lookup.
type Hit struct {
	Entry      Entry
	Similarity float64
}

// Cache finds previous answers by embedding similarity. The vector index
// and the backend can drift apart (evictions and expiry do not rewrite
// the index); a vector pointing at a missing entry is simply a miss.
type Cache struct {
	index   *vector.Index
	backend Backend
	text    *TextIndex
	opts    Options
	logger  *zap.Logger

	mu    sync.Mutex
	stats Stats

	now func() time.Time
}

// New builds a semantic cache over the given index and backend. text may
// be nil to disable the admin full-text view.
func New(index *vector.Index, backend Backend, text *TextIndex, opts Options, logger *zap.Logger) *Cache {
	opts.applyDefaults()
	return &Cache{
		index:   index,
		backend: backend,
		text:    text,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
}

// EntryID derives the cache id for a query: the first 16 hex characters
// of the SHA-256 of the trimmed, lower-cased text.
func EntryID(query string) string {
	norm := strings.ToLower(strings.TrimSpace(query))
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])[:16]
}

// Lookup returns the best cached answer at or above the hit threshold.
// Backend errors, orphaned index entries, and expired entries all come
// back as a miss; the cache never fails a query.
func (c *Cache) Lookup(ctx context.Context, embedding []float32) (*Hit, bool) {
	results, err := c.index.Search(embedding, 1, c.opts.HitThreshold)
	if err != nil || len(results) == 0 {
		c.count(func(s *Stats) { s.Misses++ })
		return nil, false
	}
	best := results[0]

	entry, err := c.backend.Get(ctx, best.ID)
	if err != nil {
		// Orphaned vector or backend trouble. Either way: miss.
		c.count(func(s *Stats) { s.Misses++ })
		c.logger.Debug("cache index miss on backend", zap.String("id", best.ID), zap.Error(err))
		return nil, false
	}

	if c.now().Sub(entry.CreatedAt) > c.opts.TTL {
		if err := c.backend.Delete(ctx, entry.ID); err != nil {
			c.logger.Debug("expired entry delete failed", zap.String("id", entry.ID), zap.Error(err))
		}
		if c.text != nil {
			_ = c.text.Delete(entry.ID)
		}
		c.count(func(s *Stats) { s.Expirations++; s.Misses++ })
		return nil, false
	}

	entry.HitCount++
	if err := c.backend.Put(ctx, entry); err != nil {
		c.logger.Debug("hit count update failed", zap.String("id", entry.ID), zap.Error(err))
	}
	c.count(func(s *Stats) { s.Hits++ })
	return &Hit{Entry: *entry, Similarity: best.Similarity}, true
}

// Store caches a generated answer under the query's embedding. On the
// in-memory backend it evicts the least-used tenth of capacity once the
// entry count passes MaxSize; evicted vectors stay in the index and
// resolve as misses later.
func (c *Cache) Store(ctx context.Context, query, response string, embedding []float32) error {
	id := EntryID(query)
	entry := &Entry{
		ID:        id,
		Query:     query,
		Response:  response,
		CreatedAt: c.now().UTC(),
		HitCount:  0,
	}
	if err := c.index.Add(id, embedding); err != nil {
		return err
	}
	if err := c.backend.Put(ctx, entry); err != nil {
		return err
	}
	if c.text != nil {
		if err := c.text.Index(id, query); err != nil {
			c.logger.Debug("text index update failed", zap.String("id", id), zap.Error(err))
		}
	}
	c.count(func(s *Stats) { s.Stores++ })
	c.maybeEvict(ctx)
	return nil
}

func (c *Cache) maybeEvict(ctx context.Context) {
	mem, ok := c.backend.(*MemoryBackend)
	if !ok {
		return
	}
	size, err := c.backend.Size(ctx)
	if err != nil || size <= c.opts.MaxSize {
		return
	}
	n := c.opts.MaxSize / evictDivisor
	if n < 1 {
		n = 1
	}
	ids := mem.EvictLeastUsed(n)
	for _, id := range ids {
		if c.text != nil {
			_ = c.text.Delete(id)
		}
	}
	c.count(func(s *Stats) { s.Evictions += uint64(len(ids)) })
	c.logger.Info("cache eviction", zap.Int("evicted", len(ids)), zap.Int("size", size))
}

// Clear drops all entries from the index, the backend, and the text
// index, and zeroes the counters.
func (c *Cache) Clear(ctx context.Context) error {
	c.index.Clear()
	if c.text != nil {
		if err := c.text.Reset(); err != nil {
			return err
		}
	}
	if err := c.backend.Flush(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	c.stats = Stats{}
	c.mu.Unlock()
	return nil
}

// SearchText returns cached entries whose query text matches term, for
// the admin cache browser. Returns nil when no text index is configured.
func (c *Cache) SearchText(ctx context.Context, term string, limit int) ([]Entry, error) {
	if c.text == nil {
		return nil, nil
	}
	ids, err := c.text.Search(term, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		entry, err := c.backend.Get(ctx, id)
		if err != nil {
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

// Stats returns a counter snapshot plus the current backend entry count.
func (c *Cache) Stats(ctx context.Context) Stats {
	c.mu.Lock()
	s := c.stats
	c.mu.Unlock()
	if n, err := c.backend.Size(ctx); err == nil {
		s.Entries = n
	}
	return s
}

func (c *Cache) count(update func(*Stats)) {
	c.mu.Lock()
	update(&c.stats)
	c.mu.Unlock()
}
