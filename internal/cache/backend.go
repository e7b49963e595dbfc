// Package cache implements a similarity-keyed response cache: entries are
// found by embedding similarity through a vector index and stored in a
// pluggable key-value backend.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by backends when an id has no entry.
var ErrNotFound = errors.New("cache: entry not found")

// ErrBackendUnavailable wraps transport-level backend failures. The
// semantic cache degrades these to misses rather than failing queries.
var ErrBackendUnavailable = errors.New("cache: backend unavailable")

// Entry is one cached response.
type Entry struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
	HitCount  int       `json:"hit_count"`
}

// Backend stores entries by id. Implementations must be safe for
// concurrent use.
type Backend interface {
	Get(ctx context.Context, id string) (*Entry, error)
	Put(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, id string) error
	Size(ctx context.Context) (int, error)
	Flush(ctx context.Context) error
	Close() error
}
