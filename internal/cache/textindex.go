package cache

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// TextIndex is a full-text index over cached query text, used by the
// admin cache-search endpoint to browse what the cache holds.
type TextIndex struct {
	mu    sync.RWMutex
	index bleve.Index
}

type textDoc struct {
	Query string `json:"query"`
}

// NewTextIndex returns an in-memory full-text index.
func NewTextIndex() (*TextIndex, error) {
	mapping := bleve.NewIndexMapping()
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, fmt.Errorf("create text index: %w", err)
	}
	return &TextIndex{index: idx}, nil
}

// Index adds or updates the query text for an entry id.
func (t *TextIndex) Index(id, query string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.index.Index(id, textDoc{Query: query})
}

// Delete removes an entry id from the index.
func (t *TextIndex) Delete(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.index.Delete(id)
}

// Search returns up to limit entry ids whose query text matches term.
func (t *TextIndex) Search(term string, limit int) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(term), limit, 0, false)
	res, err := t.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search text index: %w", err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// Reset drops all indexed documents by swapping in a fresh index.
func (t *TextIndex) Reset() error {
	fresh, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return fmt.Errorf("reset text index: %w", err)
	}
	t.mu.Lock()
	old := t.index
	t.index = fresh
	t.mu.Unlock()
	return old.Close()
}
