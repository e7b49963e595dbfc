// Package vector provides a brute-force inner-product index over
// unit-normalized embeddings, with two-file persistence.
package vector

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/kotae/pkg/utils"
)

// ErrDimensionMismatch is returned when a vector's length does not match
// the index's configured dimension. Fatal to the single call, not the index.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Result is a single search hit.
type Result struct {
	ID         string  `json:"id"`
	Similarity float64 `json:"similarity"`
}

// Index stores fixed-dimension vectors under string IDs and answers top-k
// inner-product queries. Vectors are normalized on insert, so inner product
// equals cosine similarity. Cached-query workloads stay in the thousands,
// so a linear scan is fine; swap in an ANN index behind the same contract
// if that assumption breaks.
//
// Known limitation: Add with a duplicate ID repoints the mapping but leaves
// the old vector searchable at its old position until a rebuild. Search
// resolves positions through the position→ID table, so a stale hit still
// reports the ID that owned that position.
type Index struct {
	dimension int
	vectors   [][]float32
	idToPos   map[string]int
	posToID   map[int]string
	mu        sync.RWMutex
}

// New creates an empty index for vectors of the given dimension.
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	return &Index{
		dimension: dimension,
		idToPos:   make(map[string]int),
		posToID:   make(map[int]string),
	}, nil
}

// Dimension returns the configured vector dimension.
func (ix *Index) Dimension() int {
	return ix.dimension
}

// Add normalizes vec and appends it under id. Returns ErrDimensionMismatch
// when len(vec) differs from the index dimension.
func (ix *Index) Add(id string, vec []float32) error {
	if len(vec) != ix.dimension {
		return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vec), ix.dimension)
	}
	v := make([]float32, ix.dimension)
	copy(v, vec)
	utils.NormalizeL2(v)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	pos := len(ix.vectors)
	ix.vectors = append(ix.vectors, v)
	ix.idToPos[id] = pos
	ix.posToID[pos] = id
	return nil
}

// Search returns up to k hits with similarity >= minSimilarity, ordered by
// descending similarity. Ties keep insertion order (earlier position wins).
// An empty index or no hit above the threshold yields an empty result, not
// an error.
func (ix *Index) Search(query []float32, k int, minSimilarity float64) ([]Result, error) {
	if len(query) != ix.dimension {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(query), ix.dimension)
	}
	q := make([]float32, ix.dimension)
	copy(q, query)
	utils.NormalizeL2(q)

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if k <= 0 || len(ix.vectors) == 0 {
		return []Result{}, nil
	}

	type scored struct {
		pos int
		sim float64
	}
	candidates := make([]scored, 0, len(ix.vectors))
	for pos, v := range ix.vectors {
		sim := utils.InnerProduct(q, v)
		if sim >= minSimilarity {
			candidates = append(candidates, scored{pos: pos, sim: sim})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].sim > candidates[j].sim
	})
	if k > len(candidates) {
		k = len(candidates)
	}
	out := make([]Result, 0, k)
	for _, c := range candidates[:k] {
		id, ok := ix.posToID[c.pos]
		if !ok {
			continue
		}
		out = append(out, Result{ID: id, Similarity: c.sim})
	}
	return out, nil
}

// Size returns the number of stored vectors, stale entries included.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vectors)
}

// Clear resets the index to empty, invalidating all mappings.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.vectors = nil
	ix.idToPos = make(map[string]int)
	ix.posToID = make(map[int]string)
}
