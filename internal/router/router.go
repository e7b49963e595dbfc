package router

import (
	"fmt"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// Thresholds tune the classifier. Accept and Reject bound the positive
// similarity; NegativeCheck is the floor at which a strong negative match
// rejects outright.
type Thresholds struct {
	Accept        float64 `yaml:"accept"`
	Reject        float64 `yaml:"reject"`
	NegativeCheck float64 `yaml:"negative_check"`
}

// DefaultThresholds match the anchors the module ships with.
var DefaultThresholds = Thresholds{
	Accept:        0.72,
	Reject:        0.45,
	NegativeCheck: 0.60,
}

// Stats counts classifications by label since startup.
type Stats struct {
	Accepted  uint64 `json:"accepted"`
	Rejected  uint64 `json:"rejected"`
	Ambiguous uint64 `json:"ambiguous"`
	Anchors   int    `json:"anchors"`
}

// Router scores a query embedding against positive and negative anchor
// indexes and emits a routing decision. Anchor sets can be swapped at
// runtime; Classify runs under the lock so swaps never tear a decision.
type Router struct {
	mu         sync.RWMutex
	positive   *vector.Index
	negative   *vector.Index
	thresholds Thresholds
	stats      Stats
}

// New builds a router from an anchor set.
func New(set *AnchorSet, thresholds Thresholds) (*Router, error) {
	r := &Router{thresholds: thresholds}
	if err := r.SetAnchors(set); err != nil {
		return nil, err
	}
	return r, nil
}

// SetAnchors replaces both anchor indexes atomically. The old set keeps
// serving in-flight classifications until the swap.
func (r *Router) SetAnchors(set *AnchorSet) error {
	if err := set.Validate(); err != nil {
		return err
	}
	pos, err := vector.New(set.Dimension)
	if err != nil {
		return err
	}
	for i, a := range set.Positive {
		if err := pos.Add(fmt.Sprintf("pos-%d", i), a.Vector); err != nil {
			return fmt.Errorf("index positive anchor %q: %w", a.Text, err)
		}
	}
	neg, err := vector.New(set.Dimension)
	if err != nil {
		return err
	}
	for i, a := range set.Negative {
		if err := neg.Add(fmt.Sprintf("neg-%d", i), a.Vector); err != nil {
			return fmt.Errorf("index negative anchor %q: %w", a.Text, err)
		}
	}
	r.mu.Lock()
	r.positive = pos
	r.negative = neg
	r.stats.Anchors = pos.Size() + neg.Size()
	r.mu.Unlock()
	return nil
}

// Classify scores the embedding and returns a decision. Rejection is
// evaluated first: a negative match above the check threshold rejects
// even when the positive score would otherwise clear acceptance.
func (r *Router) Classify(embedding []float32) models.RoutingDecision {
	r.mu.Lock()
	defer r.mu.Unlock()

	maxPos := best(r.positive, embedding)
	maxNeg := best(r.negative, embedding)

	d := models.RoutingDecision{MaxPositive: maxPos, MaxNegative: maxNeg}
	switch {
	case maxNeg > r.thresholds.NegativeCheck || maxPos < r.thresholds.Reject:
		d.Label = models.RouteReject
		d.Confidence = maxNeg
		if c := 1 - maxPos; c > d.Confidence {
			d.Confidence = c
		}
		if maxNeg > r.thresholds.NegativeCheck {
			d.Reason = "matched off-topic anchors"
		} else {
			d.Reason = "below domain similarity floor"
		}
		r.stats.Rejected++
	case maxPos >= r.thresholds.Accept:
		d.Label = models.RouteAccept
		d.Confidence = maxPos
		d.Reason = "matched domain anchors"
		r.stats.Accepted++
	default:
		d.Label = models.RouteAmbiguous
		d.Confidence = maxPos
		d.Reason = "between thresholds"
		r.stats.Ambiguous++
	}
	return d
}

// Stats returns a snapshot of classification counts.
func (r *Router) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

func best(idx *vector.Index, embedding []float32) float64 {
	if idx == nil || idx.Size() == 0 {
		return 0
	}
	results, err := idx.Search(embedding, 1, -1)
	if err != nil || len(results) == 0 {
		return 0
	}
	return results[0].Similarity
}
