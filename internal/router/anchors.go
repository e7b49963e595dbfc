// Package router classifies query embeddings as on-topic, off-topic, or
// ambiguous by comparing them against two sets of anchor embeddings.
package router

import (
	"encoding/json"
	"fmt"
	"os"
)

// Anchor is one labeled example phrase and its embedding.
type Anchor struct {
	Text   string    `json:"text"`
	Vector []float32 `json:"vector"`
}

// AnchorSet is the on-disk anchor artifact: positive anchors describe the
// domain, negative anchors describe common off-topic traps.
type AnchorSet struct {
	Dimension int      `json:"dimension"`
	Positive  []Anchor `json:"positive"`
	Negative  []Anchor `json:"negative"`
}

// Validate checks that the set is non-empty and every vector matches the
// declared dimension.
func (s *AnchorSet) Validate() error {
	if s.Dimension <= 0 {
		return fmt.Errorf("anchor set: dimension %d", s.Dimension)
	}
	if len(s.Positive) == 0 {
		return fmt.Errorf("anchor set: no positive anchors")
	}
	for _, group := range [][]Anchor{s.Positive, s.Negative} {
		for _, a := range group {
			if len(a.Vector) != s.Dimension {
				return fmt.Errorf("anchor %q: vector has %d dims, set declares %d", a.Text, len(a.Vector), s.Dimension)
			}
		}
	}
	return nil
}

// LoadAnchorFile reads and validates an anchor set from a JSON file.
func LoadAnchorFile(path string) (*AnchorSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read anchor file: %w", err)
	}
	var set AnchorSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse anchor file %s: %w", path, err)
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

// SaveAnchorFile writes the set as indented JSON, used by the anchor
// build command.
func SaveAnchorFile(path string, set *AnchorSet) error {
	if err := set.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("encode anchor set: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write anchor file: %w", err)
	}
	return nil
}
