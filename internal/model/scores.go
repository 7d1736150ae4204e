package model

import (
	"fmt"
	"sort"
)

// CategoryScore pairs a category with a score. Depending on context the score
// is either a raw feature score or a calibrated probability.
type CategoryScore struct {
	CategoryID string
	Score      float64
}

// CategoryScores is a slice of CategoryScore that supports sorting and
// utility methods.
type CategoryScores []CategoryScore

// Len implements sort.Interface.
func (s CategoryScores) Len() int {
	return len(s)
}

// Less implements sort.Interface - higher scores come first.
func (s CategoryScores) Less(i, j int) bool {
	if s[i].Score != s[j].Score {
		return s[i].Score > s[j].Score
	}
	// Equal scores sort by category for deterministic output
	return s[i].CategoryID < s[j].CategoryID
}

// Swap implements sort.Interface.
func (s CategoryScores) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// Sort sorts the scores in descending order.
func (s CategoryScores) Sort() {
	sort.Stable(s)
}

// Top returns the highest-scoring entry, or nil if empty.
func (s CategoryScores) Top() *CategoryScore {
	if len(s) == 0 {
		return nil
	}
	s.Sort()
	return &s[0]
}

// TopN returns the N highest-scoring entries.
func (s CategoryScores) TopN(n int) CategoryScores {
	if n <= 0 {
		return CategoryScores{}
	}

	s.Sort()

	if n > len(s) {
		n = len(s)
	}

	result := make(CategoryScores, n)
	copy(result, s[:n])
	return result
}

// Validate ensures the slice holds no duplicate categories and no empty IDs.
func (s CategoryScores) Validate() error {
	seen := make(map[string]bool)

	for i, cs := range s {
		if cs.CategoryID == "" {
			return fmt.Errorf("empty category id at index %d", i)
		}
		if seen[cs.CategoryID] {
			return fmt.Errorf("duplicate category %q in scores", cs.CategoryID)
		}
		seen[cs.CategoryID] = true
	}

	return nil
}
