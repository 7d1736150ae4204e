package model

import (
	"fmt"
	"time"
)

// SuggestionStatus is the lifecycle state of a discovered category suggestion.
type SuggestionStatus string

// Suggestion lifecycle states. Pending is the only non-terminal state.
const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionApproved SuggestionStatus = "approved"
	SuggestionRejected SuggestionStatus = "rejected"
	SuggestionMerged   SuggestionStatus = "merged"
)

// Suggestion confidence constants.
const (
	SuggestionBaseConfidence = 0.65
	SuggestionConfidenceStep = 0.05
	SuggestionMaxSamples     = 3
)

// CategorySuggestion is an emergent category mined from the miscellaneous
// bucket, awaiting a human decision.
type CategorySuggestion struct {
	ID               string
	UserID           string
	Name             string
	Type             CategoryType
	Icon             string
	Color            string
	Confidence       float64
	Samples          []string
	TransactionCount int
	Status           SuggestionStatus
	RejectReason     string
	MergedIntoID     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AddSample merges one more corroborating transaction into a pending
// suggestion: the sample list is capped, confidence grows by a fixed step up
// to 1.0, and the transaction count always increments.
func (s *CategorySuggestion) AddSample(description string, now time.Time) error {
	if s.Status != SuggestionPending {
		return fmt.Errorf("cannot add sample to %s suggestion", s.Status)
	}

	if len(s.Samples) < SuggestionMaxSamples {
		s.Samples = append(s.Samples, description)
	}
	s.TransactionCount++
	s.Confidence += SuggestionConfidenceStep
	if s.Confidence > 1.0 {
		s.Confidence = 1.0
	}
	s.UpdatedAt = now

	return nil
}

// Transition moves the suggestion out of pending. All three destination
// states are terminal.
func (s *CategorySuggestion) Transition(to SuggestionStatus, now time.Time) error {
	if s.Status != SuggestionPending {
		return fmt.Errorf("suggestion is %s, not pending", s.Status)
	}

	switch to {
	case SuggestionApproved, SuggestionRejected, SuggestionMerged:
		s.Status = to
		s.UpdatedAt = now
		return nil
	default:
		return fmt.Errorf("invalid suggestion transition to %q", to)
	}
}
