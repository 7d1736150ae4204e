package model

import (
	"fmt"
	"strings"
	"time"
)

// ClassificationRequest carries one free-text description through the cascade.
// Amount, Timestamp and UserID are optional.
type ClassificationRequest struct {
	Description string
	Amount      *float64
	Timestamp   *time.Time
	UserID      string
}

// Validate rejects requests the cascade cannot do anything with. This is the
// only error that propagates to the caller; everything past this point
// degrades to a low-confidence result instead of failing.
func (r ClassificationRequest) Validate() error {
	if strings.TrimSpace(r.Description) == "" && r.Amount == nil {
		return fmt.Errorf("description and amount are both empty")
	}
	return nil
}
