package model

import "time"

// CorrectionEvent records a human overriding (or confirming) a prediction.
// Events are append-only; they are never mutated after creation.
type CorrectionEvent struct {
	ID          string
	UserID      string
	Description string
	Predicted   string
	Corrected   string
	Layer       Layer
	CreatedAt   time.Time
}

// UserPattern is a learned per-user systematic correction from one category
// to another. At most one pattern is active per (user, source category).
type UserPattern struct {
	UserID     string
	FromID     string
	ToID       string
	Count      int
	LastSeenAt time.Time
}
