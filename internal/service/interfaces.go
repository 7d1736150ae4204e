// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/ltmtri/vnspend/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Correction operations. Corrections are append-only.
	SaveCorrection(ctx context.Context, event *model.CorrectionEvent) error
	GetCorrections(ctx context.Context) ([]model.CorrectionEvent, error)
	GetCorrectionsByUser(ctx context.Context, userID string) ([]model.CorrectionEvent, error)

	// Suggestion operations
	SaveSuggestion(ctx context.Context, suggestion *model.CategorySuggestion) error
	GetSuggestion(ctx context.Context, id string) (*model.CategorySuggestion, error)
	GetSuggestionsByStatus(ctx context.Context, userID string, status model.SuggestionStatus) ([]model.CategorySuggestion, error)

	// Category operations
	GetCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, category *model.Category) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
