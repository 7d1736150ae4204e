package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ltmtri/vnspend/internal/common"
	"github.com/ltmtri/vnspend/internal/model"
)

// GetCategories returns every category created from approved suggestions,
// ordered by name.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	query := `
		SELECT id, name, type, icon, keywords
		FROM categories
		ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var (
			cat      model.Category
			catType  string
			keywords string
		)
		if err := rows.Scan(&cat.ID, &cat.Name, &catType, &cat.Icon, &keywords); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		cat.Type = model.CategoryType(catType)
		if err := json.Unmarshal([]byte(keywords), &cat.Keywords); err != nil {
			return nil, fmt.Errorf("failed to decode keywords: %w", err)
		}
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// CreateCategory inserts a new category row.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, category *model.Category) error {
	if category == nil {
		return fmt.Errorf("category cannot be nil: %w", common.ErrInvalidInput)
	}
	if category.ID == "" || category.Name == "" {
		return fmt.Errorf("category is missing id or name: %w", common.ErrInvalidInput)
	}

	keywords, err := json.Marshal(category.Keywords)
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}
	if category.Keywords == nil {
		keywords = []byte("[]")
	}

	query := `
		INSERT INTO categories (id, name, type, icon, keywords)
		VALUES (?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		category.ID, category.Name, string(category.Type), category.Icon, string(keywords))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("category %s: %w", category.ID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	slog.Info("category created", "id", category.ID, "name", category.Name)
	return nil
}
