package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ltmtri/vnspend/internal/common"
	"github.com/ltmtri/vnspend/internal/model"
)

// SaveSuggestion inserts or updates a category suggestion. Updates are how
// the lifecycle transitions and sample merges are persisted.
func (s *SQLiteStorage) SaveSuggestion(ctx context.Context, suggestion *model.CategorySuggestion) error {
	if suggestion == nil {
		return fmt.Errorf("suggestion cannot be nil: %w", common.ErrInvalidInput)
	}
	if suggestion.ID == "" || suggestion.UserID == "" {
		return fmt.Errorf("suggestion is missing id or user: %w", common.ErrInvalidInput)
	}

	samples, err := json.Marshal(suggestion.Samples)
	if err != nil {
		return fmt.Errorf("failed to encode samples: %w", err)
	}

	query := `
		INSERT INTO suggestions (
			id, user_id, name, type, icon, color, confidence, samples,
			transaction_count, status, reject_reason, merged_into_id,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			confidence = excluded.confidence,
			samples = excluded.samples,
			transaction_count = excluded.transaction_count,
			status = excluded.status,
			reject_reason = excluded.reject_reason,
			merged_into_id = excluded.merged_into_id,
			updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		suggestion.ID, suggestion.UserID, suggestion.Name, string(suggestion.Type),
		suggestion.Icon, suggestion.Color, suggestion.Confidence, string(samples),
		suggestion.TransactionCount, string(suggestion.Status),
		suggestion.RejectReason, suggestion.MergedIntoID,
		suggestion.CreatedAt, suggestion.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save suggestion: %w", err)
	}

	return nil
}

// GetSuggestion returns one suggestion by ID.
func (s *SQLiteStorage) GetSuggestion(ctx context.Context, id string) (*model.CategorySuggestion, error) {
	if id == "" {
		return nil, fmt.Errorf("suggestion id cannot be empty: %w", common.ErrInvalidInput)
	}

	query := suggestionSelect + ` WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)
	suggestion, err := scanSuggestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("suggestion %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get suggestion: %w", err)
	}

	return suggestion, nil
}

// GetSuggestionsByStatus returns one user's suggestions in a given lifecycle
// state, most recently updated first.
func (s *SQLiteStorage) GetSuggestionsByStatus(ctx context.Context, userID string, status model.SuggestionStatus) ([]model.CategorySuggestion, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id cannot be empty: %w", common.ErrInvalidInput)
	}

	query := suggestionSelect + ` WHERE user_id = ? AND status = ? ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var suggestions []model.CategorySuggestion
	for rows.Next() {
		suggestion, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		suggestions = append(suggestions, *suggestion)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suggestions: %w", err)
	}

	return suggestions, nil
}

const suggestionSelect = `
	SELECT id, user_id, name, type, icon, color, confidence, samples,
		transaction_count, status, reject_reason, merged_into_id,
		created_at, updated_at
	FROM suggestions`

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSuggestion(row scanner) (*model.CategorySuggestion, error) {
	var (
		suggestion   model.CategorySuggestion
		catType      string
		status       string
		samples      string
		rejectReason sql.NullString
		mergedInto   sql.NullString
	)

	if err := row.Scan(&suggestion.ID, &suggestion.UserID, &suggestion.Name,
		&catType, &suggestion.Icon, &suggestion.Color, &suggestion.Confidence,
		&samples, &suggestion.TransactionCount, &status,
		&rejectReason, &mergedInto,
		&suggestion.CreatedAt, &suggestion.UpdatedAt); err != nil {
		return nil, err
	}

	suggestion.Type = model.CategoryType(catType)
	suggestion.Status = model.SuggestionStatus(status)
	suggestion.RejectReason = rejectReason.String
	suggestion.MergedIntoID = mergedInto.String

	if err := json.Unmarshal([]byte(samples), &suggestion.Samples); err != nil {
		return nil, fmt.Errorf("failed to decode samples: %w", err)
	}

	return &suggestion, nil
}
