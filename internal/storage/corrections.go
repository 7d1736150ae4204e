package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ltmtri/vnspend/internal/common"
	"github.com/ltmtri/vnspend/internal/model"
)

// SaveCorrection appends one correction event. Events are immutable;
// re-inserting an existing ID is rejected.
func (s *SQLiteStorage) SaveCorrection(ctx context.Context, event *model.CorrectionEvent) error {
	if event == nil {
		return fmt.Errorf("correction event cannot be nil: %w", common.ErrInvalidInput)
	}
	if event.ID == "" || event.UserID == "" {
		return fmt.Errorf("correction event is missing id or user: %w", common.ErrInvalidInput)
	}

	query := `
		INSERT INTO corrections (id, user_id, description, predicted, corrected, layer, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		event.ID, event.UserID, event.Description,
		event.Predicted, event.Corrected, string(event.Layer), event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save correction: %w", err)
	}

	slog.Debug("correction saved", "id", event.ID, "user", event.UserID)
	return nil
}

// GetCorrections returns every correction event in insertion order.
func (s *SQLiteStorage) GetCorrections(ctx context.Context) ([]model.CorrectionEvent, error) {
	query := `
		SELECT id, user_id, description, predicted, corrected, layer, created_at
		FROM corrections
		ORDER BY created_at, id`

	return s.queryCorrections(ctx, query)
}

// GetCorrectionsByUser returns one user's correction events in insertion order.
func (s *SQLiteStorage) GetCorrectionsByUser(ctx context.Context, userID string) ([]model.CorrectionEvent, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id cannot be empty: %w", common.ErrInvalidInput)
	}

	query := `
		SELECT id, user_id, description, predicted, corrected, layer, created_at
		FROM corrections
		WHERE user_id = ?
		ORDER BY created_at, id`

	return s.queryCorrections(ctx, query, userID)
}

func (s *SQLiteStorage) queryCorrections(ctx context.Context, query string, args ...any) ([]model.CorrectionEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.CorrectionEvent
	for rows.Next() {
		var (
			event model.CorrectionEvent
			layer string
		)
		if err := rows.Scan(&event.ID, &event.UserID, &event.Description,
			&event.Predicted, &event.Corrected, &layer, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan correction: %w", err)
		}
		event.Layer = model.Layer(layer)
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating corrections: %w", err)
	}

	return events, nil
}
