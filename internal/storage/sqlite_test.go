package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ltmtri/vnspend/internal/common"
	"github.com/ltmtri/vnspend/internal/model"
	"github.com/ltmtri/vnspend/internal/service"
)

// Compile-time check that SQLiteStorage satisfies the service contract.
var _ service.Storage = (*SQLiteStorage)(nil)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStorage(t)
	require.NoError(t, store.Migrate(context.Background()))
}

func TestCorrectionsRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	events := []model.CorrectionEvent{
		{ID: "c1", UserID: "u1", Description: "an trua", Predicted: "an_uong", Corrected: "mua_sam", Layer: model.LayerKeyword, CreatedAt: base},
		{ID: "c2", UserID: "u2", Description: "grab bike", Predicted: "di_chuyen", Corrected: "di_chuyen", Layer: model.LayerFuzzy, CreatedAt: base.Add(time.Minute)},
		{ID: "c3", UserID: "u1", Description: "tap gym", Predicted: "giai_tri", Corrected: "suc_khoe", Layer: model.LayerExternalLLM, CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range events {
		require.NoError(t, store.SaveCorrection(ctx, &events[i]))
	}

	all, err := store.GetCorrections(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c1", all[0].ID, "insertion order is preserved")
	assert.Equal(t, model.LayerKeyword, all[0].Layer)

	mine, err := store.GetCorrectionsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "c3", mine[1].ID)
}

func TestCorrectionsAreAppendOnly(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	event := model.CorrectionEvent{ID: "c1", UserID: "u1", Predicted: "a", Corrected: "b", Layer: model.LayerKeyword, CreatedAt: time.Now()}
	require.NoError(t, store.SaveCorrection(ctx, &event))
	assert.Error(t, store.SaveCorrection(ctx, &event), "re-inserting the same event must fail")
}

func TestSuggestionLifecyclePersistence(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC)

	suggestion := &model.CategorySuggestion{
		ID:               "s1",
		UserID:           "u1",
		Name:             "Thú cưng",
		Type:             model.CategoryTypeExpense,
		Icon:             "🐕",
		Confidence:       model.SuggestionBaseConfidence,
		Samples:          []string{"mua pate"},
		TransactionCount: 1,
		Status:           model.SuggestionPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, store.SaveSuggestion(ctx, suggestion))

	require.NoError(t, suggestion.AddSample("pet shop", now.Add(time.Hour)))
	require.NoError(t, store.SaveSuggestion(ctx, suggestion))

	got, err := store.GetSuggestion(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.TransactionCount)
	assert.Equal(t, []string{"mua pate", "pet shop"}, got.Samples)
	assert.InDelta(t, 0.70, got.Confidence, 1e-9)

	pending, err := store.GetSuggestionsByStatus(ctx, "u1", model.SuggestionPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, got.Transition(model.SuggestionRejected, now.Add(2*time.Hour)))
	got.RejectReason = "duplicate"
	require.NoError(t, store.SaveSuggestion(ctx, got))

	pending, err = store.GetSuggestionsByStatus(ctx, "u1", model.SuggestionPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	rejected, err := store.GetSuggestion(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.SuggestionRejected, rejected.Status)
	assert.Equal(t, "duplicate", rejected.RejectReason)
}

func TestGetSuggestionNotFound(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetSuggestion(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreateCategory(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	category := &model.Category{
		ID:       "thu_cung",
		Name:     "Thú cưng",
		Type:     model.CategoryTypeExpense,
		Icon:     "🐕",
		Keywords: []string{"thu cung", "pate"},
	}
	require.NoError(t, store.CreateCategory(ctx, category))

	categories, err := store.GetCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, []string{"thu cung", "pate"}, categories[0].Keywords)

	err = store.CreateCategory(ctx, category)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestNewSQLiteStorageValidation(t *testing.T) {
	_, err := NewSQLiteStorage("")
	assert.Error(t, err)
}
