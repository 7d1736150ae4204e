package feedback

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ltmtri/vnspend/internal/model"
	"github.com/ltmtri/vnspend/internal/normalize"
)

func record(t *testing.T, l *Learner, userID, desc, predicted, corrected string, times int) {
	t.Helper()
	for i := 0; i < times; i++ {
		require.NoError(t, l.RecordCorrection(context.Background(), model.CorrectionEvent{
			UserID:      userID,
			Description: desc,
			Predicted:   predicted,
			Corrected:   corrected,
		}))
	}
}

func TestConfidenceAdjustmentAfterThreeCorrections(t *testing.T) {
	l := NewLearner(normalize.New(), nil, nil, nil)

	record(t, l, "u1", "an trua van phong", "an_uong", "mua_sam", 2)
	assert.Equal(t, 1.0, l.ConfidenceAdjustment("u1", "an_uong"),
		"two corrections are not yet a pattern")

	record(t, l, "u1", "an trua van phong", "an_uong", "mua_sam", 1)
	assert.Equal(t, AdjustmentFactor, l.ConfidenceAdjustment("u1", "an_uong"))

	// Other users and other categories are unaffected.
	assert.Equal(t, 1.0, l.ConfidenceAdjustment("u2", "an_uong"))
	assert.Equal(t, 1.0, l.ConfidenceAdjustment("u1", "mua_sam"))
}

func TestSuggestedCategoryAfterFiveCorrections(t *testing.T) {
	l := NewLearner(normalize.New(), nil, nil, nil)

	record(t, l, "u1", "grab bike", "di_chuyen", "khac", 4)
	_, ok := l.SuggestedCategory("u1", "di_chuyen")
	assert.False(t, ok)

	record(t, l, "u1", "grab bike", "di_chuyen", "khac", 1)
	got, ok := l.SuggestedCategory("u1", "di_chuyen")
	require.True(t, ok)
	assert.Equal(t, "khac", got)
}

func TestCorrectionToDifferentTargetResetsPattern(t *testing.T) {
	l := NewLearner(normalize.New(), nil, nil, nil)

	record(t, l, "u1", "tap gym", "giai_tri", "suc_khoe", 3)
	assert.Equal(t, AdjustmentFactor, l.ConfidenceAdjustment("u1", "giai_tri"))

	// Switching targets replaces the pattern instead of accumulating.
	record(t, l, "u1", "tap gym", "giai_tri", "mua_sam", 1)
	assert.Equal(t, 1.0, l.ConfidenceAdjustment("u1", "giai_tri"))

	patterns := l.Patterns("u1")
	require.Len(t, patterns, 1)
	assert.Equal(t, "mua_sam", patterns[0].ToID)
	assert.Equal(t, 1, patterns[0].Count)
}

func TestConfirmationDoesNotCreatePattern(t *testing.T) {
	l := NewLearner(normalize.New(), nil, nil, nil)

	record(t, l, "u1", "an pho", "an_uong", "an_uong", 5)
	assert.Empty(t, l.Patterns("u1"))
	assert.Equal(t, 1.0, l.ConfidenceAdjustment("u1", "an_uong"))
}

func TestKeywordCandidates(t *testing.T) {
	l := NewLearner(normalize.New(), nil, nil, nil)

	// "pilates" recurs three times toward suc_khoe; stop words and short
	// tokens are dropped.
	record(t, l, "u1", "tra tien pilates", "khac", "suc_khoe", 3)
	record(t, l, "u2", "di spa", "khac", "suc_khoe", 1)

	candidates := l.KeywordCandidates("suc_khoe")
	assert.Contains(t, candidates, "pilates")
	assert.NotContains(t, candidates, "tra")
	assert.NotContains(t, candidates, "tien")
	assert.NotContains(t, candidates, "spa", "one occurrence is not a recurring gap")
}

type fakeStore struct {
	mu     sync.Mutex
	events []model.CorrectionEvent
}

func (s *fakeStore) SaveCorrection(_ context.Context, event *model.CorrectionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

func (s *fakeStore) GetCorrections(context.Context) ([]model.CorrectionEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.CorrectionEvent(nil), s.events...), nil
}

func (s *fakeStore) GetCorrectionsByUser(context.Context, string) ([]model.CorrectionEvent, error) {
	return nil, nil
}

func (s *fakeStore) SaveSuggestion(context.Context, *model.CategorySuggestion) error { return nil }

func (s *fakeStore) GetSuggestion(context.Context, string) (*model.CategorySuggestion, error) {
	return nil, nil
}

func (s *fakeStore) GetSuggestionsByStatus(context.Context, string, model.SuggestionStatus) ([]model.CategorySuggestion, error) {
	return nil, nil
}

func (s *fakeStore) GetCategories(context.Context) ([]model.Category, error) { return nil, nil }
func (s *fakeStore) CreateCategory(context.Context, *model.Category) error   { return nil }
func (s *fakeStore) Migrate(context.Context) error                           { return nil }
func (s *fakeStore) Close() error                                            { return nil }

func TestReplayRebuildsPatterns(t *testing.T) {
	store := &fakeStore{}

	first := NewLearner(normalize.New(), store, nil, nil)
	record(t, first, "u1", "tap gym", "giai_tri", "suc_khoe", 3)

	// A fresh learner starts empty, then recovers the pattern from storage.
	second := NewLearner(normalize.New(), store, nil, nil)
	assert.Equal(t, 1.0, second.ConfidenceAdjustment("u1", "giai_tri"))

	require.NoError(t, second.Replay(context.Background()))
	assert.Equal(t, AdjustmentFactor, second.ConfidenceAdjustment("u1", "giai_tri"))
}

func TestRecordCorrectionValidation(t *testing.T) {
	l := NewLearner(normalize.New(), nil, nil, nil)

	err := l.RecordCorrection(context.Background(), model.CorrectionEvent{UserID: "u1"})
	assert.Error(t, err)
}

func TestConcurrentCorrections(t *testing.T) {
	l := NewLearner(normalize.New(), nil, nil, nil)

	var wg sync.WaitGroup
	users := []string{"u1", "u2", "u3", "u4"}
	for _, user := range users {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				_ = l.RecordCorrection(context.Background(), model.CorrectionEvent{
					UserID:      u,
					Description: "an trua",
					Predicted:   "an_uong",
					Corrected:   "mua_sam",
				})
			}
		}(user)
	}
	wg.Wait()

	for _, user := range users {
		patterns := l.Patterns(user)
		require.Len(t, patterns, 1)
		assert.Equal(t, 10, patterns[0].Count)
	}
}
