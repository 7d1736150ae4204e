package cascade

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ltmtri/vnspend/internal/calibrate"
	"github.com/ltmtri/vnspend/internal/classify"
	"github.com/ltmtri/vnspend/internal/common"
	"github.com/ltmtri/vnspend/internal/external"
	"github.com/ltmtri/vnspend/internal/feedback"
	"github.com/ltmtri/vnspend/internal/model"
	"github.com/ltmtri/vnspend/internal/monitor"
	"github.com/ltmtri/vnspend/internal/normalize"
)

type stubLayer struct {
	err     error
	name    model.Layer
	scores  model.CategoryScores
	matched []string
	ceiling float64
	calls   int
}

func (s *stubLayer) Name() model.Layer          { return s.name }
func (s *stubLayer) ConfidenceCeiling() float64 { return s.ceiling }

func (s *stubLayer) Scores(context.Context, model.ClassificationRequest) (model.CategoryScores, []string, error) {
	s.calls++
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.scores, s.matched, nil
}

func newTestRegistry(t *testing.T) *classify.Registry {
	t.Helper()
	return classify.NewRegistry(normalize.New(), classify.DefaultEntries())
}

// dominantScores gives one category a raw score that calibrates well above
// the review gate, everything else zero.
func dominantScores(registry *classify.Registry, categoryID string) model.CategoryScores {
	scores := make(model.CategoryScores, 0, registry.Len())
	for _, entry := range registry.Entries() {
		score := 0.0
		if entry.Category.ID == categoryID {
			score = 10.0
		}
		scores = append(scores, model.CategoryScore{CategoryID: entry.Category.ID, Score: score})
	}
	return scores
}

func uniformScores(registry *classify.Registry) model.CategoryScores {
	scores := make(model.CategoryScores, 0, registry.Len())
	for _, entry := range registry.Entries() {
		scores = append(scores, model.CategoryScore{CategoryID: entry.Category.ID, Score: 1.0})
	}
	return scores
}

func newOrchestrator(t *testing.T, cfg Config) *Orchestrator {
	t.Helper()
	if cfg.Registry == nil {
		cfg.Registry = newTestRegistry(t)
	}
	if cfg.Calibrator == nil {
		cfg.Calibrator = calibrate.New(0, nil)
	}
	o, err := New(cfg)
	require.NoError(t, err)
	return o
}

func TestCascadeResolvesAtKeywordLayer(t *testing.T) {
	registry := newTestRegistry(t)
	normalizer := normalize.New()
	amount := 45000.0

	o := newOrchestrator(t, Config{
		Registry: registry,
		Layers: []Layer{
			classify.NewKeyword(registry, normalizer, nil),
			classify.NewFuzzy(registry, normalizer, 0, nil),
		},
	})

	result, err := o.Classify(context.Background(), model.ClassificationRequest{
		Description: "starbucks cafe sáng 45000",
		Amount:      &amount,
	})
	require.NoError(t, err)
	assert.Equal(t, "an_uong", result.CategoryID)
	assert.Equal(t, model.LayerKeyword, result.Layer)
	assert.False(t, result.RequiresHumanReview)
	assert.Contains(t, result.Explanation, "matched keywords")
}

func TestCascadeEscalatesToFuzzyOnTypos(t *testing.T) {
	registry := newTestRegistry(t)
	normalizer := normalize.New()

	o := newOrchestrator(t, Config{
		Registry: registry,
		Layers: []Layer{
			classify.NewKeyword(registry, normalizer, nil),
			classify.NewFuzzy(registry, normalizer, 0, nil),
		},
	})

	result, err := o.Classify(context.Background(), model.ClassificationRequest{
		Description: "caphe szang",
	})
	require.NoError(t, err)
	assert.Equal(t, "an_uong", result.CategoryID)
	assert.Equal(t, model.LayerFuzzy, result.Layer)
	assert.False(t, result.RequiresHumanReview)
	assert.GreaterOrEqual(t, result.Confidence, calibrate.ReviewConfidenceFloor,
		"a typo with one strong fuzzy hit resolves without review")
}

func TestCascadeRejectsMisorderedLayers(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := New(Config{
		Registry:   registry,
		Calibrator: calibrate.New(0, nil),
		Layers: []Layer{
			&stubLayer{name: model.LayerFuzzy, ceiling: 0.85},
			&stubLayer{name: model.LayerKeyword, ceiling: 1.0},
		},
	})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	_, err = New(Config{
		Registry:   registry,
		Calibrator: calibrate.New(0, nil),
		Layers: []Layer{
			&stubLayer{name: model.Layer("bogus"), ceiling: 1.0},
		},
	})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestCascadeAdvancesPastErroringLayer(t *testing.T) {
	registry := newTestRegistry(t)
	broken := &stubLayer{name: model.LayerExternalFast, ceiling: 0.9, err: errors.New("connection refused")}
	healthy := &stubLayer{name: model.LayerExternalLLM, ceiling: 0.95, scores: dominantScores(registry, "hoa_don")}

	o := newOrchestrator(t, Config{
		Registry: registry,
		Layers:   []Layer{broken, healthy},
	})

	result, err := o.Classify(context.Background(), model.ClassificationRequest{Description: "thanh toan tien dien"})
	require.NoError(t, err)
	assert.Equal(t, "hoa_don", result.CategoryID)
	assert.Equal(t, model.LayerExternalLLM, result.Layer)
	assert.Equal(t, 1, broken.calls, "the failing layer is tried exactly once, never revisited")
}

func TestCascadeExhaustedReturnsLastResultForReview(t *testing.T) {
	registry := newTestRegistry(t)
	recorder := monitor.NewRecorder(nil, nil)
	first := &stubLayer{name: model.LayerKeyword, ceiling: 1.0, scores: uniformScores(registry)}
	second := &stubLayer{name: model.LayerFuzzy, ceiling: 0.85, scores: uniformScores(registry)}

	o := newOrchestrator(t, Config{
		Registry: registry,
		Layers:   []Layer{first, second},
		Recorder: recorder,
	})

	result, err := o.Classify(context.Background(), model.ClassificationRequest{Description: "noise"})
	require.NoError(t, err, "an exhausted cascade is not an error")
	assert.True(t, result.RequiresHumanReview)
	assert.Equal(t, model.LayerFuzzy, result.Layer, "the last layer's answer is kept")
	assert.Equal(t, int64(1), recorder.Stats().TotalInvocations)
}

func TestCascadeAllLayersUnavailableStillAnswers(t *testing.T) {
	o := newOrchestrator(t, Config{
		Layers: []Layer{
			&stubLayer{name: model.LayerExternalFast, ceiling: 0.9, err: errors.New("down")},
			&stubLayer{name: model.LayerExternalLLM, ceiling: 0.95, err: errors.New("down")},
		},
	})

	result, err := o.Classify(context.Background(), model.ClassificationRequest{Description: "anything"})
	require.NoError(t, err)
	assert.Equal(t, model.FallbackCategoryID, result.CategoryID)
	assert.Zero(t, result.Confidence)
	assert.True(t, result.RequiresHumanReview)
}

func TestCascadeRejectsInvalidInput(t *testing.T) {
	registry := newTestRegistry(t)
	o := newOrchestrator(t, Config{
		Registry: registry,
		Layers:   []Layer{&stubLayer{name: model.LayerKeyword, ceiling: 1.0, scores: uniformScores(registry)}},
	})

	_, err := o.Classify(context.Background(), model.ClassificationRequest{})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestCascadeAppliesCorrectionHistory(t *testing.T) {
	registry := newTestRegistry(t)
	learner := feedback.NewLearner(normalize.New(), nil, nil, nil)
	for i := 0; i < 5; i++ {
		require.NoError(t, learner.RecordCorrection(context.Background(), model.CorrectionEvent{
			UserID:      "u1",
			Description: "grab bike",
			Predicted:   "di_chuyen",
			Corrected:   "khac",
		}))
	}

	o := newOrchestrator(t, Config{
		Registry: registry,
		Learner:  learner,
		Layers: []Layer{
			&stubLayer{name: model.LayerKeyword, ceiling: 1.0, scores: dominantScores(registry, "di_chuyen")},
		},
	})

	result, err := o.Classify(context.Background(), model.ClassificationRequest{
		Description: "grab bike",
		UserID:      "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, "khac", result.CategoryID, "five identical corrections override the prediction")
	assert.Contains(t, result.Explanation, "correction history")

	// Another user sees the unadjusted prediction.
	other, err := o.Classify(context.Background(), model.ClassificationRequest{
		Description: "grab bike",
		UserID:      "u2",
	})
	require.NoError(t, err)
	assert.Equal(t, "di_chuyen", other.CategoryID)
	assert.Greater(t, other.Confidence, result.Confidence,
		"dampening lowers confidence for the corrected user only")
}

type fakeClient struct {
	resp external.Response
	err  error
	got  external.Request
	mu   sync.Mutex
}

func (c *fakeClient) Classify(_ context.Context, req external.Request) (external.Response, error) {
	c.mu.Lock()
	c.got = req
	c.mu.Unlock()
	return c.resp, c.err
}

func (c *fakeClient) Close() error { return nil }

func TestExternalLayerMapsScoresOntoCatalog(t *testing.T) {
	registry := newTestRegistry(t)
	client := &fakeClient{resp: external.Response{
		CategoryID: "an_uong",
		RawScores:  map[string]float64{"an_uong": 7.5, "khong_ton_tai": 9.9},
	}}

	layer := NewExternalFastLayer(client, registry, normalize.New(), time.Second)
	assert.Equal(t, model.LayerExternalFast, layer.Name())

	scores, matched, err := layer.Scores(context.Background(), model.ClassificationRequest{
		Description: "Ăn phở bò",
	})
	require.NoError(t, err)
	assert.Empty(t, matched)
	assert.Equal(t, "an pho bo", client.got.NormalizedText)

	byID := make(map[string]float64, len(scores))
	for _, s := range scores {
		byID[s.CategoryID] = s.Score
	}
	assert.Equal(t, 7.5, byID["an_uong"])
	assert.NotContains(t, byID, "khong_ton_tai", "unknown categories are dropped")
	assert.Len(t, scores, registry.Len(), "every catalog category is scored")
}

func TestExternalLayerReportsUnavailable(t *testing.T) {
	registry := newTestRegistry(t)
	client := &fakeClient{err: errors.New("connection refused")}

	layer := NewExternalFastLayer(client, registry, normalize.New(), time.Second)
	_, _, err := layer.Scores(context.Background(), model.ClassificationRequest{
		Description: "thanh toan",
	})
	assert.ErrorIs(t, err, common.ErrLayerUnavailable)
}
