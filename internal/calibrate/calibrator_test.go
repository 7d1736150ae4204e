package calibrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ltmtri/vnspend/internal/model"
)

func rawScores(pairs ...any) model.CategoryScores {
	scores := make(model.CategoryScores, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		scores = append(scores, model.CategoryScore{
			CategoryID: pairs[i].(string),
			Score:      pairs[i+1].(float64),
		})
	}
	return scores
}

func TestCalibrateUniformRequiresReview(t *testing.T) {
	c := New(DefaultTemperature, nil)

	raw := rawScores("a", 1.0, "b", 1.0, "c", 1.0, "d", 1.0, "e", 1.0)
	cal := c.Calibrate(raw)

	assert.True(t, cal.RequiresHumanReview, "uniform scores are maximally uncertain")
	assert.Less(t, cal.Top.Score, ReviewConfidenceFloor)
}

func TestCalibrateDominantScoreIsConfident(t *testing.T) {
	c := New(DefaultTemperature, nil)

	raw := rawScores("food", 6.0, "transport", 0.0, "bills", 0.0, "other", 0.0)
	cal := c.Calibrate(raw)

	assert.False(t, cal.RequiresHumanReview)
	assert.Equal(t, "food", cal.Top.CategoryID)
	assert.GreaterOrEqual(t, cal.Top.Score, ReviewConfidenceFloor)
	assert.Len(t, cal.Alternatives, 3)
}

func TestCalibrateNarrowGapRequiresReview(t *testing.T) {
	c := New(DefaultTemperature, nil)

	raw := rawScores("food", 5.0, "transport", 4.8, "other", 0.0)
	cal := c.Calibrate(raw)

	assert.True(t, cal.RequiresHumanReview)
	assert.Less(t, cal.Gap, ReviewGapFloor)
}

func TestCalibrateHigherTemperatureIsMoreConservative(t *testing.T) {
	raw := rawScores("food", 4.0, "transport", 1.0, "other", 0.0)

	sharp := New(1.0, nil).Calibrate(raw)
	flat := New(3.0, nil).Calibrate(raw)

	assert.Greater(t, sharp.Top.Score, flat.Top.Score)
}

func TestCalibrateEmptyScores(t *testing.T) {
	c := New(DefaultTemperature, nil)

	cal := c.Calibrate(nil)
	assert.True(t, cal.RequiresHumanReview)
}

func TestExplainShapes(t *testing.T) {
	c := New(DefaultTemperature, nil)
	nameOf := func(id string) string { return id }

	tests := []struct {
		name string
		raw  model.CategoryScores
		want string
	}{
		{
			name: "single confident category",
			raw:  rawScores("food", 8.0, "transport", 0.0, "other", 0.0),
			want: "likely food",
		},
		{
			name: "two competing categories",
			raw:  rawScores("food", 5.0, "transport", 4.9, "other", 0.0),
			want: "uncertain between food and transport",
		},
		{
			name: "single uncertain category",
			raw:  rawScores("food", 2.5, "transport", 0.0, "other", 0.0, "b", 0.0, "c", 0.0, "d", 0.0, "e", 0.0),
			want: "possibly food",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal := c.Calibrate(tt.raw)
			assert.Contains(t, c.Explain(cal, nameOf), tt.want)
		})
	}
}

func TestTuneTemperature(t *testing.T) {
	// Overconfident raw scores paired with only ~50% accuracy: tuning
	// should prefer a higher temperature over a sharp one.
	var samples []Sample
	for i := 0; i < 40; i++ {
		truth := "a"
		if i%2 == 0 {
			truth = "b"
		}
		samples = append(samples, Sample{
			Raw:          rawScores("a", 6.0, "b", 0.5, "c", 0.0),
			TrueCategory: truth,
		})
	}

	result, err := TuneTemperature(samples, TuneOptions{Min: 0.5, Max: 3.0, Step: 0.1})
	require.NoError(t, err)

	assert.Greater(t, result.Temperature, 1.0)
	assert.Less(t, result.ECE, 0.6)
}

func TestTuneTemperatureNoSamples(t *testing.T) {
	_, err := TuneTemperature(nil, TuneOptions{})
	assert.Error(t, err)
}

func TestTuneTemperatureProgress(t *testing.T) {
	samples := []Sample{{Raw: rawScores("a", 1.0, "b", 0.0), TrueCategory: "a"}}

	var calls int
	_, err := TuneTemperature(samples, TuneOptions{
		Min: 1.0, Max: 2.0, Step: 0.5,
		Progress: func(done, total int) { calls++ },
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}
