package monitor

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ltmtri/vnspend/internal/model"
)

func TestRecorderUsageShares(t *testing.T) {
	r := NewRecorder(nil, nil)

	for i := 0; i < 8; i++ {
		r.RecordInvocation(model.LayerKeyword, time.Millisecond, 0.9)
	}
	r.RecordInvocation(model.LayerFuzzy, 5*time.Millisecond, 0.8)
	r.RecordInvocation(model.LayerExternalLLM, 900*time.Millisecond, 0.7)

	stats := r.Stats()
	assert.Equal(t, int64(10), stats.TotalInvocations)
	assert.InDelta(t, 0.8, stats.Layers[model.LayerKeyword].UsageShare, 1e-9)
	assert.InDelta(t, 0.1, stats.Layers[model.LayerExternalLLM].UsageShare, 1e-9)
	assert.Equal(t, time.Millisecond, stats.Layers[model.LayerKeyword].AvgLatency)
	assert.InDelta(t, 0.9, stats.Layers[model.LayerKeyword].AvgConfidence, 1e-9)
}

func TestRecorderConfidenceWindowEviction(t *testing.T) {
	r := NewRecorder(nil, nil)

	// Fill the window with zeros, then push it out with ones. The average
	// must reflect only the most recent ConfidenceWindowCap samples.
	for i := 0; i < ConfidenceWindowCap; i++ {
		r.RecordInvocation(model.LayerKeyword, 0, 0.0)
	}
	for i := 0; i < ConfidenceWindowCap; i++ {
		r.RecordInvocation(model.LayerKeyword, 0, 1.0)
	}

	stats := r.Stats()
	assert.InDelta(t, 1.0, stats.Layers[model.LayerKeyword].AvgConfidence, 1e-9)
	assert.Equal(t, int64(2*ConfidenceWindowCap), stats.Layers[model.LayerKeyword].Invocations)
}

func TestRecorderAccuracy(t *testing.T) {
	r := NewRecorder(nil, nil)

	for i := 0; i < 7; i++ {
		r.RecordFeedback(true)
	}
	for i := 0; i < 3; i++ {
		r.RecordFeedback(false)
	}

	stats := r.Stats()
	assert.Equal(t, int64(10), stats.FeedbackSamples)
	assert.InDelta(t, 0.7, stats.Accuracy, 1e-9)
}

func TestRecorderReset(t *testing.T) {
	r := NewRecorder(nil, nil)

	r.RecordInvocation(model.LayerKeyword, time.Millisecond, 0.9)
	r.RecordFeedback(true)
	r.Reset()

	stats := r.Stats()
	assert.Zero(t, stats.TotalInvocations)
	assert.Zero(t, stats.FeedbackSamples)
	assert.Empty(t, stats.Layers)
}

func TestMetricsRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	r := NewRecorder(m, nil)
	r.RecordInvocation(model.LayerKeyword, time.Millisecond, 0.9)
	r.RecordInvocation(model.LayerKeyword, time.Millisecond, 0.8)
	r.RecordFeedback(false)

	count := testutil.ToFloat64(m.invocations.WithLabelValues(string(model.LayerKeyword)))
	require.Equal(t, 2.0, count)

	incorrect := testutil.ToFloat64(m.feedback.WithLabelValues("incorrect"))
	require.Equal(t, 1.0, incorrect)
}
