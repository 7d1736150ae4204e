// Package monitor tracks per-layer usage, latency and confidence so
// operators can see when the cascade leans too hard on its expensive layers
// or when accuracy degrades.
package monitor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ltmtri/vnspend/internal/model"
)

// Alert thresholds and window bounds.
const (
	// ConfidenceWindowCap bounds the rolling confidence window per layer;
	// the oldest sample is evicted first. The cap keeps memory constant
	// under sustained load.
	ConfidenceWindowCap = 1000

	// ExpensiveLayerShareAlert: the LLM layer handling more than this share
	// of traffic means the cheap layers are underperforming.
	ExpensiveLayerShareAlert = 0.10

	// AccuracyAlertFloor: accuracy below this (with enough feedback
	// samples) is alerted.
	AccuracyAlertFloor = 0.80
	accuracyMinSamples = 10

	// alertMinInvocations avoids noisy share alerts on tiny sample sizes.
	alertMinInvocations = 10
)

// LayerStats is the derived view of one layer's counters.
type LayerStats struct {
	Invocations   int64
	UsageShare    float64
	AvgLatency    time.Duration
	AvgConfidence float64
}

// Stats is an atomic snapshot of all counters.
type Stats struct {
	Layers           map[model.Layer]LayerStats
	TotalInvocations int64
	FeedbackSamples  int64
	Accuracy         float64
}

// layerCounters accumulates one layer's raw numbers. confidences is a ring
// buffer so eviction stays O(1).
type layerCounters struct {
	confidences   []float64
	confidenceSum float64
	head          int
	count         int
	invocations   int64
	totalLatency  time.Duration
}

func (c *layerCounters) addConfidence(v float64) {
	if c.confidences == nil {
		c.confidences = make([]float64, ConfidenceWindowCap)
	}
	if c.count == ConfidenceWindowCap {
		c.confidenceSum -= c.confidences[c.head]
		c.confidences[c.head] = v
		c.head = (c.head + 1) % ConfidenceWindowCap
	} else {
		c.confidences[(c.head+c.count)%ConfidenceWindowCap] = v
		c.count++
	}
	c.confidenceSum += v
}

// Recorder collects cascade telemetry. All methods are safe for concurrent
// use; alerts are logged, never raised as errors.
type Recorder struct {
	layers    map[model.Layer]*layerCounters
	metrics   *Metrics
	logger    *slog.Logger
	correct   int64
	incorrect int64
	mu        sync.Mutex
}

// NewRecorder creates a Recorder. metrics may be nil when no prometheus
// registration is wanted.
func NewRecorder(metrics *Metrics, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		layers:  make(map[model.Layer]*layerCounters),
		metrics: metrics,
		logger:  logger,
	}
}

// RecordInvocation counts one accepted result from a layer.
func (r *Recorder) RecordInvocation(layer model.Layer, latency time.Duration, confidence float64) {
	r.mu.Lock()

	c, ok := r.layers[layer]
	if !ok {
		c = &layerCounters{}
		r.layers[layer] = c
	}
	c.invocations++
	c.totalLatency += latency
	c.addConfidence(confidence)

	total := int64(0)
	for _, lc := range r.layers {
		total += lc.invocations
	}
	llmShare := 0.0
	if llm, ok := r.layers[model.LayerExternalLLM]; ok && total > 0 {
		llmShare = float64(llm.invocations) / float64(total)
	}

	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ObserveInvocation(layer, latency, confidence)
	}

	if total >= alertMinInvocations && llmShare > ExpensiveLayerShareAlert {
		r.logger.Warn("LLM layer usage above threshold",
			"share", llmShare,
			"threshold", ExpensiveLayerShareAlert,
			"total_invocations", total)
	}
}

// RecordFeedback counts one ground-truth outcome reported by the feedback
// learner.
func (r *Recorder) RecordFeedback(correct bool) {
	r.mu.Lock()
	if correct {
		r.correct++
	} else {
		r.incorrect++
	}
	samples := r.correct + r.incorrect
	accuracy := float64(r.correct) / float64(samples)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ObserveFeedback(correct)
	}

	if samples >= accuracyMinSamples && accuracy < AccuracyAlertFloor {
		r.logger.Warn("classification accuracy below threshold",
			"accuracy", accuracy,
			"threshold", AccuracyAlertFloor,
			"samples", samples)
	}
}

// Stats returns a consistent snapshot of all counters.
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{Layers: make(map[model.Layer]LayerStats, len(r.layers))}

	var total int64
	for _, c := range r.layers {
		total += c.invocations
	}
	stats.TotalInvocations = total

	for layer, c := range r.layers {
		ls := LayerStats{Invocations: c.invocations}
		if total > 0 {
			ls.UsageShare = float64(c.invocations) / float64(total)
		}
		if c.invocations > 0 {
			ls.AvgLatency = c.totalLatency / time.Duration(c.invocations)
		}
		if c.count > 0 {
			ls.AvgConfidence = c.confidenceSum / float64(c.count)
		}
		stats.Layers[layer] = ls
	}

	stats.FeedbackSamples = r.correct + r.incorrect
	if stats.FeedbackSamples > 0 {
		stats.Accuracy = float64(r.correct) / float64(stats.FeedbackSamples)
	}

	return stats
}

// Reset clears all counters atomically.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.layers = make(map[model.Layer]*layerCounters)
	r.correct = 0
	r.incorrect = 0
}
