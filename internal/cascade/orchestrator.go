// Package cascade orchestrates the layered classifier chain: cheap layers
// first, expensive ones only when confidence is lacking, and always an
// answer at the end.
package cascade

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ltmtri/vnspend/internal/calibrate"
	"github.com/ltmtri/vnspend/internal/classify"
	"github.com/ltmtri/vnspend/internal/common"
	"github.com/ltmtri/vnspend/internal/discovery"
	"github.com/ltmtri/vnspend/internal/feedback"
	"github.com/ltmtri/vnspend/internal/model"
	"github.com/ltmtri/vnspend/internal/monitor"
)

// Config wires an Orchestrator. Layers, Calibrator and Registry are
// required; Learner, Discoverer and Recorder are optional.
type Config struct {
	Layers     []Layer
	Calibrator *calibrate.Calibrator
	Registry   *classify.Registry
	Learner    *feedback.Learner
	Discoverer *discovery.Discoverer
	Recorder   *monitor.Recorder
	Logger     *slog.Logger
}

// Orchestrator runs the cascade state machine over its configured layers.
// Requests are independent and may run concurrently.
type Orchestrator struct {
	layers     []Layer
	calibrator *calibrate.Calibrator
	registry   *classify.Registry
	learner    *feedback.Learner
	discoverer *discovery.Discoverer
	recorder   *monitor.Recorder
	logger     *slog.Logger
}

// New creates an Orchestrator from cfg. Layers must appear in the fixed
// cheap-to-expensive order of model.CascadeOrder, each at most once, so the
// escalation walk can never revisit a cheaper layer.
func New(cfg Config) (*Orchestrator, error) {
	if len(cfg.Layers) == 0 {
		return nil, fmt.Errorf("cascade needs at least one layer: %w", common.ErrMissingConfig)
	}
	if cfg.Calibrator == nil || cfg.Registry == nil {
		return nil, fmt.Errorf("cascade needs a calibrator and a catalog: %w", common.ErrMissingConfig)
	}
	if err := validateLayerOrder(cfg.Layers); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Orchestrator{
		layers:     cfg.Layers,
		calibrator: cfg.Calibrator,
		registry:   cfg.Registry,
		learner:    cfg.Learner,
		discoverer: cfg.Discoverer,
		recorder:   cfg.Recorder,
		logger:     cfg.Logger,
	}, nil
}

// validateLayerOrder checks the configured layers against model.CascadeOrder.
func validateLayerOrder(layers []Layer) error {
	rank := make(map[model.Layer]int, len(model.CascadeOrder))
	for i, name := range model.CascadeOrder {
		rank[name] = i
	}

	prev := -1
	for _, layer := range layers {
		r, ok := rank[layer.Name()]
		if !ok {
			return fmt.Errorf("unknown cascade layer %q: %w", layer.Name(), common.ErrInvalidConfig)
		}
		if r <= prev {
			return fmt.Errorf("layer %q breaks the cheap-to-expensive order: %w", layer.Name(), common.ErrInvalidConfig)
		}
		prev = r
	}
	return nil
}

// Classify walks the layers in order until one clears the confidence gate.
// A layer error or timeout advances the cascade like a low-confidence
// result. When every layer is exhausted the last result is emitted with
// RequiresHumanReview set; the only error returned is invalid input.
func (o *Orchestrator) Classify(ctx context.Context, req model.ClassificationRequest) (*model.ClassificationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrInvalidInput, err)
	}

	var last *model.ClassificationResult
	var lastLatency time.Duration

	for _, layer := range o.layers {
		start := time.Now()
		raw, matched, err := layer.Scores(ctx, req)
		latency := time.Since(start)

		if err != nil {
			o.logger.Warn("cascade layer unavailable, advancing",
				"layer", layer.Name(),
				"error", err)
			continue
		}

		result := o.buildResult(layer, raw, matched, req)
		last = result
		lastLatency = latency

		if !result.RequiresHumanReview {
			o.emit(ctx, req, result, latency)
			return result, nil
		}

		o.logger.Debug("cascade layer below confidence gate, escalating",
			"layer", layer.Name(),
			"category", result.CategoryID,
			"confidence", result.Confidence)
	}

	if last == nil {
		// Every layer errored. Still answer: the fallback bucket at zero
		// confidence, flagged for review.
		last = &model.ClassificationResult{
			CategoryID:          model.FallbackCategoryID,
			Confidence:          0,
			Layer:               o.layers[len(o.layers)-1].Name(),
			Explanation:         "no classifier was available",
			RequiresHumanReview: true,
		}
	}
	last.RequiresHumanReview = true

	o.emit(ctx, req, last, lastLatency)
	return last, nil
}

// buildResult calibrates one layer's raw scores and applies the layer
// ceiling and the user's learned corrections.
func (o *Orchestrator) buildResult(layer Layer, raw model.CategoryScores, matched []string, req model.ClassificationRequest) *model.ClassificationResult {
	cal := o.calibrator.Calibrate(raw)

	categoryID := cal.Top.CategoryID
	confidence := cal.Top.Score
	if ceiling := layer.ConfidenceCeiling(); confidence > ceiling {
		confidence = ceiling
	}

	explanation := classify.MatchExplanation(matched)
	if len(matched) == 0 {
		explanation = o.calibrator.Explain(cal, o.nameOf)
	}

	if o.learner != nil && req.UserID != "" {
		confidence *= o.learner.ConfidenceAdjustment(req.UserID, categoryID)
		if override, ok := o.learner.SuggestedCategory(req.UserID, categoryID); ok {
			o.logger.Debug("prediction overridden by correction history",
				"user", req.UserID,
				"from", categoryID,
				"to", override)
			categoryID = override
			explanation = "overridden by your correction history"
		}
	}

	return &model.ClassificationResult{
		CategoryID:          categoryID,
		Confidence:          confidence,
		Alternatives:        cal.Alternatives,
		Layer:               layer.Name(),
		Explanation:         explanation,
		RequiresHumanReview: cal.RequiresHumanReview || confidence < calibrate.ReviewConfidenceFloor,
	}
}

// emit reports the final answer to monitoring and, for fallback-bucket
// answers, lets discovery look for an emergent theme.
func (o *Orchestrator) emit(ctx context.Context, req model.ClassificationRequest, result *model.ClassificationResult, latency time.Duration) {
	if o.recorder != nil {
		o.recorder.RecordInvocation(result.Layer, latency, result.Confidence)
	}

	if o.discoverer != nil && result.CategoryID == model.FallbackCategoryID && req.UserID != "" {
		if _, err := o.discoverer.Observe(ctx, req.UserID, req.Description); err != nil {
			o.logger.Warn("category discovery failed", "error", err)
		}
	}
}

func (o *Orchestrator) nameOf(id string) string {
	if entry, ok := o.registry.Get(id); ok {
		return entry.Category.Name
	}
	return id
}
