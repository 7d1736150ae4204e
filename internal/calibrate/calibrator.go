// Package calibrate rescales raw layer scores into trustworthy confidence
// values and decides when a prediction needs a human in the loop.
package calibrate

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/ltmtri/vnspend/internal/classify"
	"github.com/ltmtri/vnspend/internal/model"
)

// Calibration constants.
const (
	// DefaultTemperature flattens raw score distributions before softmax;
	// larger values are more conservative.
	DefaultTemperature = 1.5

	// ReviewConfidenceFloor: below this top probability a human must review.
	ReviewConfidenceFloor = 0.60
	// ReviewGapFloor: top-1/top-2 probability gaps narrower than this need review.
	ReviewGapFloor = 0.20
	// ReviewEntropyCeiling: distributions with more uncertainty (bits) than
	// this need review.
	ReviewEntropyCeiling = 1.5

	topK = 3
)

// Calibration is the calibrated view of one layer attempt.
type Calibration struct {
	Top                 model.CategoryScore
	Alternatives        model.CategoryScores
	Entropy             float64
	Gap                 float64
	RequiresHumanReview bool
}

// Calibrator applies temperature scaling and the human-review gate.
type Calibrator struct {
	logger      *slog.Logger
	temperature float64
}

// New creates a Calibrator. A non-positive temperature selects the default.
func New(temperature float64, logger *slog.Logger) *Calibrator {
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Calibrator{
		temperature: temperature,
		logger:      logger,
	}
}

// Temperature returns the configured temperature.
func (c *Calibrator) Temperature() float64 {
	return c.temperature
}

// Calibrate divides each raw score by the temperature, applies softmax, and
// evaluates the review gate. Entropy is computed over the renormalized top-K
// probabilities rather than the full catalog distribution, matching the
// alternatives actually surfaced to users.
func (c *Calibrator) Calibrate(raw model.CategoryScores) Calibration {
	if len(raw) == 0 {
		return Calibration{RequiresHumanReview: true}
	}

	scaled := make(model.CategoryScores, len(raw))
	for i, s := range raw {
		scaled[i] = model.CategoryScore{CategoryID: s.CategoryID, Score: s.Score / c.temperature}
	}

	probs := classify.Softmax(scaled)
	top := probs.TopN(topK)

	gap := top[0].Score
	if len(top) > 1 {
		gap = top[0].Score - top[1].Score
	}

	entropy := topKEntropy(top)

	cal := Calibration{
		Top:          top[0],
		Alternatives: top,
		Entropy:      entropy,
		Gap:          gap,
	}
	cal.RequiresHumanReview = top[0].Score < ReviewConfidenceFloor ||
		gap < ReviewGapFloor ||
		entropy > ReviewEntropyCeiling

	return cal
}

// Explain renders one of three human-readable shapes: a single confident
// category, two competing categories when review is required, or a single
// uncertain category. nameOf resolves category IDs to display names.
func (c *Calibrator) Explain(cal Calibration, nameOf func(string) string) string {
	top := nameOf(cal.Top.CategoryID)

	if !cal.RequiresHumanReview {
		return fmt.Sprintf("likely %s (%.0f%% confidence)", top, cal.Top.Score*100)
	}

	if len(cal.Alternatives) >= 2 && cal.Gap < ReviewGapFloor {
		second := nameOf(cal.Alternatives[1].CategoryID)
		return fmt.Sprintf("uncertain between %s and %s, please review", top, second)
	}

	return fmt.Sprintf("possibly %s (%.0f%% confidence), please review", top, cal.Top.Score*100)
}

// topKEntropy computes Shannon entropy (bits) of the top-K probabilities
// renormalized to sum to 1.
func topKEntropy(top model.CategoryScores) float64 {
	var sum float64
	for _, s := range top {
		sum += s.Score
	}
	if sum <= 0 {
		return 0
	}

	var entropy float64
	for _, s := range top {
		p := s.Score / sum
		if p > 0 {
			entropy -= p * math.Log2(p)
		}
	}
	return entropy
}
