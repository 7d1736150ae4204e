package classify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ltmtri/vnspend/internal/model"
	"github.com/ltmtri/vnspend/internal/normalize"
)

// DefaultFuzzyThreshold is the minimum similarity for a fuzzy keyword hit.
const DefaultFuzzyThreshold = 0.75

// fuzzyCeiling reflects the layer's lower precision: even a perfect fuzzy
// score never reports more confidence than this.
const fuzzyCeiling = 0.85

// fuzzyMatchScore is the raw value of a similarity-1.0 hit. It is larger
// than the keyword layer's exactTokenScore because fuzzy inputs usually
// produce exactly one hit per category: a lone similarity-0.8 match must
// still calibrate past the review gate, which over a ten-category catalog
// at the default temperature takes a raw score near 3.9.
const fuzzyMatchScore = 5.0

// Fuzzy re-runs the catalog keywords through similarity matching so typos
// and teencode the literal keyword layer rejected can still resolve.
type Fuzzy struct {
	registry   *Registry
	normalizer *normalize.Normalizer
	logger     *slog.Logger
	threshold  float64
}

// NewFuzzy creates the fuzzy layer. A non-positive threshold selects the
// default.
func NewFuzzy(registry *Registry, normalizer *normalize.Normalizer, threshold float64, logger *slog.Logger) *Fuzzy {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fuzzy{
		registry:   registry,
		normalizer: normalizer,
		threshold:  threshold,
		logger:     logger,
	}
}

// Name returns the cascade layer identifier.
func (c *Fuzzy) Name() model.Layer {
	return model.LayerFuzzy
}

// ConfidenceCeiling caps the confidence this layer may report.
func (c *Fuzzy) ConfidenceCeiling() float64 {
	return fuzzyCeiling
}

// Scores computes raw scores using BestMatch per keyword: each hit
// contributes fuzzyMatchScore weighted by its similarity. The long-keyword,
// context and amount bonuses carry over from the keyword layer unchanged.
func (c *Fuzzy) Scores(_ context.Context, req model.ClassificationRequest) (model.CategoryScores, []string, error) {
	scores := make(model.CategoryScores, 0, c.registry.Len())
	matchedBy := make(map[string][]string)

	allZero := true
	for _, entry := range c.registry.Entries() {
		var (
			raw     float64
			matched []string
		)

		for _, kw := range entry.Category.Keywords {
			_, score, matchType := c.normalizer.BestMatch(req.Description, []string{kw}, c.threshold)
			if matchType == normalize.MatchNone {
				continue
			}
			raw += fuzzyMatchScore * score
			if len(kw) > longKeywordLen {
				raw += longKeywordBonus
			}
			matched = append(matched, kw)
		}

		if len(matched) > 1 {
			raw += contextBonusPerMatch * float64(len(matched))
		}
		if req.Amount != nil && entry.Amounts.Contains(*req.Amount) {
			raw += amountBonus
		}
		raw *= entry.Weight

		if raw > 0 {
			allZero = false
		}
		if len(matched) > 0 {
			matchedBy[entry.Category.ID] = matched
		}
		scores = append(scores, model.CategoryScore{CategoryID: entry.Category.ID, Score: raw})
	}

	if allZero {
		for i := range scores {
			if scores[i].CategoryID == model.FallbackCategoryID {
				scores[i].Score = fallbackScore
			}
		}
	}

	top := topRaw(scores)
	return scores, matchedBy[top], nil
}

// Classify runs the layer standalone, mirroring Keyword.Classify but with
// the fuzzy confidence ceiling applied.
func (c *Fuzzy) Classify(ctx context.Context, req model.ClassificationRequest) (*model.ClassificationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	raw, matched, err := c.Scores(ctx, req)
	if err != nil {
		return nil, err
	}

	probs := Softmax(raw)
	top := probs.Top()
	if top == nil {
		return nil, fmt.Errorf("empty category catalog")
	}

	confidence := top.Score
	if confidence > fuzzyCeiling {
		confidence = fuzzyCeiling
	}

	result := &model.ClassificationResult{
		CategoryID:   top.CategoryID,
		Confidence:   confidence,
		Alternatives: probs.TopN(3),
		Layer:        model.LayerFuzzy,
		Explanation:  MatchExplanation(matched),
	}

	c.logger.Debug("fuzzy layer classified",
		"category", result.CategoryID,
		"confidence", result.Confidence,
		"matched", matched)

	return result, nil
}
