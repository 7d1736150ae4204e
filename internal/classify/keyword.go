package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ltmtri/vnspend/internal/model"
	"github.com/ltmtri/vnspend/internal/normalize"
)

// Keyword scoring constants.
const (
	exactTokenScore      = 2.0
	substringScore       = 1.0
	longKeywordBonus     = 0.5
	contextBonusPerMatch = 0.5
	amountBonus          = 0.3
	longKeywordLen       = 5
	fallbackScore        = 0.5

	// Substring matching is restricted to keywords of at least this many
	// characters; shorter keywords only match as whole tokens, otherwise
	// two-letter words like "an" would hit inside unrelated text.
	minSubstringLen = 3
)

// Keyword is the cheapest cascade layer: literal keyword presence scoring
// over the shared catalog.
type Keyword struct {
	registry   *Registry
	normalizer *normalize.Normalizer
	logger     *slog.Logger
}

// NewKeyword creates the keyword layer.
func NewKeyword(registry *Registry, normalizer *normalize.Normalizer, logger *slog.Logger) *Keyword {
	if logger == nil {
		logger = slog.Default()
	}
	return &Keyword{
		registry:   registry,
		normalizer: normalizer,
		logger:     logger,
	}
}

// Name returns the cascade layer identifier.
func (c *Keyword) Name() model.Layer {
	return model.LayerKeyword
}

// ConfidenceCeiling caps the confidence this layer may report.
func (c *Keyword) ConfidenceCeiling() float64 {
	return 1.0
}

// Scores computes the raw feature score for every catalog category, plus the
// matched keywords of the best-scoring one. When every category scores zero,
// keywords and amount alike, the fallback category receives a nominal score
// so the cascade still has an answer to calibrate.
func (c *Keyword) Scores(_ context.Context, req model.ClassificationRequest) (model.CategoryScores, []string, error) {
	normalized := c.normalizer.Normalize(req.Description)
	padded := " " + normalized + " "

	scores := make(model.CategoryScores, 0, c.registry.Len())
	matchedBy := make(map[string][]string)

	allZero := true
	for _, entry := range c.registry.Entries() {
		var (
			raw     float64
			matched []string
		)

		for _, kw := range entry.Category.Keywords {
			switch {
			case strings.Contains(padded, " "+kw+" "):
				raw += exactTokenScore
			case len(kw) >= minSubstringLen && strings.Contains(normalized, kw):
				raw += substringScore
			default:
				continue
			}
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

// Classify runs the layer standalone: softmax over the raw scores, top-3
// alternatives, and an explanation naming the matched keywords.
func (c *Keyword) Classify(ctx context.Context, req model.ClassificationRequest) (*model.ClassificationResult, error) {
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

	result := &model.ClassificationResult{
		CategoryID:   top.CategoryID,
		Confidence:   top.Score,
		Alternatives: probs.TopN(3),
		Layer:        model.LayerKeyword,
		Explanation:  MatchExplanation(matched),
	}

	c.logger.Debug("keyword layer classified",
		"category", result.CategoryID,
		"confidence", result.Confidence,
		"matched", matched)

	return result, nil
}

// MatchExplanation renders the keyword-naming explanation, falling back to a
// generic message when no keyword matched.
func MatchExplanation(matched []string) string {
	if len(matched) == 0 {
		return "model-based prediction"
	}
	return fmt.Sprintf("matched keywords: %s", strings.Join(matched, ", "))
}

// topRaw returns the category ID with the highest raw score without
// disturbing the input order.
func topRaw(scores model.CategoryScores) string {
	if len(scores) == 0 {
		return ""
	}
	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return best.CategoryID
}
