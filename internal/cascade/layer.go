package cascade

import (
	"context"
	"fmt"
	"time"

	"github.com/ltmtri/vnspend/internal/classify"
	"github.com/ltmtri/vnspend/internal/common"
	"github.com/ltmtri/vnspend/internal/external"
	"github.com/ltmtri/vnspend/internal/model"
	"github.com/ltmtri/vnspend/internal/normalize"
)

// Layer is one stage of the cascade. Scores returns the raw per-category
// score vector plus the keywords behind the top category (empty for
// model-based layers); the orchestrator owns calibration and acceptance.
type Layer interface {
	Name() model.Layer
	ConfidenceCeiling() float64
	Scores(ctx context.Context, req model.ClassificationRequest) (model.CategoryScores, []string, error)
}

// External layer tuning.
const (
	// DefaultExternalTimeout bounds each out-of-process classifier call. A
	// timeout is a soft miss, never a request failure.
	DefaultExternalTimeout = 5 * time.Second

	fastCeiling = 0.90
	llmCeiling  = 0.95
)

// externalLayer adapts an out-of-process classifier to the Layer contract.
type externalLayer struct {
	client     external.Client
	registry   *classify.Registry
	normalizer *normalize.Normalizer
	name       model.Layer
	ceiling    float64
	timeout    time.Duration
}

// NewExternalFastLayer wraps the fast specialized classifier service.
func NewExternalFastLayer(client external.Client, registry *classify.Registry, normalizer *normalize.Normalizer, timeout time.Duration) Layer {
	return newExternalLayer(client, registry, normalizer, model.LayerExternalFast, fastCeiling, timeout)
}

// NewExternalLLMLayer wraps the general LLM classifier.
func NewExternalLLMLayer(client external.Client, registry *classify.Registry, normalizer *normalize.Normalizer, timeout time.Duration) Layer {
	return newExternalLayer(client, registry, normalizer, model.LayerExternalLLM, llmCeiling, timeout)
}

func newExternalLayer(client external.Client, registry *classify.Registry, normalizer *normalize.Normalizer, name model.Layer, ceiling float64, timeout time.Duration) Layer {
	if timeout <= 0 {
		timeout = DefaultExternalTimeout
	}
	return &externalLayer{
		client:     client,
		registry:   registry,
		normalizer: normalizer,
		name:       name,
		ceiling:    ceiling,
		timeout:    timeout,
	}
}

func (l *externalLayer) Name() model.Layer {
	return l.name
}

func (l *externalLayer) ConfidenceCeiling() float64 {
	return l.ceiling
}

// Scores calls the external classifier under a timeout and maps its raw
// score vector onto the catalog. Score entries for unknown categories are
// dropped; catalog categories the classifier did not score get zero.
func (l *externalLayer) Scores(ctx context.Context, req model.ClassificationRequest) (model.CategoryScores, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	resp, err := l.client.Classify(ctx, external.Request{
		NormalizedText: l.normalizer.Normalize(req.Description),
		Amount:         req.Amount,
		UserID:         req.UserID,
	})
	if err != nil {
		// Timeouts and transport failures all mean the same thing to the
		// orchestrator: this layer has no answer, move on.
		return nil, nil, fmt.Errorf("%w: %v", common.ErrLayerUnavailable, err)
	}

	scores := make(model.CategoryScores, 0, l.registry.Len())
	for _, entry := range l.registry.Entries() {
		scores = append(scores, model.CategoryScore{
			CategoryID: entry.Category.ID,
			Score:      resp.RawScores[entry.Category.ID],
		})
	}

	return scores, nil, nil
}
