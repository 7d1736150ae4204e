package model

// Layer identifies which cascade layer produced a result.
type Layer string

// Cascade layers in increasing cost order.
const (
	LayerKeyword      Layer = "keywords"
	LayerFuzzy        Layer = "fuzzy"
	LayerExternalFast Layer = "external_fast"
	LayerExternalLLM  Layer = "external_llm"
)

// CascadeOrder lists the layers in the fixed order the orchestrator tries them.
var CascadeOrder = []Layer{LayerKeyword, LayerFuzzy, LayerExternalFast, LayerExternalLLM}

// ClassificationResult is the final answer for one request.
type ClassificationResult struct {
	CategoryID          string
	Confidence          float64
	Alternatives        CategoryScores
	Layer               Layer
	Explanation         string
	RequiresHumanReview bool
}
