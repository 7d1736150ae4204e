package classify

import (
	"math"

	"github.com/ltmtri/vnspend/internal/model"
)

// Softmax converts raw scores into a probability distribution. The maximum
// score is subtracted before exponentiation for numeric stability; the
// result sums to 1 whenever the input is non-empty.
func Softmax(scores model.CategoryScores) model.CategoryScores {
	if len(scores) == 0 {
		return nil
	}

	maxScore := scores[0].Score
	for _, s := range scores[1:] {
		if s.Score > maxScore {
			maxScore = s.Score
		}
	}

	probs := make(model.CategoryScores, len(scores))
	var sum float64
	for i, s := range scores {
		e := math.Exp(s.Score - maxScore)
		probs[i] = model.CategoryScore{CategoryID: s.CategoryID, Score: e}
		sum += e
	}
	for i := range probs {
		probs[i].Score /= sum
	}

	return probs
}
