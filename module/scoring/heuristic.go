package scoring

import (
	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
)

// Heuristic is a model-free scorer based on simple transaction shape
// heuristics. It exists so nodes have a usable default; operators are
// expected to replace it with an external scorer.
type Heuristic struct {
	// LargeAmount is the threshold above which transfers start to score.
	LargeAmount uint64
}

// NewHeuristic creates a heuristic scorer with the given amount threshold.
func NewHeuristic(largeAmount uint64) *Heuristic {
	return &Heuristic{LargeAmount: largeAmount}
}

// Score rates a transaction in [0,1]. Zero-fee transactions and transfers
// far above the configured threshold score higher.
func (h *Heuristic) Score(tx *qf.Transaction) float64 {
	score := 0.0
	if tx.Fee == 0 {
		score += 0.3
	}
	if h.LargeAmount > 0 && tx.Amount > h.LargeAmount {
		score += 0.4
	}
	if tx.Sender == tx.Recipient {
		score += 0.3
	}
	if score > 1 {
		score = 1
	}
	return score
}
