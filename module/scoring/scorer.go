// Package scoring defines the pluggable transaction scoring contract. The
// core depends only on this contract; model-backed scorers (fraud detection,
// congestion estimation) are external and plug in behind the interface.
package scoring

import (
	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
)

// TransactionScorer assigns a risk score in [0,1] to a transaction, where 0
// is benign and 1 is maximally suspect.
type TransactionScorer interface {
	Score(tx *qf.Transaction) float64
}

// Noop accepts every transaction with a zero score.
type Noop struct{}

func (Noop) Score(*qf.Transaction) float64 { return 0 }
