package consensus

import (
	"context"

	"github.com/CreoDAMO/quantumfuse-sdk/crypto/pqc"
	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
)

// Proposer bundles a validator identity with its signing key.
type Proposer struct {
	Identity *qf.Identity
	Signer   *pqc.KeyPair
}

// RewardLedger is the slice of the state manager the reward distribution
// needs: the ability to credit wallet balances.
type RewardLedger interface {
	Credit(address string, amount uint64) error
}

// Mechanism is one consensus sub-mechanism. Implementations are safe for
// concurrent use.
type Mechanism interface {

	// Type returns the mechanism identifier written into mined blocks.
	Type() qf.Mechanism

	// ValidateBlock checks the mechanism-specific proof carried by the
	// block. It returns an InvalidProofError, InvalidProposerError or
	// InvalidBlockSignatureError describing why the block is invalid, never
	// a bare failure.
	ValidateBlock(block *qf.Block) error

	// MineBlock builds a block over the given transactions and attaches the
	// mechanism's proof. Long-running searches honor ctx cancellation.
	MineBlock(
		ctx context.Context,
		parent *qf.Header,
		transactions []*qf.Transaction,
		stateRoot qf.Identifier,
		validators qf.IdentityList,
		proposer *Proposer,
	) (*qf.Block, error)

	// DistributeRewards pays out the block reward for one round and returns
	// the total credited. Proof-of-work variants are a no-op.
	DistributeRewards(ledger RewardLedger, validators qf.IdentityList) (uint64, error)

	// AdjustParameters lets the mechanism adapt its internal parameters to
	// observed network conditions.
	AdjustParameters(cond Conditions)
}
