package consensus

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/CreoDAMO/quantumfuse-sdk/crypto/pqc"
	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
)

// ProofOfStake requires the proposer to hold sufficient stake and to sign
// the block it proposes.
type ProofOfStake struct {
	mu    sync.Mutex
	log   zerolog.Logger
	cfg   Config
	epoch uint64
}

// NewProofOfStake creates the proof-of-stake mechanism.
func NewProofOfStake(log zerolog.Logger, cfg Config) *ProofOfStake {
	return &ProofOfStake{
		log: log.With().Str("mechanism", "pos").Logger(),
		cfg: cfg,
	}
}

func (p *ProofOfStake) Type() qf.Mechanism {
	return qf.MechanismProofOfStake
}

func (p *ProofOfStake) ValidateBlock(block *qf.Block) error {
	proposer, err := blockProposer(block)
	if err != nil {
		return err
	}
	if proposer.Stake < p.cfg.MinimumStake {
		return InvalidProposerError{
			NodeID: proposer.NodeID,
			Msg:    "insufficient stake to propose",
		}
	}
	return verifyProposerSignature(block, proposer)
}

func (p *ProofOfStake) MineBlock(
	ctx context.Context,
	parent *qf.Header,
	transactions []*qf.Transaction,
	stateRoot qf.Identifier,
	validators qf.IdentityList,
	proposer *Proposer,
) (*qf.Block, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if proposer.Identity.Stake < p.cfg.MinimumStake {
		return nil, InvalidProposerError{
			NodeID: proposer.Identity.NodeID,
			Msg:    "insufficient stake to propose",
		}
	}

	block, err := qf.NewBlock(p.cfg.ChainID, parent.ID(), parent.Height+1, transactions, stateRoot, validators)
	if err != nil {
		return nil, err
	}

	block.ConsensusData = qf.ConsensusData{
		Mechanism:  p.Type(),
		Difficulty: 1,
		GasLimit:   p.cfg.BlockGasLimit,
	}

	signBlock(block, proposer)

	return block, nil
}

// DistributeRewards pays the block reward to all validators, proportional to
// their stake.
func (p *ProofOfStake) DistributeRewards(ledger RewardLedger, validators qf.IdentityList) (uint64, error) {
	totalStake := validators.TotalStake()
	if totalStake == 0 {
		return 0, nil
	}

	var distributed uint64
	for _, validator := range validators {
		amount := p.cfg.BlockReward * validator.Stake / totalStake
		if amount == 0 {
			continue
		}
		if err := ledger.Credit(validator.Address, amount); err != nil {
			return distributed, err
		}
		distributed += amount
	}

	p.mu.Lock()
	p.epoch++
	p.mu.Unlock()

	return distributed, nil
}

func (p *ProofOfStake) AdjustParameters(Conditions) {}

// blockProposer resolves the proposer of a stake-based block: the signer of
// the first attached signature, which must be a member of the block's
// validator set.
func blockProposer(block *qf.Block) (*qf.Identity, error) {
	if len(block.Signatures) == 0 {
		return nil, InsufficientSignaturesError{Received: 0, Required: 1}
	}
	signerID := block.Signatures[0].SignerID
	proposer, ok := block.ValidatorSet.ByNodeID(signerID)
	if !ok {
		return nil, InvalidProposerError{
			NodeID: signerID,
			Msg:    "proposer is not in the validator set",
		}
	}
	return proposer, nil
}

// verifyProposerSignature checks the first attached signature against the
// proposer's staking key.
func verifyProposerSignature(block *qf.Block, proposer *qf.Identity) error {
	err := pqc.Verify(proposer.StakingPubKey, block.Header.SigningRoot(), block.Signatures[0].Signature)
	if err != nil {
		return InvalidBlockSignatureError{SignerID: proposer.NodeID, Err: err}
	}
	return nil
}

// signBlock attaches the proposer's endorsement as the block's first
// signature.
func signBlock(block *qf.Block, proposer *Proposer) {
	signature := proposer.Signer.Sign(block.Header.SigningRoot())
	block.Signatures = append(block.Signatures, qf.BlockSignature{
		SignerID:  proposer.Identity.NodeID,
		Signature: signature,
	})
}
