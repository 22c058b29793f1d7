package consensus

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
)

// DelegatedProofOfStake requires the proposer to be a member of the active
// delegate set: the top-N delegates by stake.
type DelegatedProofOfStake struct {
	log zerolog.Logger
	cfg Config
}

// NewDelegatedProofOfStake creates the delegated proof-of-stake mechanism.
func NewDelegatedProofOfStake(log zerolog.Logger, cfg Config) *DelegatedProofOfStake {
	return &DelegatedProofOfStake{
		log: log.With().Str("mechanism", "dpos").Logger(),
		cfg: cfg,
	}
}

func (d *DelegatedProofOfStake) Type() qf.Mechanism {
	return qf.MechanismDelegatedProofOfStake
}

// ActiveDelegates returns the active delegate set: validators flagged as
// delegates, ordered by stake descending, capped at the configured count.
func (d *DelegatedProofOfStake) ActiveDelegates(validators qf.IdentityList) qf.IdentityList {
	delegates := validators.Delegates()
	sort.SliceStable(delegates, func(i, j int) bool {
		return delegates[i].Stake > delegates[j].Stake
	})
	if d.cfg.DelegateCount > 0 && len(delegates) > d.cfg.DelegateCount {
		delegates = delegates[:d.cfg.DelegateCount]
	}
	return delegates
}

func (d *DelegatedProofOfStake) ValidateBlock(block *qf.Block) error {
	proposer, err := blockProposer(block)
	if err != nil {
		return err
	}

	active := d.ActiveDelegates(block.ValidatorSet)
	if _, ok := active.ByNodeID(proposer.NodeID); !ok {
		return InvalidProposerError{
			NodeID: proposer.NodeID,
			Msg:    "proposer is not in the active delegate set",
		}
	}

	return verifyProposerSignature(block, proposer)
}

func (d *DelegatedProofOfStake) MineBlock(
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

	active := d.ActiveDelegates(validators)
	if _, ok := active.ByNodeID(proposer.Identity.NodeID); !ok {
		return nil, InvalidProposerError{
			NodeID: proposer.Identity.NodeID,
			Msg:    "proposer is not in the active delegate set",
		}
	}

	block, err := qf.NewBlock(d.cfg.ChainID, parent.ID(), parent.Height+1, transactions, stateRoot, validators)
	if err != nil {
		return nil, err
	}

	block.ConsensusData = qf.ConsensusData{
		Mechanism:  d.Type(),
		Difficulty: 1,
		GasLimit:   d.cfg.BlockGasLimit,
	}

	signBlock(block, proposer)

	return block, nil
}

// DistributeRewards splits the block reward evenly across the active
// delegate set.
func (d *DelegatedProofOfStake) DistributeRewards(ledger RewardLedger, validators qf.IdentityList) (uint64, error) {
	active := d.ActiveDelegates(validators)
	if len(active) == 0 {
		return 0, nil
	}

	share := d.cfg.BlockReward / uint64(len(active))
	if share == 0 {
		return 0, nil
	}

	var distributed uint64
	for _, delegate := range active {
		if err := ledger.Credit(delegate.Address, share); err != nil {
			return distributed, err
		}
		distributed += share
	}
	return distributed, nil
}

func (d *DelegatedProofOfStake) AdjustParameters(Conditions) {}
