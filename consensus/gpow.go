package consensus

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/CreoDAMO/quantumfuse-sdk/crypto/pqc"
	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
)

// GreenProofOfWork is proof of work gated on a renewable-energy attestation:
// the proposer must be a validator flagged as renewable, and the block must
// carry the proposer's signature over the signing root in its energy
// attestation field. The nonce target runs at half the regular proof-of-work
// difficulty.
type GreenProofOfWork struct {
	mu           sync.RWMutex
	log          zerolog.Logger
	cfg          Config
	difficulty   uint64
	lastRetarget time.Time
}

// NewGreenProofOfWork creates the green proof-of-work mechanism.
func NewGreenProofOfWork(log zerolog.Logger, cfg Config) *GreenProofOfWork {
	difficulty := cfg.InitialDifficulty / 2
	if difficulty == 0 {
		difficulty = 1
	}
	return &GreenProofOfWork{
		log:          log.With().Str("mechanism", "gpow").Logger(),
		cfg:          cfg,
		difficulty:   difficulty,
		lastRetarget: time.Now().UTC(),
	}
}

func (g *GreenProofOfWork) Type() qf.Mechanism {
	return qf.MechanismGreenProofOfWork
}

func (g *GreenProofOfWork) ValidateBlock(block *qf.Block) error {
	if len(block.ConsensusData.EnergyAttestation) == 0 {
		return NewInvalidProofErrorf(g.Type(), "missing renewable-energy attestation")
	}

	proposer, err := blockProposer(block)
	if err != nil {
		return err
	}
	if !proposer.Renewable {
		return InvalidProposerError{
			NodeID: proposer.NodeID,
			Msg:    "proposer has no renewable-energy flag",
		}
	}

	err = pqc.Verify(proposer.StakingPubKey, block.Header.SigningRoot(), block.ConsensusData.EnergyAttestation)
	if err != nil {
		return NewInvalidProofErrorf(g.Type(), "energy attestation does not verify: %s", err)
	}

	if !meetsTarget(block.Header.SigningRoot(), block.ConsensusData.Nonce, block.ConsensusData.Difficulty) {
		return NewInvalidProofErrorf(g.Type(), "nonce %d does not meet difficulty target %d",
			block.ConsensusData.Nonce, block.ConsensusData.Difficulty)
	}

	return nil
}

func (g *GreenProofOfWork) MineBlock(
	ctx context.Context,
	parent *qf.Header,
	transactions []*qf.Transaction,
	stateRoot qf.Identifier,
	validators qf.IdentityList,
	proposer *Proposer,
) (*qf.Block, error) {

	if !proposer.Identity.Renewable {
		return nil, InvalidProposerError{
			NodeID: proposer.Identity.NodeID,
			Msg:    "proposer has no renewable-energy flag",
		}
	}

	block, err := qf.NewBlock(g.cfg.ChainID, parent.ID(), parent.Height+1, transactions, stateRoot, validators)
	if err != nil {
		return nil, err
	}

	g.mu.RLock()
	difficulty := g.difficulty
	g.mu.RUnlock()

	block.ConsensusData = qf.ConsensusData{
		Mechanism:  g.Type(),
		Difficulty: difficulty,
		GasLimit:   g.cfg.BlockGasLimit,
	}

	signingRoot := block.Header.SigningRoot()
	nonce, err := searchNonce(ctx, signingRoot, difficulty)
	if err != nil {
		return nil, err
	}
	block.ConsensusData.Nonce = nonce
	block.ConsensusData.EnergyAttestation = proposer.Signer.Sign(signingRoot)

	signBlock(block, proposer)

	return block, nil
}

// DistributeRewards is a no-op for the proof-of-work variants.
func (g *GreenProofOfWork) DistributeRewards(RewardLedger, qf.IdentityList) (uint64, error) {
	return 0, nil
}

// AdjustParameters retargets like regular proof of work, interval-gated.
func (g *GreenProofOfWork) AdjustParameters(cond Conditions) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UTC()
	if now.Sub(g.lastRetarget) < g.cfg.RetargetInterval {
		return
	}
	g.lastRetarget = now

	if cond.AvgBlockTime <= 0 {
		return
	}
	if cond.AvgBlockTime < g.cfg.BlockTime {
		g.difficulty++
	} else if cond.AvgBlockTime > g.cfg.BlockTime && g.difficulty > 1 {
		g.difficulty--
	}
}
