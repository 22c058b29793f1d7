package consensus

import (
	"context"
	"encoding/binary"
	"math/bits"
	"sync"
	"time"

	"github.com/rs/zerolog"

	qhash "github.com/CreoDAMO/quantumfuse-sdk/model/hash"
	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
)

// checkInterval is the number of nonces tried between context checks during
// the mining loop.
const checkInterval = 4096

// ProofOfWork validates a nonce against a difficulty target expressed in
// leading zero bits over the block signing root.
type ProofOfWork struct {
	mu           sync.RWMutex
	log          zerolog.Logger
	cfg          Config
	difficulty   uint64
	lastRetarget time.Time
}

// NewProofOfWork creates the proof-of-work mechanism with the configured
// initial difficulty.
func NewProofOfWork(log zerolog.Logger, cfg Config) *ProofOfWork {
	return &ProofOfWork{
		log:          log.With().Str("mechanism", "pow").Logger(),
		cfg:          cfg,
		difficulty:   cfg.InitialDifficulty,
		lastRetarget: time.Now().UTC(),
	}
}

func (p *ProofOfWork) Type() qf.Mechanism {
	return qf.MechanismProofOfWork
}

// Difficulty returns the current difficulty target.
func (p *ProofOfWork) Difficulty() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.difficulty
}

func (p *ProofOfWork) ValidateBlock(block *qf.Block) error {
	if !meetsTarget(block.Header.SigningRoot(), block.ConsensusData.Nonce, block.ConsensusData.Difficulty) {
		return NewInvalidProofErrorf(p.Type(), "nonce %d does not meet difficulty target %d",
			block.ConsensusData.Nonce, block.ConsensusData.Difficulty)
	}
	return nil
}

func (p *ProofOfWork) MineBlock(
	ctx context.Context,
	parent *qf.Header,
	transactions []*qf.Transaction,
	stateRoot qf.Identifier,
	validators qf.IdentityList,
	proposer *Proposer,
) (*qf.Block, error) {

	block, err := qf.NewBlock(p.cfg.ChainID, parent.ID(), parent.Height+1, transactions, stateRoot, validators)
	if err != nil {
		return nil, err
	}

	difficulty := p.Difficulty()
	block.ConsensusData = qf.ConsensusData{
		Mechanism:  p.Type(),
		Difficulty: difficulty,
		GasLimit:   p.cfg.BlockGasLimit,
	}

	nonce, err := searchNonce(ctx, block.Header.SigningRoot(), difficulty)
	if err != nil {
		return nil, err
	}
	block.ConsensusData.Nonce = nonce

	p.log.Debug().
		Uint64("height", block.Header.Height).
		Uint64("nonce", nonce).
		Uint64("difficulty", difficulty).
		Msg("block mined")

	return block, nil
}

// DistributeRewards is a no-op for proof of work.
func (p *ProofOfWork) DistributeRewards(RewardLedger, qf.IdentityList) (uint64, error) {
	return 0, nil
}

// AdjustParameters retargets the difficulty toward the configured block
// time. Retargeting is interval-gated; calls inside the interval do nothing.
func (p *ProofOfWork) AdjustParameters(cond Conditions) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now().UTC()
	if now.Sub(p.lastRetarget) < p.cfg.RetargetInterval {
		return
	}
	p.lastRetarget = now

	if cond.AvgBlockTime <= 0 {
		return
	}

	old := p.difficulty
	if cond.AvgBlockTime < p.cfg.BlockTime {
		p.difficulty++
	} else if cond.AvgBlockTime > p.cfg.BlockTime && p.difficulty > 1 {
		p.difficulty--
	}

	if p.difficulty != old {
		p.log.Info().
			Uint64("old", old).
			Uint64("new", p.difficulty).
			Dur("avg_block_time", cond.AvgBlockTime).
			Msg("difficulty retargeted")
	}
}

// searchNonce scans the nonce space until a digest meets the difficulty
// target, checking for cancellation periodically.
func searchNonce(ctx context.Context, signingRoot []byte, difficulty uint64) (uint64, error) {
	for nonce := uint64(0); ; nonce++ {
		if nonce%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if meetsTarget(signingRoot, nonce, difficulty) {
			return nonce, nil
		}
	}
}

// meetsTarget checks whether the digest over the signing root and nonce has
// at least `difficulty` leading zero bits.
func meetsTarget(signingRoot []byte, nonce uint64, difficulty uint64) bool {
	var nonceBytes [8]byte
	binary.LittleEndian.PutUint64(nonceBytes[:], nonce)

	preimage := make([]byte, 0, len(signingRoot)+8)
	preimage = append(preimage, signingRoot...)
	preimage = append(preimage, nonceBytes[:]...)
	digest := qhash.DefaultHasher.ComputeHash(preimage)

	return leadingZeroBits(digest) >= difficulty
}

func leadingZeroBits(digest []byte) uint64 {
	var count uint64
	for _, b := range digest {
		if b == 0 {
			count += 8
			continue
		}
		count += uint64(bits.LeadingZeros8(b))
		break
	}
	return count
}
