package consensus_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CreoDAMO/quantumfuse-sdk/consensus"
	"github.com/CreoDAMO/quantumfuse-sdk/crypto/pqc"
	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
	"github.com/CreoDAMO/quantumfuse-sdk/module/metrics"
	"github.com/CreoDAMO/quantumfuse-sdk/utils/unittest"
)

// testEngine builds an engine over n fresh validators.
func testEngine(t *testing.T, n int) (*consensus.Engine, qf.IdentityList, []*pqc.KeyPair) {
	log := unittest.Logger()
	cfg := consensus.DefaultConfig()
	validators, keys := unittest.IdentityListFixture(t, n, unittest.WithDelegate())

	mechanisms := map[qf.Mechanism]consensus.Mechanism{
		qf.MechanismProofOfWork:           consensus.NewProofOfWork(log, cfg),
		qf.MechanismProofOfStake:          consensus.NewProofOfStake(log, cfg),
		qf.MechanismDelegatedProofOfStake: consensus.NewDelegatedProofOfStake(log, cfg),
		qf.MechanismGreenProofOfWork:      consensus.NewGreenProofOfWork(log, cfg),
	}
	controller := consensus.NewController(log, metrics.NewNoopCollector(), 0, mechanisms)

	engine, err := consensus.NewEngine(log, metrics.NewNoopCollector(), cfg, controller, validators)
	require.NoError(t, err)
	return engine, validators, keys
}

// mineTestBlock mines a proof-of-stake block with the first validator as
// proposer and no co-signers.
func mineTestBlock(t *testing.T, engine *consensus.Engine, validators qf.IdentityList, keys []*pqc.KeyPair) *qf.Block {
	genesis := qf.Genesis("quantumfuse-local", validators)
	tx := unittest.TransactionFixture(t, validators[0].Address, keys[0])

	block, err := engine.MineBlock(
		context.Background(),
		genesis.Header,
		[]*qf.Transaction{tx},
		unittest.IdentifierFixture(),
		&consensus.Proposer{Identity: validators[0], Signer: keys[0]},
	)
	require.NoError(t, err)
	return block
}

func TestNewEngine(t *testing.T) {
	_, _, _ = testEngine(t, 4)

	log := unittest.Logger()
	cfg := consensus.DefaultConfig()
	cfg.MinValidators = 4
	validators, _ := unittest.IdentityListFixture(t, 2)
	controller := consensus.NewController(log, metrics.NewNoopCollector(), 0, nil)

	_, err := consensus.NewEngine(log, metrics.NewNoopCollector(), cfg, controller, validators)
	require.Error(t, err)

	_, err = consensus.NewEngine(log, metrics.NewNoopCollector(), cfg, controller, nil)
	require.Error(t, err)
}

func TestRequiredSignatures(t *testing.T) {
	engine, _, _ := testEngine(t, 4)
	assert.Equal(t, uint(3), engine.RequiredSignatures())

	engine, _, _ = testEngine(t, 3)
	assert.Equal(t, uint(3), engine.RequiredSignatures())

	engine, _, _ = testEngine(t, 10)
	assert.Equal(t, uint(7), engine.RequiredSignatures())
}

func TestValidateBlockQuorum(t *testing.T) {
	engine, validators, keys := testEngine(t, 4)

	t.Run("quorum reached", func(t *testing.T) {
		block := mineTestBlock(t, engine, validators, keys)
		require.NoError(t, engine.AppendSignature(block, validators[1].NodeID, keys[1]))
		require.NoError(t, engine.AppendSignature(block, validators[2].NodeID, keys[2]))
		require.NoError(t, engine.ValidateBlock(block))
	})

	t.Run("insufficient signatures", func(t *testing.T) {
		block := mineTestBlock(t, engine, validators, keys)
		require.NoError(t, engine.AppendSignature(block, validators[1].NodeID, keys[1]))
		err := engine.ValidateBlock(block)
		assert.True(t, consensus.IsInsufficientSignaturesError(err))
	})

	t.Run("invalid signature", func(t *testing.T) {
		block := mineTestBlock(t, engine, validators, keys)
		require.NoError(t, engine.AppendSignature(block, validators[1].NodeID, keys[1]))
		require.NoError(t, engine.AppendSignature(block, validators[2].NodeID, keys[2]))
		block.Signatures[2].Signature[0] ^= 0xff
		err := engine.ValidateBlock(block)
		assert.True(t, consensus.IsInvalidBlockSignatureError(err))
	})

	t.Run("unknown signer", func(t *testing.T) {
		block := mineTestBlock(t, engine, validators, keys)
		outsider := unittest.KeyPairFixture(t)
		block.Signatures = append(block.Signatures, qf.BlockSignature{
			SignerID:  unittest.IdentifierFixture(),
			Signature: outsider.Sign(block.Header.SigningRoot()),
		})
		err := engine.ValidateBlock(block)
		assert.True(t, consensus.IsInvalidBlockSignatureError(err))
	})

	t.Run("duplicate signer does not count twice", func(t *testing.T) {
		block := mineTestBlock(t, engine, validators, keys)
		require.NoError(t, engine.AppendSignature(block, validators[0].NodeID, keys[0]))
		require.NoError(t, engine.AppendSignature(block, validators[0].NodeID, keys[0]))
		err := engine.ValidateBlock(block)
		assert.True(t, consensus.IsInvalidBlockSignatureError(err))
	})
}

func TestValidateBlockDispatchesOnBlockMechanism(t *testing.T) {
	engine, validators, keys := testEngine(t, 4)

	block := mineTestBlock(t, engine, validators, keys)
	require.NoError(t, engine.AppendSignature(block, validators[1].NodeID, keys[1]))
	require.NoError(t, engine.AppendSignature(block, validators[2].NodeID, keys[2]))

	// the engine can move to another mechanism without invalidating blocks
	// produced under the previous one
	engine.AdjustParameters(consensus.Conditions{NetworkLoad: 0.95, SecurityLevel: 1, EnergyEfficiency: 1})
	assert.Equal(t, qf.MechanismDelegatedProofOfStake, engine.CurrentMechanism())
	require.NoError(t, engine.ValidateBlock(block))
}

func TestDistributeRewards(t *testing.T) {
	engine, validators, _ := testEngine(t, 4)

	ledger := &recordingLedger{credits: map[string]uint64{}}
	total, err := engine.DistributeRewards(ledger)
	require.NoError(t, err)

	cfg := consensus.DefaultConfig()
	share := cfg.BlockReward / 4
	assert.Equal(t, share*4, total, "equal stakes should split the reward evenly")
	for _, validator := range validators {
		assert.Equal(t, share, ledger.credits[validator.Address])
	}
}

type recordingLedger struct {
	credits map[string]uint64
}

func (l *recordingLedger) Credit(address string, amount uint64) error {
	l.credits[address] += amount
	return nil
}
