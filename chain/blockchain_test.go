package chain_test

import (
	"context"
	"testing"

	badgerdb "github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CreoDAMO/quantumfuse-sdk/chain"
	"github.com/CreoDAMO/quantumfuse-sdk/consensus"
	"github.com/CreoDAMO/quantumfuse-sdk/crypto/pqc"
	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
	"github.com/CreoDAMO/quantumfuse-sdk/module/mempool/stdmap"
	"github.com/CreoDAMO/quantumfuse-sdk/module/metrics"
	"github.com/CreoDAMO/quantumfuse-sdk/module/scoring"
	"github.com/CreoDAMO/quantumfuse-sdk/sharding"
	"github.com/CreoDAMO/quantumfuse-sdk/state"
	"github.com/CreoDAMO/quantumfuse-sdk/storage"
	bstorage "github.com/CreoDAMO/quantumfuse-sdk/storage/badger"
	"github.com/CreoDAMO/quantumfuse-sdk/utils/unittest"
)

type testChain struct {
	chain      *chain.Blockchain
	engine     *consensus.Engine
	state      *state.Manager
	validators qf.IdentityList
	keys       []*pqc.KeyPair
	proposers  []*consensus.Proposer
}

func newTestChain(t *testing.T, db *badgerdb.DB) *testChain {
	log := unittest.Logger()
	noop := metrics.NewNoopCollector()
	cfg := consensus.DefaultConfig()

	validators, keys := unittest.IdentityListFixture(t, 4, unittest.WithDelegate())
	proposers := make([]*consensus.Proposer, 0, len(validators))
	for i := range validators {
		proposers = append(proposers, &consensus.Proposer{Identity: validators[i], Signer: keys[i]})
	}

	mechanisms := map[qf.Mechanism]consensus.Mechanism{
		qf.MechanismProofOfWork:           consensus.NewProofOfWork(log, cfg),
		qf.MechanismProofOfStake:          consensus.NewProofOfStake(log, cfg),
		qf.MechanismDelegatedProofOfStake: consensus.NewDelegatedProofOfStake(log, cfg),
		qf.MechanismGreenProofOfWork:      consensus.NewGreenProofOfWork(log, cfg),
	}
	controller := consensus.NewController(log, noop, 0, mechanisms)
	engine, err := consensus.NewEngine(log, noop, cfg, controller, validators)
	require.NoError(t, err)

	stateManager := state.NewManager(log, noop, stdmap.NewTransactions(1000))
	shardManager, err := sharding.NewManager(log, noop, 4, 100, unittest.KeyPairFixture(t))
	require.NoError(t, err)

	blockchain := chain.New(
		log, noop, cfg, engine, stateManager, shardManager,
		scoring.NewHeuristic(1_000_000),
		bstorage.NewBlocks(db),
		bstorage.NewChainState(db),
		bstorage.NewCommitLog(db),
		bstorage.NewSnapshots(db),
	)

	require.NoError(t, blockchain.Bootstrap(qf.Genesis(cfg.ChainID, validators)))
	require.NoError(t, blockchain.Recover())

	return &testChain{
		chain:      blockchain,
		engine:     engine,
		state:      stateManager,
		validators: validators,
		keys:       keys,
		proposers:  proposers,
	}
}

// restartChain rebuilds the chain component over the same database with a
// fresh state manager, as after a process restart.
func restartChain(t *testing.T, db *badgerdb.DB, tc *testChain) *testChain {
	log := unittest.Logger()
	noop := metrics.NewNoopCollector()
	cfg := consensus.DefaultConfig()

	stateManager := state.NewManager(log, noop, stdmap.NewTransactions(1000))
	shardManager, err := sharding.NewManager(log, noop, 4, 100, unittest.KeyPairFixture(t))
	require.NoError(t, err)

	blockchain := chain.New(
		log, noop, cfg, tc.engine, stateManager, shardManager,
		scoring.NewHeuristic(1_000_000),
		bstorage.NewBlocks(db),
		bstorage.NewChainState(db),
		bstorage.NewCommitLog(db),
		bstorage.NewSnapshots(db),
	)

	return &testChain{
		chain:      blockchain,
		engine:     tc.engine,
		state:      stateManager,
		validators: tc.validators,
		keys:       tc.keys,
		proposers:  tc.proposers,
	}
}

// mineHalfApplied produces a block on top of genesis and persists it the
// way a crash between storing and finalizing would leave it: journaled and
// stored, with the boundary still at genesis.
func mineHalfApplied(t *testing.T, db *badgerdb.DB, tc *testChain, tx *qf.Transaction) *qf.Block {
	head, _ := tc.chain.Head()
	block, err := tc.engine.MineBlock(
		context.Background(), head, []*qf.Transaction{tx}, tc.state.StateRoot(), tc.proposers[0],
	)
	require.NoError(t, err)
	require.Equal(t, uint64(1), block.Header.Height)

	require.NoError(t, bstorage.NewCommitLog(db).Begin(block.ID(), block.Header.Height))
	require.NoError(t, bstorage.NewBlocks(db).Store(block))
	return block
}

func TestBootstrap(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		tc := newTestChain(t, db)

		head, headID := tc.chain.Head()
		assert.Equal(t, uint64(0), head.Height)
		assert.NotEqual(t, qf.ZeroID, headID)
	})
}

func TestProcessTransaction(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		tc := newTestChain(t, db)

		aliceKey := unittest.KeyPairFixture(t)
		require.NoError(t, tc.state.RegisterWallet("alice", aliceKey.PublicKey(), 10_000))

		tx := unittest.TransactionFixture(t, "alice", aliceKey, unittest.WithRecipient("bob"))
		require.NoError(t, tc.chain.ProcessTransaction(tx))
		assert.Equal(t, uint64(1), tc.state.Network().MempoolSize)

		t.Run("unknown sender rejected", func(t *testing.T) {
			stranger := unittest.TransactionFixture(t, "stranger", aliceKey)
			err := tc.chain.ProcessTransaction(stranger)
			assert.ErrorIs(t, err, state.ErrWalletNotFound)
		})

		t.Run("wrong key rejected", func(t *testing.T) {
			forged := unittest.TransactionFixture(t, "alice", unittest.KeyPairFixture(t), unittest.WithNonce(1))
			err := tc.chain.ProcessTransaction(forged)
			assert.ErrorIs(t, err, pqc.ErrInvalidSignature)
		})

		t.Run("overdraft rejected", func(t *testing.T) {
			broke := unittest.TransactionFixture(t, "alice", aliceKey,
				unittest.WithAmount(1_000_000), unittest.WithNonce(2))
			err := tc.chain.ProcessTransaction(broke)
			assert.True(t, state.IsInsufficientFundsError(err))
		})

		t.Run("suspicious transaction rejected", func(t *testing.T) {
			require.NoError(t, tc.state.Credit("alice", 10_000_000))
			shady := unittest.TransactionFixture(t, "alice", aliceKey,
				unittest.WithRecipient("alice"),
				unittest.WithAmount(5_000_000),
				unittest.WithFee(0),
				unittest.WithNonce(3),
			)
			err := tc.chain.ProcessTransaction(shady)
			assert.True(t, chain.IsSuspiciousTransactionError(err))
		})
	})
}

func TestMineBlockEndToEnd(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		tc := newTestChain(t, db)

		aliceKey := unittest.KeyPairFixture(t)
		require.NoError(t, tc.state.RegisterWallet("alice", aliceKey.PublicKey(), 10_000))
		require.NoError(t, tc.state.RegisterWallet("bob", nil, 0))

		tx := unittest.TransactionFixture(t, "alice", aliceKey,
			unittest.WithRecipient("bob"),
			unittest.WithAmount(500),
			unittest.WithFee(10),
		)
		require.NoError(t, tc.chain.ProcessTransaction(tx))
		rootBefore := tc.state.StateRoot()

		block, err := tc.chain.MineBlock(context.Background(), tc.proposers[0], tc.proposers...)
		require.NoError(t, err)

		head, headID := tc.chain.Head()
		assert.Equal(t, uint64(1), head.Height)
		assert.Equal(t, block.ID(), headID)
		assert.NotEqual(t, rootBefore, tc.state.StateRoot())

		alice, _ := tc.state.Wallet("alice")
		bob, _ := tc.state.Wallet("bob")
		assert.Equal(t, uint64(10_000-500-10), alice.Balance)
		assert.Equal(t, uint64(500), bob.Balance)
		assert.Equal(t, uint64(0), tc.state.Network().MempoolSize)

		stored, err := bstorage.NewBlocks(db).ByHeight(1)
		require.NoError(t, err)
		assert.Equal(t, block.ID(), stored.ID())

		t.Run("mining with empty pool fails", func(t *testing.T) {
			_, err := tc.chain.MineBlock(context.Background(), tc.proposers[0], tc.proposers...)
			assert.ErrorIs(t, err, qf.ErrEmptyTransactions)
		})

		t.Run("stale block rejected", func(t *testing.T) {
			err := tc.chain.AddBlock(block)
			assert.ErrorIs(t, err, chain.ErrDuplicateBlock)
		})
	})
}

func TestAddBlockContinuity(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		tc := newTestChain(t, db)

		block := unittest.BlockFixture(t, tc.validators, tc.keys)
		err := tc.chain.AddBlock(block)
		assert.True(t, chain.IsUnknownParentError(err), "a block not extending the head is rejected")
	})
}

func TestRecoverReplaysInterruptedBlock(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		tc := newTestChain(t, db)

		aliceKey := unittest.KeyPairFixture(t)
		require.NoError(t, tc.state.RegisterWallet("alice", aliceKey.PublicKey(), 10_000))
		require.NoError(t, tc.state.RegisterWallet("bob", nil, 0))

		tx := unittest.TransactionFixture(t, "alice", aliceKey,
			unittest.WithRecipient("bob"),
			unittest.WithAmount(500),
			unittest.WithFee(10),
		)
		require.NoError(t, tc.chain.ProcessTransaction(tx))

		// persist a snapshot so a restart can rebuild the wallet state
		_, err := tc.chain.SnapshotState()
		require.NoError(t, err)

		block := mineHalfApplied(t, db, tc, tx)

		restarted := restartChain(t, db, tc)
		require.NoError(t, restarted.chain.Recover())

		head, headID := restarted.chain.Head()
		assert.Equal(t, uint64(1), head.Height)
		assert.Equal(t, block.ID(), headID)

		alice, err := restarted.state.Wallet("alice")
		require.NoError(t, err)
		assert.Equal(t, uint64(10_000-500-10), alice.Balance)
		bob, err := restarted.state.Wallet("bob")
		require.NoError(t, err)
		assert.Equal(t, uint64(500), bob.Balance)
	})
}

func TestRecoverDiscardsUnappliableBlock(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		tc := newTestChain(t, db)

		aliceKey := unittest.KeyPairFixture(t)
		require.NoError(t, tc.state.RegisterWallet("alice", aliceKey.PublicKey(), 10_000))

		tx := unittest.TransactionFixture(t, "alice", aliceKey,
			unittest.WithAmount(500), unittest.WithFee(10))
		require.NoError(t, tc.chain.ProcessTransaction(tx))

		// no snapshot exists, so the restarted node cannot re-apply the
		// journaled block; startup must discard it rather than fail
		mineHalfApplied(t, db, tc, tx)

		restarted := restartChain(t, db, tc)
		require.NoError(t, restarted.chain.Recover())

		head, _ := restarted.chain.Head()
		assert.Equal(t, uint64(0), head.Height)

		_, _, err := bstorage.NewCommitLog(db).Pending()
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestSnapshotRoundTrip(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		tc := newTestChain(t, db)

		require.NoError(t, tc.state.RegisterWallet("alice", nil, 1000))
		snapshot, err := tc.chain.SnapshotState()
		require.NoError(t, err)
		assert.Equal(t, tc.state.StateRoot(), snapshot.StateRoot)

		require.NoError(t, tc.state.Credit("alice", 9000))
		require.NoError(t, tc.chain.RestoreState())

		alice, err := tc.state.Wallet("alice")
		require.NoError(t, err)
		assert.Equal(t, uint64(1000), alice.Balance)
	})
}

func TestConditionsDerivation(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		tc := newTestChain(t, db)

		cond := tc.chain.Conditions()
		assert.Equal(t, 0.0, cond.NetworkLoad)

		tc.chain.SetOperatorConditions(0.5, 0.3)
		cond = tc.chain.Conditions()
		assert.Equal(t, 0.3, cond.EnergyEfficiency)
		assert.LessOrEqual(t, cond.SecurityLevel, 0.5)

		mechanism := tc.chain.AdjustConsensus()
		assert.Equal(t, qf.MechanismProofOfWork, mechanism, "degraded security falls back to proof of work")
	})
}
