package badger_test

import (
	"testing"

	badgerdb "github.com/dgraph-io/badger/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
	"github.com/CreoDAMO/quantumfuse-sdk/state"
	"github.com/CreoDAMO/quantumfuse-sdk/storage"
	bstorage "github.com/CreoDAMO/quantumfuse-sdk/storage/badger"
	"github.com/CreoDAMO/quantumfuse-sdk/utils/unittest"
)

func TestBlocksStoreRetrieve(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		blocks := bstorage.NewBlocks(db)

		validators, keys := unittest.IdentityListFixture(t, 4)
		block := unittest.BlockFixture(t, validators, keys)
		require.NoError(t, blocks.Store(block))

		byID, err := blocks.ByID(block.ID())
		require.NoError(t, err)
		assert.Equal(t, block.ID(), byID.ID())
		assert.Equal(t, block.Header.TxRoot, byID.Header.TxRoot)
		assert.Len(t, byID.Transactions, len(block.Transactions))

		byHeight, err := blocks.ByHeight(block.Header.Height)
		require.NoError(t, err)
		assert.Equal(t, block.ID(), byHeight.ID())

		err = blocks.Store(block)
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)

		// a different block at the same height conflicts on the height index
		otherValidators, otherKeys := unittest.IdentityListFixture(t, 4)
		conflicting := unittest.BlockFixture(t, otherValidators, otherKeys)
		require.Equal(t, block.Header.Height, conflicting.Header.Height)
		err = blocks.Store(conflicting)
		assert.ErrorIs(t, err, storage.ErrDataMismatch)

		_, err = blocks.ByID(unittest.IdentifierFixture())
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = blocks.ByHeight(999)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestChainStateBootstrap(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		chainState := bstorage.NewChainState(db)

		_, _, err := chainState.Finalized()
		assert.ErrorIs(t, err, storage.ErrNotFound)

		validators, _ := unittest.IdentityListFixture(t, 4)
		genesis := qf.Genesis("test", validators)
		require.NoError(t, chainState.Bootstrap(genesis))

		height, blockID, err := chainState.Finalized()
		require.NoError(t, err)
		assert.Equal(t, uint64(0), height)
		assert.Equal(t, genesis.ID(), blockID)

		// bootstrapping twice is a no-op
		require.NoError(t, chainState.Bootstrap(genesis))

		next := unittest.IdentifierFixture()
		require.NoError(t, chainState.Finalize(next, 1))
		height, blockID, err = chainState.Finalized()
		require.NoError(t, err)
		assert.Equal(t, uint64(1), height)
		assert.Equal(t, next, blockID)
	})
}

func TestCommitLog(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		commits := bstorage.NewCommitLog(db)

		_, _, err := commits.Pending()
		assert.ErrorIs(t, err, storage.ErrNotFound)

		blockID := unittest.IdentifierFixture()
		require.NoError(t, commits.Begin(blockID, 7))

		pendingID, height, err := commits.Pending()
		require.NoError(t, err)
		assert.Equal(t, blockID, pendingID)
		assert.Equal(t, uint64(7), height)

		require.NoError(t, commits.Clear())
		_, _, err = commits.Pending()
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestSnapshots(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badgerdb.DB) {
		snapshots := bstorage.NewSnapshots(db)

		_, err := snapshots.Latest()
		assert.ErrorIs(t, err, storage.ErrNotFound)

		first := &state.Snapshot{
			Height:    1,
			StateRoot: unittest.IdentifierFixture(),
			Wallets: []state.Wallet{
				{Address: "alice", Balance: 1000, Staked: 100},
			},
		}
		require.NoError(t, snapshots.Store(first))

		second := &state.Snapshot{
			Height:    5,
			StateRoot: unittest.IdentifierFixture(),
			Wallets: []state.Wallet{
				{Address: "alice", Balance: 900},
				{Address: "bob", Balance: 100},
			},
		}
		require.NoError(t, snapshots.Store(second))

		byHeight, err := snapshots.ByHeight(1)
		require.NoError(t, err)
		assert.Equal(t, first.StateRoot, byHeight.StateRoot)
		assert.Equal(t, first.Wallets, byHeight.Wallets)

		latest, err := snapshots.Latest()
		require.NoError(t, err)
		assert.Equal(t, uint64(5), latest.Height)
		assert.Len(t, latest.Wallets, 2)

		_, err = snapshots.ByHeight(3)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}
