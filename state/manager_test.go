package state_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
	"github.com/CreoDAMO/quantumfuse-sdk/module/mempool/stdmap"
	"github.com/CreoDAMO/quantumfuse-sdk/module/metrics"
	"github.com/CreoDAMO/quantumfuse-sdk/state"
	"github.com/CreoDAMO/quantumfuse-sdk/utils/unittest"
)

func testState(t *testing.T) *state.Manager {
	return state.NewManager(unittest.Logger(), metrics.NewNoopCollector(), stdmap.NewTransactions(1000))
}

func TestRegisterWallet(t *testing.T) {
	manager := testState(t)
	key := unittest.KeyPairFixture(t)

	require.NoError(t, manager.RegisterWallet("alice", key.PublicKey(), 1000))

	wallet, err := manager.Wallet("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), wallet.Balance)

	publicKey, err := manager.PublicKey("alice")
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), publicKey)

	err = manager.RegisterWallet("alice", key.PublicKey(), 0)
	assert.ErrorIs(t, err, state.ErrWalletAlreadyExists)

	_, err = manager.Wallet("bob")
	assert.ErrorIs(t, err, state.ErrWalletNotFound)
}

func TestBalanceUpdates(t *testing.T) {
	manager := testState(t)
	require.NoError(t, manager.RegisterWallet("alice", nil, 1000))

	require.NoError(t, manager.Credit("alice", 500))
	require.NoError(t, manager.Debit("alice", 200))

	wallet, err := manager.Wallet("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(1300), wallet.Balance)

	err = manager.Debit("alice", 10_000)
	assert.True(t, state.IsInsufficientFundsError(err))

	err = manager.Debit("nobody", 1)
	assert.ErrorIs(t, err, state.ErrWalletNotFound)

	// crediting an unknown address creates the wallet, so consensus
	// rewards can reach fresh validator addresses
	require.NoError(t, manager.Credit("validator-1", 50))
	wallet, err = manager.Wallet("validator-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(50), wallet.Balance)
}

func TestStaking(t *testing.T) {
	manager := testState(t)
	require.NoError(t, manager.RegisterWallet("alice", nil, 1000))

	require.NoError(t, manager.Stake("alice", 600))
	wallet, _ := manager.Wallet("alice")
	assert.Equal(t, uint64(400), wallet.Balance)
	assert.Equal(t, uint64(600), wallet.Staked)
	assert.Equal(t, uint64(600), manager.Network().TotalStaked)

	err := manager.Stake("alice", 500)
	assert.True(t, state.IsInsufficientFundsError(err))

	err = manager.Unstake("alice", 700)
	assert.True(t, state.IsInsufficientStakeError(err))

	require.NoError(t, manager.Unstake("alice", 600))
	wallet, _ = manager.Wallet("alice")
	assert.Equal(t, uint64(1000), wallet.Balance)
	assert.Equal(t, uint64(0), wallet.Staked)
}

func TestStateRootChanges(t *testing.T) {
	manager := testState(t)
	empty := manager.StateRoot()
	assert.Equal(t, qf.ZeroID, empty)

	require.NoError(t, manager.RegisterWallet("alice", nil, 1000))
	afterRegister := manager.StateRoot()
	assert.NotEqual(t, empty, afterRegister)

	require.NoError(t, manager.Credit("alice", 1))
	assert.NotEqual(t, afterRegister, manager.StateRoot())
}

func TestEvents(t *testing.T) {
	manager := testState(t)
	events := manager.Subscribe(16)

	require.NoError(t, manager.RegisterWallet("alice", nil, 1000))
	require.NoError(t, manager.Stake("alice", 100))

	event := <-events
	assert.Equal(t, state.EventWalletRegistered, event.Type)
	assert.Equal(t, "alice", event.Address)

	event = <-events
	assert.Equal(t, state.EventStakeUpdated, event.Type)
	assert.Equal(t, uint64(100), event.Amount)
}

func TestEventsSlowSubscriber(t *testing.T) {
	manager := testState(t)
	_ = manager.Subscribe(0)

	// a subscriber that never reads must not block state transitions
	require.NoError(t, manager.RegisterWallet("alice", nil, 1000))
	require.NoError(t, manager.Credit("alice", 1))
}

func TestProcessBlock(t *testing.T) {
	manager := testState(t)
	aliceKey := unittest.KeyPairFixture(t)
	require.NoError(t, manager.RegisterWallet("alice", aliceKey.PublicKey(), 1000))
	require.NoError(t, manager.RegisterWallet("bob", nil, 0))

	validators, keys := unittest.IdentityListFixture(t, 4)
	tx := unittest.TransactionFixture(t, "alice", aliceKey,
		unittest.WithRecipient("bob"),
		unittest.WithAmount(300),
		unittest.WithFee(10),
	)
	require.NoError(t, manager.AddPendingTransaction(tx))
	assert.Equal(t, uint64(1), manager.Network().MempoolSize)

	block := unittest.BlockFixture(t, validators, keys)
	block.Transactions = []*qf.Transaction{tx}

	before := manager.StateRoot()
	require.NoError(t, manager.ProcessBlock(block))

	alice, _ := manager.Wallet("alice")
	bob, _ := manager.Wallet("bob")
	assert.Equal(t, uint64(1000-300-10), alice.Balance)
	assert.Equal(t, uint64(300), bob.Balance)
	assert.Equal(t, uint64(0), manager.Network().MempoolSize, "applied transactions leave the pool")
	assert.NotEqual(t, before, manager.StateRoot())
	assert.Equal(t, block.Header.Height, manager.Height())
}

func TestProcessBlockAtomicity(t *testing.T) {
	manager := testState(t)
	aliceKey := unittest.KeyPairFixture(t)
	require.NoError(t, manager.RegisterWallet("alice", aliceKey.PublicKey(), 100))

	validators, keys := unittest.IdentityListFixture(t, 4)
	ok := unittest.TransactionFixture(t, "alice", aliceKey, unittest.WithAmount(50), unittest.WithFee(0))
	overdraft := unittest.TransactionFixture(t, "alice", aliceKey,
		unittest.WithAmount(10_000), unittest.WithFee(0), unittest.WithNonce(1))

	block := unittest.BlockFixture(t, validators, keys)
	block.Transactions = []*qf.Transaction{ok, overdraft}

	before := manager.StateRoot()
	err := manager.ProcessBlock(block)
	assert.True(t, state.IsInsufficientFundsError(err))

	// nothing may be applied when any transaction in the block fails
	alice, _ := manager.Wallet("alice")
	assert.Equal(t, uint64(100), alice.Balance)
	assert.Equal(t, before, manager.StateRoot())
}

func TestSnapshotRestore(t *testing.T) {
	manager := testState(t)
	key := unittest.KeyPairFixture(t)
	require.NoError(t, manager.RegisterWallet("alice", key.PublicKey(), 1000))
	require.NoError(t, manager.RegisterWallet("bob", nil, 500))
	require.NoError(t, manager.Stake("alice", 100))

	pending := unittest.TransactionFixture(t, "alice", key)
	require.NoError(t, manager.AddPendingTransaction(pending))

	snapshot := manager.Snapshot()
	root := manager.StateRoot()

	require.NoError(t, manager.Credit("alice", 9999))
	require.NoError(t, manager.RegisterWallet("carol", nil, 1))
	require.NoError(t, manager.AddPendingTransaction(unittest.TransactionFixture(t, "bob", key)))
	assert.NotEqual(t, root, manager.StateRoot())

	require.NoError(t, manager.Restore(snapshot))
	assert.Equal(t, root, manager.StateRoot())

	restored := manager.PendingTransactions(10)
	require.Len(t, restored, 1)
	assert.Equal(t, pending.ID(), restored[0].ID())

	alice, err := manager.Wallet("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(900), alice.Balance)
	assert.Equal(t, uint64(100), alice.Staked)

	_, err = manager.Wallet("carol")
	assert.ErrorIs(t, err, state.ErrWalletNotFound)
}

func TestRestorePendingOverCapacity(t *testing.T) {
	source := testState(t)
	key := unittest.KeyPairFixture(t)
	require.NoError(t, source.RegisterWallet("alice", key.PublicKey(), 1000))
	require.NoError(t, source.AddPendingTransaction(unittest.TransactionFixture(t, "alice", key)))
	require.NoError(t, source.AddPendingTransaction(unittest.TransactionFixture(t, "alice", key, unittest.WithNonce(1))))
	snapshot := source.Snapshot()

	// a manager whose pool cannot hold the snapshot's pending set must
	// reject the restore without mutating anything
	manager := state.NewManager(unittest.Logger(), metrics.NewNoopCollector(), stdmap.NewTransactions(1))
	require.NoError(t, manager.RegisterWallet("carol", nil, 50))
	own := unittest.TransactionFixture(t, "carol", key)
	require.NoError(t, manager.AddPendingTransaction(own))
	root := manager.StateRoot()

	err := manager.Restore(snapshot)
	assert.True(t, state.IsInvalidSnapshotError(err))

	carol, err := manager.Wallet("carol")
	require.NoError(t, err)
	assert.Equal(t, uint64(50), carol.Balance)
	_, err = manager.Wallet("alice")
	assert.ErrorIs(t, err, state.ErrWalletNotFound)
	assert.Equal(t, root, manager.StateRoot())

	kept := manager.PendingTransactions(10)
	require.Len(t, kept, 1)
	assert.Equal(t, own.ID(), kept[0].ID())
}

func TestRestoreTamperedSnapshot(t *testing.T) {
	manager := testState(t)
	require.NoError(t, manager.RegisterWallet("alice", nil, 1000))

	snapshot := manager.Snapshot()
	snapshot.Wallets[0].Balance = 1_000_000

	err := manager.Restore(snapshot)
	assert.True(t, state.IsInvalidSnapshotError(err))

	// the failed restore must leave the state untouched
	alice, _ := manager.Wallet("alice")
	assert.Equal(t, uint64(1000), alice.Balance)
}
