package sharding_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
	"github.com/CreoDAMO/quantumfuse-sdk/module/metrics"
	"github.com/CreoDAMO/quantumfuse-sdk/sharding"
	"github.com/CreoDAMO/quantumfuse-sdk/utils/unittest"
)

func testManager(t *testing.T, count uint32, capacity uint) *sharding.Manager {
	manager, err := sharding.NewManager(
		unittest.Logger(),
		metrics.NewNoopCollector(),
		count,
		capacity,
		unittest.KeyPairFixture(t),
	)
	require.NoError(t, err)
	return manager
}

func TestNewManager(t *testing.T) {
	manager := testManager(t, 4, 10)
	assert.Equal(t, uint32(4), manager.Count())

	_, err := sharding.NewManager(unittest.Logger(), metrics.NewNoopCollector(), 0, 10, unittest.KeyPairFixture(t))
	assert.ErrorIs(t, err, sharding.ErrNoShards)
}

func TestAssignValidators(t *testing.T) {
	manager := testManager(t, 3, 10)
	validators, _ := unittest.IdentityListFixture(t, 7)

	manager.AssignValidators(validators)

	total := 0
	for id := uint32(0); id < manager.Count(); id++ {
		shard, err := manager.Shard(id)
		require.NoError(t, err)
		subset := shard.Validators()
		assert.NotEmpty(t, subset)
		total += len(subset)

		_, ok := shard.Parent()
		assert.False(t, ok, "genesis shards have no parent")
	}
	assert.Equal(t, len(validators), total)
}

func TestAssignShardDeterministic(t *testing.T) {
	manager := testManager(t, 4, 10)

	first := manager.AssignShard("alice")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, manager.AssignShard("alice"))
	}
	assert.Less(t, first, uint32(4))

	other := testManager(t, 4, 10)
	assert.Equal(t, first, other.AssignShard("alice"), "assignment should not depend on manager instance")
}

func TestRoute(t *testing.T) {
	manager := testManager(t, 4, 10)
	key := unittest.KeyPairFixture(t)

	tx := unittest.TransactionFixture(t, "alice", key)
	shardID, err := manager.Route(tx)
	require.NoError(t, err)
	assert.Equal(t, manager.AssignShard("alice"), shardID)

	shard, err := manager.Shard(shardID)
	require.NoError(t, err)
	assert.True(t, shard.Has(tx.ID()))
	assert.NotEqual(t, qf.ZeroID, shard.Root())

	manager.Remove(tx)
	assert.False(t, shard.Has(tx.ID()))
}

func TestShardOverload(t *testing.T) {
	manager := testManager(t, 1, 2)
	key := unittest.KeyPairFixture(t)

	_, err := manager.Route(unittest.TransactionFixture(t, "alice", key, unittest.WithNonce(1)))
	require.NoError(t, err)
	_, err = manager.Route(unittest.TransactionFixture(t, "alice", key, unittest.WithNonce(2)))
	require.NoError(t, err)

	_, err = manager.Route(unittest.TransactionFixture(t, "alice", key, unittest.WithNonce(3)))
	assert.True(t, sharding.IsShardOverloadedError(err))
}

func TestOptimizeAllocation(t *testing.T) {
	manager := testManager(t, 2, 10)
	key := unittest.KeyPairFixture(t)

	overloaded, err := manager.Shard(0)
	require.NoError(t, err)
	for i := uint64(0); i < 9; i++ {
		err := overloaded.Add(unittest.TransactionFixture(t, "alice", key, unittest.WithNonce(i)))
		require.NoError(t, err)
	}

	moved := manager.OptimizeAllocation()
	assert.Greater(t, moved, uint(0))
	assert.LessOrEqual(t, overloaded.LoadFactor(), 0.8)

	other, err := manager.Shard(1)
	require.NoError(t, err)
	assert.Equal(t, uint(9), overloaded.Size()+other.Size(), "rebalancing must not lose transactions")
}

func TestCrossLink(t *testing.T) {
	manager := testManager(t, 4, 10)
	key := unittest.KeyPairFixture(t)
	tx := unittest.TransactionFixture(t, "alice", key)

	source := manager.AssignShard("alice")
	target := (source + 1) % 4

	link, err := manager.CreateCrossLink(tx, target)
	require.NoError(t, err)
	assert.Equal(t, source, link.SourceShard)
	assert.Equal(t, target, link.TargetShard)
	require.NoError(t, manager.VerifyCrossLink(link))
	assert.Len(t, manager.CrossLinks(), 1)

	t.Run("same shard rejected", func(t *testing.T) {
		_, err := manager.CreateCrossLink(tx, source)
		assert.True(t, sharding.IsInvalidCrossLinkError(err))
	})

	t.Run("out of range target rejected", func(t *testing.T) {
		_, err := manager.CreateCrossLink(tx, 99)
		assert.ErrorIs(t, err, sharding.ErrUnknownShard)
	})

	t.Run("tampered attestation rejected", func(t *testing.T) {
		tampered := *link
		tampered.TargetShard = (target + 1) % 4
		if tampered.TargetShard == source {
			tampered.TargetShard = (tampered.TargetShard + 1) % 4
		}
		err := manager.VerifyCrossLink(&tampered)
		assert.True(t, sharding.IsInvalidCrossLinkError(err))
	})
}
