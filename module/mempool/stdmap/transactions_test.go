package stdmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CreoDAMO/quantumfuse-sdk/module/mempool"
	"github.com/CreoDAMO/quantumfuse-sdk/module/mempool/stdmap"
	"github.com/CreoDAMO/quantumfuse-sdk/utils/unittest"
)

func TestTransactionsPool(t *testing.T) {
	pool := stdmap.NewTransactions(2)
	key := unittest.KeyPairFixture(t)

	tx1 := unittest.TransactionFixture(t, "alice", key, unittest.WithNonce(1))
	tx2 := unittest.TransactionFixture(t, "alice", key, unittest.WithNonce(2))
	tx3 := unittest.TransactionFixture(t, "alice", key, unittest.WithNonce(3))

	require.NoError(t, pool.Add(tx1))
	assert.True(t, pool.Has(tx1.ID()))
	assert.Equal(t, uint(1), pool.Size())

	err := pool.Add(tx1)
	assert.ErrorIs(t, err, mempool.ErrAlreadyExists)

	require.NoError(t, pool.Add(tx2))
	err = pool.Add(tx3)
	assert.ErrorIs(t, err, mempool.ErrFull)

	byID, err := pool.ByID(tx1.ID())
	require.NoError(t, err)
	assert.Equal(t, tx1.ID(), byID.ID())

	assert.Len(t, pool.All(), 2)

	assert.True(t, pool.Rem(tx1.ID()))
	assert.False(t, pool.Rem(tx1.ID()))
	assert.False(t, pool.Has(tx1.ID()))

	_, err = pool.ByID(tx1.ID())
	assert.ErrorIs(t, err, mempool.ErrNotFound)
}
