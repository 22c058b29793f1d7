package module

import (
	"time"
)

// ChainMetrics encapsulates the metrics collected by the blockchain
// orchestrator.
type ChainMetrics interface {
	// BlockAppended is called once a block has been durably appended to the
	// canonical chain.
	BlockAppended(txCount int, gasUsed uint64, blockTime time.Duration)

	// BlockHeight reports the current height of the canonical chain.
	BlockHeight(height uint64)

	// TransactionProcessed is called for every transaction accepted into a
	// shard buffer.
	TransactionProcessed()

	// TransactionRejected is called for every rejected transaction, labelled
	// with the rejection reason.
	TransactionRejected(reason string)
}

// ConsensusMetrics encapsulates the metrics collected by the consensus
// engine.
type ConsensusMetrics interface {
	// BlockValidated is called for every block validation attempt.
	BlockValidated(valid bool)

	// BlockMined is called for every successfully mined block, labelled with
	// the mechanism that produced it.
	BlockMined(mechanism string)

	// MechanismSwitched is called when the hybrid controller switches the
	// active mechanism.
	MechanismSwitched(mechanism string)

	// RewardsDistributed reports the total reward paid out in one
	// distribution round.
	RewardsDistributed(total uint64)
}

// StateMetrics encapsulates the metrics collected by the state manager.
type StateMetrics interface {
	// StateRootRecomputed is called every time the global state root is
	// recomputed.
	StateRootRecomputed(duration time.Duration)

	// WalletCount reports the number of tracked wallets.
	WalletCount(count uint)

	// TotalStaked reports the total staked amount across all wallets.
	TotalStaked(total uint64)
}

// MempoolMetrics reports size changes of memory pools.
type MempoolMetrics interface {
	// MempoolEntries reports the size of the named memory pool.
	MempoolEntries(resource string, entries uint)
}

// ShardMetrics encapsulates the metrics collected by the shard manager.
type ShardMetrics interface {
	// ShardLoad reports the load factor of one shard.
	ShardLoad(shardID uint64, loadFactor float64)

	// CrossShardLink is called for every cross-shard link recorded.
	CrossShardLink()

	// ShardsRebalanced is called when a reallocation pass completes, with the
	// number of transactions moved.
	ShardsRebalanced(moved int)
}
