// Package chain implements the blockchain itself: an append-only sequence
// of finalized blocks, fed by validated transactions and extended through
// the consensus engine.
package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/CreoDAMO/quantumfuse-sdk/consensus"
	"github.com/CreoDAMO/quantumfuse-sdk/crypto/pqc"
	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
	"github.com/CreoDAMO/quantumfuse-sdk/module"
	"github.com/CreoDAMO/quantumfuse-sdk/module/scoring"
	"github.com/CreoDAMO/quantumfuse-sdk/sharding"
	"github.com/CreoDAMO/quantumfuse-sdk/state"
	"github.com/CreoDAMO/quantumfuse-sdk/storage"
)

// suspicionThreshold is the transaction score above which submissions are
// rejected.
const suspicionThreshold = 0.7

// blockTimeWindow is the number of recent block intervals averaged into the
// observed block time.
const blockTimeWindow = 16

// maxBlockTransactions caps how many pending transactions are pulled into
// one block.
const maxBlockTransactions = 256

// Blockchain is the top-level chain component. All head mutations run under
// the exclusive lock; block application is journaled through the commit log
// so a crash mid-application is recovered on startup.
type Blockchain struct {
	mu      sync.RWMutex
	log     zerolog.Logger
	metrics module.ChainMetrics
	cfg     consensus.Config

	engine *consensus.Engine
	state  *state.Manager
	shards *sharding.Manager
	scorer scoring.TransactionScorer

	blocks     storage.Blocks
	chainState storage.ChainState
	commits    storage.CommitLog
	snapshots  storage.Snapshots

	head      *qf.Header
	headID    qf.Identifier
	intervals []time.Duration

	// operator-fed condition readings, updated independently of the chain lock
	energyEfficiency *atomic.Float64
	securityLevel    *atomic.Float64
}

// New creates the blockchain component over its collaborators. Bootstrap or
// Recover must be called before the chain accepts blocks.
func New(
	log zerolog.Logger,
	metrics module.ChainMetrics,
	cfg consensus.Config,
	engine *consensus.Engine,
	stateManager *state.Manager,
	shards *sharding.Manager,
	scorer scoring.TransactionScorer,
	blocks storage.Blocks,
	chainState storage.ChainState,
	commits storage.CommitLog,
	snapshots storage.Snapshots,
) *Blockchain {
	return &Blockchain{
		log:              log.With().Str("component", "blockchain").Logger(),
		metrics:          metrics,
		cfg:              cfg,
		engine:           engine,
		state:            stateManager,
		shards:           shards,
		scorer:           scorer,
		blocks:           blocks,
		chainState:       chainState,
		commits:          commits,
		snapshots:        snapshots,
		energyEfficiency: atomic.NewFloat64(1),
		securityLevel:    atomic.NewFloat64(1),
	}
}

// Bootstrap initializes an empty chain with the genesis block and loads the
// head. It is idempotent.
func (b *Blockchain) Bootstrap(genesis *qf.Block) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.chainState.Bootstrap(genesis)
	if err != nil {
		return fmt.Errorf("could not bootstrap chain state: %w", err)
	}
	return b.loadHead()
}

// Recover rebuilds the in-memory state on startup, then finishes or rolls
// back a block application that was interrupted by a crash, and finally
// loads the head. An interrupted block that can no longer be applied is
// discarded rather than blocking startup.
func (b *Blockchain) Recover() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.rebuildState()
	if err != nil {
		return fmt.Errorf("could not rebuild state: %w", err)
	}

	blockID, height, err := b.commits.Pending()
	if errors.Is(err, storage.ErrNotFound) {
		return b.loadHead()
	}
	if err != nil {
		return fmt.Errorf("could not check commit log: %w", err)
	}

	finalized, _, err := b.chainState.Finalized()
	if err != nil {
		return fmt.Errorf("could not get finalized boundary: %w", err)
	}

	// the block was persisted but the boundary was not advanced; replay
	// the application, or discard the journal record if the block is
	// missing or no longer applies
	if height == finalized+1 {
		block, err := b.blocks.ByID(blockID)
		if err == nil {
			b.log.Warn().Uint64("height", height).Msg("replaying interrupted block application")
			err = b.state.ProcessBlock(block)
			if err == nil {
				err = b.chainState.Finalize(blockID, height)
				if err != nil {
					return fmt.Errorf("could not finalize replayed block: %w", err)
				}
			} else {
				b.log.Warn().Err(err).Uint64("height", height).
					Msg("discarding interrupted block application")
			}
		}
	}

	err = b.commits.Clear()
	if err != nil {
		return fmt.Errorf("could not clear commit log: %w", err)
	}
	return b.loadHead()
}

// rebuildState reconstructs the wallet state after a restart: the latest
// persisted snapshot first, then every finalized block above the snapshot
// height. With neither, the state stays empty. The caller holds the lock.
func (b *Blockchain) rebuildState() error {

	snapshot, err := b.snapshots.Latest()
	if err == nil {
		err = b.state.Restore(snapshot)
		if err != nil {
			return fmt.Errorf("could not restore snapshot: %w", err)
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("could not load latest snapshot: %w", err)
	}

	finalized, _, err := b.chainState.Finalized()
	if err != nil {
		return fmt.Errorf("could not get finalized boundary: %w", err)
	}
	for height := b.state.Height() + 1; height <= finalized; height++ {
		block, err := b.blocks.ByHeight(height)
		if err != nil {
			return fmt.Errorf("could not get finalized block at height %d: %w", height, err)
		}
		err = b.state.ProcessBlock(block)
		if err != nil {
			return fmt.Errorf("could not replay finalized block at height %d: %w", height, err)
		}
	}
	return nil
}

// loadHead reads the finalized boundary into memory. The caller holds the
// lock.
func (b *Blockchain) loadHead() error {
	height, blockID, err := b.chainState.Finalized()
	if err != nil {
		return fmt.Errorf("could not get finalized boundary: %w", err)
	}
	block, err := b.blocks.ByID(blockID)
	if err != nil {
		return fmt.Errorf("could not get head block: %w", err)
	}
	b.head = block.Header
	b.headID = blockID
	b.metrics.BlockHeight(height)
	return nil
}

// Head returns the current head header and its ID.
func (b *Blockchain) Head() (*qf.Header, qf.Identifier) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.head, b.headID
}

// ProcessTransaction validates a submitted transaction against the current
// state, scores it, routes it to its shard and admits it to the pending
// pool.
func (b *Blockchain) ProcessTransaction(tx *qf.Transaction) error {

	err := tx.ValidateBasics()
	if err != nil {
		b.metrics.TransactionRejected("malformed")
		return fmt.Errorf("invalid transaction: %w", err)
	}

	publicKey, err := b.state.PublicKey(tx.Sender)
	if err != nil {
		b.metrics.TransactionRejected("unknown_sender")
		return fmt.Errorf("could not resolve sender key: %w", err)
	}
	err = pqc.Verify(publicKey, tx.SigningMessage(), tx.Signature)
	if err != nil {
		b.metrics.TransactionRejected("invalid_signature")
		return fmt.Errorf("invalid transaction signature: %w", err)
	}

	wallet, err := b.state.Wallet(tx.Sender)
	if err != nil {
		b.metrics.TransactionRejected("unknown_sender")
		return err
	}
	if wallet.Balance < tx.TotalCost() {
		b.metrics.TransactionRejected("insufficient_funds")
		return state.InsufficientFundsError{
			Address:   tx.Sender,
			Balance:   wallet.Balance,
			Requested: tx.TotalCost(),
		}
	}

	score := b.scorer.Score(tx)
	if score > suspicionThreshold {
		b.metrics.TransactionRejected("suspicious")
		return SuspiciousTransactionError{TxID: tx.ID(), Score: score}
	}

	shardID, err := b.shards.Route(tx)
	if err != nil {
		b.metrics.TransactionRejected("shard_overloaded")
		return err
	}

	err = b.state.AddPendingTransaction(tx)
	if err != nil {
		b.shards.Remove(tx)
		b.metrics.TransactionRejected("mempool")
		return err
	}

	b.log.Debug().
		Hex("tx_id", tx.ID().Bytes()).
		Uint32("shard", shardID).
		Msg("transaction admitted")
	b.metrics.TransactionProcessed()
	return nil
}

// AddBlock validates the block against the chain and appends it. The block
// is journaled before state application, so a crash between persisting and
// finalizing is recovered by Recover.
func (b *Blockchain) AddBlock(block *qf.Block) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if block.Header == nil {
		return fmt.Errorf("invalid block: %w", qf.ErrMissingHeader)
	}

	blockID := block.ID()
	if blockID == b.headID {
		return ErrDuplicateBlock
	}
	if block.Header.ParentID != b.headID {
		return UnknownParentError{ParentID: block.Header.ParentID, HeadID: b.headID}
	}
	if block.Header.Height != b.head.Height+1 {
		return InvalidHeightError{Height: block.Header.Height, HeadHeight: b.head.Height}
	}

	err := b.engine.ValidateBlock(block)
	if err != nil {
		return fmt.Errorf("block rejected: %w", err)
	}

	err = b.commits.Begin(blockID, block.Header.Height)
	if err != nil {
		return fmt.Errorf("could not journal block application: %w", err)
	}
	err = b.blocks.Store(block)
	if err != nil {
		return fmt.Errorf("could not store block: %w", err)
	}

	err = b.state.ProcessBlock(block)
	if err != nil {
		return fmt.Errorf("could not apply block to state: %w", err)
	}
	for _, tx := range block.Transactions {
		b.shards.Remove(tx)
	}

	_, err = b.engine.DistributeRewards(b.state)
	if err != nil {
		return fmt.Errorf("could not distribute rewards: %w", err)
	}

	err = b.chainState.Finalize(blockID, block.Header.Height)
	if err != nil {
		return fmt.Errorf("could not finalize block: %w", err)
	}
	err = b.commits.Clear()
	if err != nil {
		return fmt.Errorf("could not clear commit log: %w", err)
	}

	b.observeInterval(block.Header)
	blockTime := time.Duration(0)
	if len(b.intervals) > 0 {
		blockTime = b.intervals[len(b.intervals)-1]
	}

	b.head = block.Header
	b.headID = blockID
	b.metrics.BlockAppended(len(block.Transactions), block.GasUsed(), blockTime)
	b.metrics.BlockHeight(block.Header.Height)

	b.log.Info().
		Uint64("height", block.Header.Height).
		Hex("block_id", blockID.Bytes()).
		Str("mechanism", block.ConsensusData.Mechanism.String()).
		Int("transactions", len(block.Transactions)).
		Msg("block finalized")
	return nil
}

// MineBlock produces a new block on the head from the pending pool and
// appends it to the chain. Co-signers endorse the mined block so that
// signature-carrying blocks reach the validator quorum.
func (b *Blockchain) MineBlock(ctx context.Context, proposer *consensus.Proposer, cosigners ...*consensus.Proposer) (*qf.Block, error) {

	txs := b.state.PendingTransactions(maxBlockTransactions)
	if len(txs) == 0 {
		return nil, qf.ErrEmptyTransactions
	}

	head, _ := b.Head()
	block, err := b.engine.MineBlock(ctx, head, txs, b.state.StateRoot(), proposer)
	if err != nil {
		return nil, fmt.Errorf("could not mine block: %w", err)
	}

	if len(block.Signatures) > 0 {
		for _, cosigner := range cosigners {
			if cosigner.Identity.NodeID == proposer.Identity.NodeID {
				continue
			}
			err = b.engine.AppendSignature(block, cosigner.Identity.NodeID, cosigner.Signer)
			if err != nil {
				return nil, fmt.Errorf("could not co-sign block: %w", err)
			}
		}
	}

	err = b.AddBlock(block)
	if err != nil {
		return nil, fmt.Errorf("could not append mined block: %w", err)
	}
	return block, nil
}

// Conditions derives the network conditions that drive hybrid consensus
// adjustment from the current state and the observed block times.
func (b *Blockchain) Conditions() consensus.Conditions {
	b.mu.RLock()
	defer b.mu.RUnlock()

	network := b.state.Network()

	load := float64(network.MempoolSize) / float64(maxBlockTransactions)
	if load > 1 {
		load = 1
	}

	security := b.securityLevel.Load()
	if network.TotalSupply > 0 {
		staked := float64(network.TotalStaked) / float64(network.TotalSupply)
		if staked > 1 {
			staked = 1
		}
		// the worse of the stake ratio and the operator reading wins
		if staked < security {
			security = staked
		}
	}

	return consensus.Conditions{
		NetworkLoad:      load,
		SecurityLevel:    security,
		EnergyEfficiency: b.energyEfficiency.Load(),
		AvgBlockTime:     b.avgInterval(),
	}
}

// SetOperatorConditions feeds externally observed security and energy
// readings into the condition computation.
func (b *Blockchain) SetOperatorConditions(securityLevel, energyEfficiency float64) {
	b.securityLevel.Store(clamp01(securityLevel))
	b.energyEfficiency.Store(clamp01(energyEfficiency))
}

// CurrentMechanism returns the mechanism currently selected by the
// consensus engine.
func (b *Blockchain) CurrentMechanism() qf.Mechanism {
	return b.engine.CurrentMechanism()
}

// Validators returns the validator committee of the consensus engine.
func (b *Blockchain) Validators() qf.IdentityList {
	return b.engine.Validators()
}

// AdjustConsensus runs one consensus adjustment tick against the derived
// conditions and returns the selected mechanism.
func (b *Blockchain) AdjustConsensus() qf.Mechanism {
	return b.engine.AdjustParameters(b.Conditions())
}

// SnapshotState persists a snapshot of the current wallet state.
func (b *Blockchain) SnapshotState() (*state.Snapshot, error) {
	snapshot := b.state.Snapshot()
	err := b.snapshots.Store(snapshot)
	if err != nil {
		return nil, fmt.Errorf("could not store snapshot: %w", err)
	}
	return snapshot, nil
}

// RestoreState restores the wallet state from the latest persisted
// snapshot.
func (b *Blockchain) RestoreState() error {
	snapshot, err := b.snapshots.Latest()
	if err != nil {
		return fmt.Errorf("could not load snapshot: %w", err)
	}
	err = b.state.Restore(snapshot)
	if err != nil {
		return fmt.Errorf("could not restore state: %w", err)
	}
	return nil
}

// observeInterval records the interval between the head and the new block.
// The caller holds the lock.
func (b *Blockchain) observeInterval(header *qf.Header) {
	if b.head == nil {
		return
	}
	interval := header.Timestamp.Sub(b.head.Timestamp)
	if interval <= 0 {
		return
	}
	b.intervals = append(b.intervals, interval)
	if len(b.intervals) > blockTimeWindow {
		b.intervals = b.intervals[1:]
	}
}

// avgInterval returns the rolling average block time. The caller holds at
// least the read lock.
func (b *Blockchain) avgInterval() time.Duration {
	if len(b.intervals) == 0 {
		return b.cfg.BlockTime
	}
	var total time.Duration
	for _, interval := range b.intervals {
		total += interval
	}
	return total / time.Duration(len(b.intervals))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
