// Package storage defines the persistence interfaces of the node. All
// implementations translate their backend errors into the sentinel errors of
// this package.
package storage

import (
	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
	"github.com/CreoDAMO/quantumfuse-sdk/state"
)

// Blocks persists finalized blocks, indexed by ID and by height.
type Blocks interface {

	// Store stores the block. It fails with ErrAlreadyExists when a block
	// is already stored at the same height.
	Store(block *qf.Block) error

	// ByID retrieves the block with the given ID. It fails with
	// ErrNotFound when no such block exists.
	ByID(blockID qf.Identifier) (*qf.Block, error)

	// ByHeight retrieves the block finalized at the given height. It
	// fails with ErrNotFound when the height is unfinalized.
	ByHeight(height uint64) (*qf.Block, error)
}

// ChainState persists the latest finalized chain boundary.
type ChainState interface {

	// Bootstrap initializes the boundary with the genesis block. It is a
	// no-op when a boundary already exists.
	Bootstrap(genesis *qf.Block) error

	// Finalized returns the latest finalized height and block ID.
	Finalized() (uint64, qf.Identifier, error)

	// Finalize advances the boundary to the given block.
	Finalize(blockID qf.Identifier, height uint64) error
}

// CommitLog records a block application that is in flight, so a crash
// between persisting a block and advancing the finalized boundary can be
// recovered on startup.
type CommitLog interface {

	// Begin records the intent to apply the block.
	Begin(blockID qf.Identifier, height uint64) error

	// Pending returns the in-flight record, or ErrNotFound if none.
	Pending() (qf.Identifier, uint64, error)

	// Clear removes the in-flight record.
	Clear() error
}

// Snapshots persists state snapshots by height.
type Snapshots interface {

	// Store stores the snapshot under its height.
	Store(snapshot *state.Snapshot) error

	// ByHeight retrieves the snapshot taken at the given height. It
	// fails with ErrNotFound when no snapshot exists for the height.
	ByHeight(height uint64) (*state.Snapshot, error)

	// Latest retrieves the snapshot with the greatest height. It fails
	// with ErrNotFound when no snapshot was ever stored.
	Latest() (*state.Snapshot, error)
}
