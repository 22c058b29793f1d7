// Package badger implements the storage interfaces on a badger key-value
// database.
package badger

import (
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
	"github.com/CreoDAMO/quantumfuse-sdk/storage/badger/operation"
)

// Blocks implements storage.Blocks.
type Blocks struct {
	db *badger.DB
}

func NewBlocks(db *badger.DB) *Blocks {
	return &Blocks{db: db}
}

func (b *Blocks) Store(block *qf.Block) error {
	blockID := block.ID()
	return b.db.Update(func(tx *badger.Txn) error {
		err := operation.InsertBlock(blockID, block)(tx)
		if err != nil {
			return fmt.Errorf("could not insert block: %w", err)
		}
		err = operation.IndexBlockHeight(block.Header.Height, blockID)(tx)
		if err != nil {
			return fmt.Errorf("could not index block height: %w", err)
		}
		return nil
	})
}

func (b *Blocks) ByID(blockID qf.Identifier) (*qf.Block, error) {
	var block qf.Block
	err := b.db.View(operation.RetrieveBlock(blockID, &block))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve block: %w", err)
	}
	return &block, nil
}

func (b *Blocks) ByHeight(height uint64) (*qf.Block, error) {
	var block qf.Block
	err := b.db.View(func(tx *badger.Txn) error {
		var blockID qf.Identifier
		err := operation.LookupBlockHeight(height, &blockID)(tx)
		if err != nil {
			return fmt.Errorf("could not look up height: %w", err)
		}
		err = operation.RetrieveBlock(blockID, &block)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve block: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &block, nil
}
