package badger

import (
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
	"github.com/CreoDAMO/quantumfuse-sdk/storage/badger/operation"
)

// ChainState implements storage.ChainState.
type ChainState struct {
	db *badger.DB
}

func NewChainState(db *badger.DB) *ChainState {
	return &ChainState{db: db}
}

func (c *ChainState) Bootstrap(genesis *qf.Block) error {
	return c.db.Update(func(tx *badger.Txn) error {

		var bootstrapped bool
		err := operation.ExistsBoundary(&bootstrapped)(tx)
		if err != nil {
			return fmt.Errorf("could not check boundary: %w", err)
		}
		if bootstrapped {
			return nil
		}

		genesisID := genesis.ID()
		err = operation.InsertBlock(genesisID, genesis)(tx)
		if err != nil {
			return fmt.Errorf("could not insert genesis block: %w", err)
		}
		err = operation.IndexBlockHeight(genesis.Header.Height, genesisID)(tx)
		if err != nil {
			return fmt.Errorf("could not index genesis height: %w", err)
		}
		err = operation.InsertBoundary(operation.Boundary{
			Height:  genesis.Header.Height,
			BlockID: genesisID,
		})(tx)
		if err != nil {
			return fmt.Errorf("could not insert boundary: %w", err)
		}
		return nil
	})
}

func (c *ChainState) Finalized() (uint64, qf.Identifier, error) {
	var boundary operation.Boundary
	err := c.db.View(operation.RetrieveBoundary(&boundary))
	if err != nil {
		return 0, qf.ZeroID, fmt.Errorf("could not retrieve boundary: %w", err)
	}
	return boundary.Height, boundary.BlockID, nil
}

func (c *ChainState) Finalize(blockID qf.Identifier, height uint64) error {
	return c.db.Update(operation.UpdateBoundary(operation.Boundary{
		Height:  height,
		BlockID: blockID,
	}))
}
