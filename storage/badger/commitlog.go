package badger

import (
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
	"github.com/CreoDAMO/quantumfuse-sdk/storage/badger/operation"
)

// CommitLog implements storage.CommitLog.
type CommitLog struct {
	db *badger.DB
}

func NewCommitLog(db *badger.DB) *CommitLog {
	return &CommitLog{db: db}
}

func (c *CommitLog) Begin(blockID qf.Identifier, height uint64) error {
	return c.db.Update(operation.InsertCommit(operation.Commit{
		Height:  height,
		BlockID: blockID,
	}))
}

func (c *CommitLog) Pending() (qf.Identifier, uint64, error) {
	var commit operation.Commit
	err := c.db.View(operation.RetrieveCommit(&commit))
	if err != nil {
		return qf.ZeroID, 0, fmt.Errorf("could not retrieve commit record: %w", err)
	}
	return commit.BlockID, commit.Height, nil
}

func (c *CommitLog) Clear() error {
	return c.db.Update(operation.RemoveCommit())
}
