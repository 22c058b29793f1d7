package operation

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
)

// Commit is the persisted record of a block application in flight.
type Commit struct {
	Height  uint64
	BlockID qf.Identifier
}

func InsertCommit(commit Commit) func(*badger.Txn) error {
	return upsert(makeKey(codeCommitLog), commit)
}

func RetrieveCommit(commit *Commit) func(*badger.Txn) error {
	return retrieve(makeKey(codeCommitLog), commit)
}

func RemoveCommit() func(*badger.Txn) error {
	return remove(makeKey(codeCommitLog))
}
