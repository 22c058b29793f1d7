package operation

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
)

func InsertBlock(blockID qf.Identifier, block *qf.Block) func(*badger.Txn) error {
	return insert(makeKey(codeBlock, blockID), block)
}

func RetrieveBlock(blockID qf.Identifier, block *qf.Block) func(*badger.Txn) error {
	return retrieve(makeKey(codeBlock, blockID), block)
}

func IndexBlockHeight(height uint64, blockID qf.Identifier) func(*badger.Txn) error {
	return insert(makeKey(codeHeightToBlock, height), blockID)
}

func LookupBlockHeight(height uint64, blockID *qf.Identifier) func(*badger.Txn) error {
	return retrieve(makeKey(codeHeightToBlock, height), blockID)
}
