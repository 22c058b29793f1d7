package operation

import (
	"github.com/dgraph-io/badger/v2"

	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
)

// Boundary is the persisted finalized chain boundary.
type Boundary struct {
	Height  uint64
	BlockID qf.Identifier
}

func InsertBoundary(boundary Boundary) func(*badger.Txn) error {
	return insert(makeKey(codeFinalizedState), boundary)
}

func UpdateBoundary(boundary Boundary) func(*badger.Txn) error {
	return upsert(makeKey(codeFinalizedState), boundary)
}

func RetrieveBoundary(boundary *Boundary) func(*badger.Txn) error {
	return retrieve(makeKey(codeFinalizedState), boundary)
}

func ExistsBoundary(result *bool) func(*badger.Txn) error {
	return exists(makeKey(codeFinalizedState), result)
}
