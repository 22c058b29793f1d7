package mempool

import (
	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
)

// Transactions represents a concurrency-safe memory pool for transactions
// awaiting inclusion in a block.
type Transactions interface {

	// Has checks whether the transaction with the given ID is in the pool.
	Has(txID qf.Identifier) bool

	// Add adds the transaction to the pool; it errors if a transaction with
	// the same ID is already present.
	Add(tx *qf.Transaction) error

	// Rem removes the transaction with the given ID and returns whether it
	// was present.
	Rem(txID qf.Identifier) bool

	// ByID returns the transaction with the given ID.
	ByID(txID qf.Identifier) (*qf.Transaction, error)

	// Size returns the number of transactions in the pool.
	Size() uint

	// All returns all transactions in the pool, in no particular order.
	All() []*qf.Transaction
}
