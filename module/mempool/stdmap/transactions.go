package stdmap

import (
	"fmt"

	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
)

// Transactions implements the transactions memory pool.
type Transactions struct {
	*backend
}

// NewTransactions creates a new memory pool for transactions with the given
// size limit; a limit of zero disables the limit.
func NewTransactions(limit uint) *Transactions {
	return &Transactions{backend: newBackend(limit)}
}

// Add adds a transaction to the mempool.
func (t *Transactions) Add(tx *qf.Transaction) error {
	return t.backend.Add(tx)
}

// ByID returns the transaction with the given ID from the mempool.
func (t *Transactions) ByID(txID qf.Identifier) (*qf.Transaction, error) {
	entity, err := t.backend.ByID(txID)
	if err != nil {
		return nil, err
	}
	tx, ok := entity.(*qf.Transaction)
	if !ok {
		return nil, fmt.Errorf("entity %x is not a transaction", txID)
	}
	return tx, nil
}

// All returns all transactions from the mempool.
func (t *Transactions) All() []*qf.Transaction {
	entities := t.backend.All()
	txs := make([]*qf.Transaction, 0, len(entities))
	for _, entity := range entities {
		tx, ok := entity.(*qf.Transaction)
		if !ok {
			continue
		}
		txs = append(txs, tx)
	}
	return txs
}
