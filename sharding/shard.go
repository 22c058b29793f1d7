package sharding

import (
	"bytes"
	"sort"
	"sync"

	"github.com/CreoDAMO/quantumfuse-sdk/model/fingerprint"
	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
	"github.com/CreoDAMO/quantumfuse-sdk/module/merkle"
)

// Shard holds the pending transactions routed to one partition of the
// transaction space, bounded by a fixed capacity. A shard created by
// splitting another one records that shard as its parent.
type Shard struct {
	mu         sync.RWMutex
	id         uint32
	parent     *uint32
	capacity   uint
	txs        map[qf.Identifier]*qf.Transaction
	validators qf.IdentityList
	root       qf.Identifier
}

// NewShard creates an empty shard with the given capacity.
func NewShard(id uint32, capacity uint) *Shard {
	return &Shard{
		id:       id,
		capacity: capacity,
		txs:      make(map[qf.Identifier]*qf.Transaction),
	}
}

// ID returns the shard index.
func (s *Shard) ID() uint32 {
	return s.id
}

// Parent returns the shard this shard was split from, if any.
func (s *Shard) Parent() (uint32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.parent == nil {
		return 0, false
	}
	return *s.parent, true
}

// Validators returns the validator subset assigned to this shard.
func (s *Shard) Validators() qf.IdentityList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validators
}

func (s *Shard) setValidators(validators qf.IdentityList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validators = validators
}

// Add routes a transaction into the shard. It fails with
// ShardOverloadedError when the shard is at capacity.
func (s *Shard) Add(tx *qf.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txID := tx.ID()
	if _, ok := s.txs[txID]; ok {
		return nil
	}
	if uint(len(s.txs)) >= s.capacity {
		return ShardOverloadedError{ShardID: s.id, Load: uint(len(s.txs)), Capacity: s.capacity}
	}
	s.txs[txID] = tx
	s.recomputeRoot()
	return nil
}

// Rem removes a transaction from the shard, returning whether it was there.
func (s *Shard) Rem(txID qf.Identifier) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.txs[txID]; !ok {
		return false
	}
	delete(s.txs, txID)
	s.recomputeRoot()
	return true
}

// Has returns whether the shard holds the transaction.
func (s *Shard) Has(txID qf.Identifier) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.txs[txID]
	return ok
}

// Size returns the number of transactions in the shard.
func (s *Shard) Size() uint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint(len(s.txs))
}

// LoadFactor returns the fill ratio of the shard in [0, 1].
func (s *Shard) LoadFactor() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.capacity == 0 {
		return 1
	}
	return float64(len(s.txs)) / float64(s.capacity)
}

// Root returns the merkle root over the shard's transactions.
func (s *Shard) Root() qf.Identifier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// All returns all transactions in the shard, in canonical ID order.
func (s *Shard) All() []*qf.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted()
}

// recomputeRoot rebuilds the merkle root after a mutation. The caller holds
// the lock.
func (s *Shard) recomputeRoot() {
	if len(s.txs) == 0 {
		s.root = qf.ZeroID
		return
	}
	txs := s.sorted()
	leaves := make([][]byte, 0, len(txs))
	for _, tx := range txs {
		txID := tx.ID()
		leaves = append(leaves, fingerprint.Fingerprint(txID))
	}
	root, err := merkle.Root(leaves)
	if err != nil {
		panic(err)
	}
	s.root = qf.HashToID(root)
}

// sorted returns the shard's transactions ordered by ID bytes. The caller
// holds the lock.
func (s *Shard) sorted() []*qf.Transaction {
	ids := make([]qf.Identifier, 0, len(s.txs))
	for txID := range s.txs {
		ids = append(ids, txID)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	txs := make([]*qf.Transaction, 0, len(ids))
	for _, txID := range ids {
		txs = append(txs, s.txs[txID])
	}
	return txs
}
