package sharding

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/CreoDAMO/quantumfuse-sdk/crypto/pqc"
	"github.com/CreoDAMO/quantumfuse-sdk/model/hash"
	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
	"github.com/CreoDAMO/quantumfuse-sdk/module"
)

// rebalanceThreshold is the load factor above which a shard sheds
// transactions during optimization.
const rebalanceThreshold = 0.8

// Manager partitions pending transactions across a fixed set of shards.
// Assignment is deterministic in the sender address, so every node routes a
// given sender to the same shard without coordination.
type Manager struct {
	mu      sync.RWMutex
	log     zerolog.Logger
	metrics module.ShardMetrics
	shards  []*Shard
	signer  *pqc.KeyPair
	links   map[qf.Identifier]*CrossLink
}

// NewManager creates count shards of the given capacity. The signer key
// attests cross-shard links produced by this node.
func NewManager(
	log zerolog.Logger,
	metrics module.ShardMetrics,
	count uint32,
	capacity uint,
	signer *pqc.KeyPair,
) (*Manager, error) {

	if count == 0 {
		return nil, ErrNoShards
	}

	shards := make([]*Shard, 0, count)
	for id := uint32(0); id < count; id++ {
		shards = append(shards, NewShard(id, capacity))
	}

	m := &Manager{
		log:     log.With().Str("component", "shard_manager").Logger(),
		metrics: metrics,
		shards:  shards,
		signer:  signer,
		links:   make(map[qf.Identifier]*CrossLink),
	}
	return m, nil
}

// Count returns the number of shards.
func (m *Manager) Count() uint32 {
	return uint32(len(m.shards))
}

// AssignValidators distributes the validator set across the shards round
// robin, so every shard has a responsible subset.
func (m *Manager) AssignValidators(validators qf.IdentityList) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subsets := make([]qf.IdentityList, len(m.shards))
	for i, identity := range validators {
		shardID := i % len(m.shards)
		subsets[shardID] = append(subsets[shardID], identity)
	}
	for i, shard := range m.shards {
		shard.setValidators(subsets[i])
	}
}

// AssignShard returns the shard index for the sender address. The mapping is
// the sender hash modulo the shard count.
func (m *Manager) AssignShard(sender string) uint32 {
	h := hash.DefaultHasher.ComputeHash([]byte(sender))
	return uint32(binary.BigEndian.Uint64(h[:8]) % uint64(len(m.shards)))
}

// Shard returns the shard with the given index.
func (m *Manager) Shard(shardID uint32) (*Shard, error) {
	if shardID >= uint32(len(m.shards)) {
		return nil, fmt.Errorf("shard %d: %w", shardID, ErrUnknownShard)
	}
	return m.shards[shardID], nil
}

// Route assigns the transaction to its shard and adds it there.
func (m *Manager) Route(tx *qf.Transaction) (uint32, error) {
	shardID := m.AssignShard(tx.Sender)
	shard := m.shards[shardID]

	err := shard.Add(tx)
	if err != nil {
		return 0, fmt.Errorf("could not route transaction to shard %d: %w", shardID, err)
	}

	m.metrics.ShardLoad(uint64(shardID), shard.LoadFactor())
	return shardID, nil
}

// Remove drops the transaction from its shard after inclusion in a block.
func (m *Manager) Remove(tx *qf.Transaction) {
	shardID := m.AssignShard(tx.Sender)
	shard := m.shards[shardID]
	if shard.Rem(tx.ID()) {
		m.metrics.ShardLoad(uint64(shardID), shard.LoadFactor())
	}
}

// OptimizeAllocation moves transactions out of shards loaded above the
// rebalance threshold into the least loaded shard. Moved transactions keep
// working through the system; only their residency changes, so the
// deterministic assignment stays authoritative for new arrivals.
func (m *Manager) OptimizeAllocation() uint {
	m.mu.Lock()
	defer m.mu.Unlock()

	moved := uint(0)
	for _, shard := range m.shards {
		for shard.LoadFactor() > rebalanceThreshold {
			target := m.leastLoaded()
			if target == nil || target.ID() == shard.ID() {
				break
			}
			txs := shard.All()
			if len(txs) == 0 {
				break
			}
			tx := txs[len(txs)-1]
			err := target.Add(tx)
			if err != nil {
				break
			}
			shard.Rem(tx.ID())
			moved++
		}
	}

	if moved > 0 {
		m.log.Info().Uint("moved", moved).Msg("rebalanced shard allocation")
		m.metrics.ShardsRebalanced(int(moved))
		for _, shard := range m.shards {
			m.metrics.ShardLoad(uint64(shard.ID()), shard.LoadFactor())
		}
	}
	return moved
}

// leastLoaded returns the shard with the lowest load factor. The caller
// holds the lock.
func (m *Manager) leastLoaded() *Shard {
	var best *Shard
	for _, shard := range m.shards {
		if best == nil || shard.LoadFactor() < best.LoadFactor() {
			best = shard
		}
	}
	return best
}

// CrossLink is an attested reference to a transaction that spans two
// shards. The attestation is a signature over the link's canonical form by
// the node that created it.
type CrossLink struct {
	TxID        qf.Identifier
	SourceShard uint32
	TargetShard uint32
	CreatedAt   time.Time
	SignerKey   []byte
	Attestation []byte
}

func (l *CrossLink) signingMessage() []byte {
	msg := make([]byte, 0, len(l.TxID)+8+8)
	msg = append(msg, l.TxID[:]...)
	msg = binary.BigEndian.AppendUint32(msg, l.SourceShard)
	msg = binary.BigEndian.AppendUint32(msg, l.TargetShard)
	msg = binary.BigEndian.AppendUint64(msg, uint64(l.CreatedAt.UnixNano()))
	return msg
}

// CreateCrossLink attests that the transaction in the source shard affects
// state owned by the target shard, and records the link.
func (m *Manager) CreateCrossLink(tx *qf.Transaction, targetShard uint32) (*CrossLink, error) {

	if targetShard >= uint32(len(m.shards)) {
		return nil, fmt.Errorf("target shard %d: %w", targetShard, ErrUnknownShard)
	}
	sourceShard := m.AssignShard(tx.Sender)
	if sourceShard == targetShard {
		return nil, InvalidCrossLinkError{Msg: "source and target shard are the same"}
	}

	link := &CrossLink{
		TxID:        tx.ID(),
		SourceShard: sourceShard,
		TargetShard: targetShard,
		CreatedAt:   time.Now().UTC(),
		SignerKey:   m.signer.PublicKey(),
	}
	link.Attestation = m.signer.Sign(link.signingMessage())

	m.mu.Lock()
	m.links[link.TxID] = link
	m.mu.Unlock()

	m.metrics.CrossShardLink()
	return link, nil
}

// VerifyCrossLink checks the attestation and shard range of a link.
func (m *Manager) VerifyCrossLink(link *CrossLink) error {

	if link.SourceShard >= uint32(len(m.shards)) || link.TargetShard >= uint32(len(m.shards)) {
		return InvalidCrossLinkError{Msg: "shard index out of range"}
	}
	if link.SourceShard == link.TargetShard {
		return InvalidCrossLinkError{Msg: "source and target shard are the same"}
	}
	err := pqc.Verify(link.SignerKey, link.signingMessage(), link.Attestation)
	if err != nil {
		return InvalidCrossLinkError{Msg: "attestation does not verify"}
	}
	return nil
}

// CrossLinks returns all recorded cross-shard links.
func (m *Manager) CrossLinks() []*CrossLink {
	m.mu.RLock()
	defer m.mu.RUnlock()
	links := make([]*CrossLink, 0, len(m.links))
	for _, link := range m.links {
		links = append(links, link)
	}
	return links
}
