package state

import (
	"strings"

	"golang.org/x/exp/slices"

	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
)

// Snapshot is a self-contained copy of the full state at a given height:
// wallets, pending transactions and aggregate metrics. Wallets are sorted by
// address so the snapshot has a canonical form and the state root can be
// recomputed for integrity checks on restore.
type Snapshot struct {
	Height    uint64
	StateRoot qf.Identifier
	Wallets   []Wallet
	Pending   []*qf.Transaction
	Network   NetworkMetrics
}

// Snapshot captures the full state under the read lock.
func (m *Manager) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wallets := make([]Wallet, 0, len(m.wallets))
	for _, wallet := range m.wallets {
		wallets = append(wallets, *wallet)
	}
	slices.SortFunc(wallets, func(a, b Wallet) int {
		return strings.Compare(a.Address, b.Address)
	})

	return &Snapshot{
		Height:    m.height,
		StateRoot: m.stateRoot,
		Wallets:   wallets,
		Pending:   m.pending.All(),
		Network:   m.network,
	}
}

// Restore replaces the full state with the snapshot contents. The state root
// is recomputed from the restored wallets and must match the root recorded
// in the snapshot.
func (m *Manager) Restore(snapshot *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wallets := make(map[string]*Wallet, len(snapshot.Wallets))
	for i := range snapshot.Wallets {
		wallet := snapshot.Wallets[i]
		if _, ok := wallets[wallet.Address]; ok {
			return InvalidSnapshotError{Msg: "duplicate wallet address " + wallet.Address}
		}
		wallets[wallet.Address] = &wallet
	}

	previous := m.wallets
	m.wallets = wallets
	root := m.computeStateRoot()
	if root != snapshot.StateRoot {
		m.wallets = previous
		return InvalidSnapshotError{Msg: "state root mismatch"}
	}

	// swap the pending pool; a failing add rolls the whole restore back so
	// an errored restore leaves the manager untouched
	previousPending := m.pending.All()
	for _, tx := range previousPending {
		m.pending.Rem(tx.ID())
	}
	for i, tx := range snapshot.Pending {
		err := m.pending.Add(tx)
		if err != nil {
			for _, added := range snapshot.Pending[:i] {
				m.pending.Rem(added.ID())
			}
			for _, old := range previousPending {
				_ = m.pending.Add(old)
			}
			m.wallets = previous
			return InvalidSnapshotError{Msg: "could not restore pending transaction: " + err.Error()}
		}
	}

	m.height = snapshot.Height
	m.network = snapshot.Network
	m.network.MempoolSize = uint64(m.pending.Size())
	m.metrics.MempoolEntries("transactions", m.pending.Size())
	m.stateRoot = root
	m.metrics.WalletCount(uint(m.network.WalletCount))
	m.metrics.TotalStaked(m.network.TotalStaked)

	m.notify(Event{Type: EventBlockProcessed, Height: m.height, StateRoot: m.stateRoot})
	return nil
}
