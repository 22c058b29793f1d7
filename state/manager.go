package state

import (
	"cmp"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/CreoDAMO/quantumfuse-sdk/model/fingerprint"
	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
	"github.com/CreoDAMO/quantumfuse-sdk/module"
	"github.com/CreoDAMO/quantumfuse-sdk/module/mempool"
	"github.com/CreoDAMO/quantumfuse-sdk/module/merkle"
)

// Metrics is the metrics surface the state manager reports to.
type Metrics interface {
	module.StateMetrics
	module.MempoolMetrics
}

// Manager maintains the global wallet state, the pending transaction view,
// and the aggregate network metrics derived from them. Every mutation runs
// under the exclusive lock and follows the same sequence: mutate, update
// aggregates, notify subscribers, recompute the state root.
type Manager struct {
	mu      sync.RWMutex
	log     zerolog.Logger
	metrics Metrics

	wallets map[string]*Wallet
	pending mempool.Transactions

	network     NetworkMetrics
	stateRoot   qf.Identifier
	height      uint64
	subscribers []chan Event
}

// NewManager creates an empty state manager backed by the given pending
// transaction pool.
func NewManager(log zerolog.Logger, metrics Metrics, pending mempool.Transactions) *Manager {
	m := &Manager{
		log:     log.With().Str("component", "state_manager").Logger(),
		metrics: metrics,
		wallets: make(map[string]*Wallet),
		pending: pending,
	}
	m.stateRoot = m.computeStateRoot()
	return m
}

// Subscribe registers a new event channel with the given buffer size. Events
// are sent non-blocking; a full channel drops the event.
func (m *Manager) Subscribe(buffer int) <-chan Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan Event, buffer)
	m.subscribers = append(m.subscribers, ch)
	return ch
}

func (m *Manager) notify(event Event) {
	for _, ch := range m.subscribers {
		select {
		case ch <- event:
		default:
			m.log.Debug().Str("event", event.Type.String()).Msg("dropping event for slow subscriber")
		}
	}
}

// RegisterWallet creates a wallet for the address with the given signing
// public key and initial balance.
func (m *Manager) RegisterWallet(address string, publicKey []byte, balance uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.wallets[address]; ok {
		return fmt.Errorf("address %s: %w", address, ErrWalletAlreadyExists)
	}

	m.wallets[address] = &Wallet{
		Address:   address,
		Balance:   balance,
		PublicKey: publicKey,
	}
	m.network.WalletCount++
	m.network.TotalSupply += balance
	m.metrics.WalletCount(uint(m.network.WalletCount))

	m.recomputeRoot()
	m.notify(Event{Type: EventWalletRegistered, Address: address, Amount: balance, StateRoot: m.stateRoot})
	return nil
}

// Wallet returns a copy of the wallet for the address.
func (m *Manager) Wallet(address string) (Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wallet, ok := m.wallets[address]
	if !ok {
		return Wallet{}, fmt.Errorf("address %s: %w", address, ErrWalletNotFound)
	}
	return *wallet, nil
}

// PublicKey returns the signing public key registered for the address.
func (m *Manager) PublicKey(address string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wallet, ok := m.wallets[address]
	if !ok {
		return nil, fmt.Errorf("address %s: %w", address, ErrWalletNotFound)
	}
	return wallet.PublicKey, nil
}

// Credit adds funds to the wallet for the address, creating the wallet if it
// does not exist. It backs consensus reward distribution.
func (m *Manager) Credit(address string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wallet, ok := m.wallets[address]
	if !ok {
		wallet = &Wallet{Address: address}
		m.wallets[address] = wallet
		m.network.WalletCount++
		m.metrics.WalletCount(uint(m.network.WalletCount))
	}
	wallet.Balance += amount
	m.network.TotalSupply += amount

	m.recomputeRoot()
	m.notify(Event{Type: EventBalanceUpdated, Address: address, Amount: wallet.Balance, StateRoot: m.stateRoot})
	return nil
}

// Debit removes funds from the wallet for the address.
func (m *Manager) Debit(address string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wallet, ok := m.wallets[address]
	if !ok {
		return fmt.Errorf("address %s: %w", address, ErrWalletNotFound)
	}
	if wallet.Balance < amount {
		return InsufficientFundsError{Address: address, Balance: wallet.Balance, Requested: amount}
	}
	wallet.Balance -= amount
	m.network.TotalSupply -= amount

	m.recomputeRoot()
	m.notify(Event{Type: EventBalanceUpdated, Address: address, Amount: wallet.Balance, StateRoot: m.stateRoot})
	return nil
}

// Stake moves funds from the wallet balance into its stake.
func (m *Manager) Stake(address string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wallet, ok := m.wallets[address]
	if !ok {
		return fmt.Errorf("address %s: %w", address, ErrWalletNotFound)
	}
	if wallet.Balance < amount {
		return InsufficientFundsError{Address: address, Balance: wallet.Balance, Requested: amount}
	}
	wallet.Balance -= amount
	wallet.Staked += amount
	m.network.TotalStaked += amount
	m.metrics.TotalStaked(m.network.TotalStaked)

	m.recomputeRoot()
	m.notify(Event{Type: EventStakeUpdated, Address: address, Amount: wallet.Staked, StateRoot: m.stateRoot})
	return nil
}

// Unstake moves funds from the wallet stake back into its balance.
func (m *Manager) Unstake(address string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wallet, ok := m.wallets[address]
	if !ok {
		return fmt.Errorf("address %s: %w", address, ErrWalletNotFound)
	}
	if wallet.Staked < amount {
		return InsufficientStakeError{Address: address, Staked: wallet.Staked, Requested: amount}
	}
	wallet.Staked -= amount
	wallet.Balance += amount
	m.network.TotalStaked -= amount
	m.metrics.TotalStaked(m.network.TotalStaked)

	m.recomputeRoot()
	m.notify(Event{Type: EventStakeUpdated, Address: address, Amount: wallet.Staked, StateRoot: m.stateRoot})
	return nil
}

// AddPendingTransaction records a validated transaction in the pending pool
// and notifies subscribers.
func (m *Manager) AddPendingTransaction(tx *qf.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.pending.Add(tx)
	if err != nil {
		return fmt.Errorf("could not add pending transaction: %w", err)
	}
	m.network.MempoolSize = uint64(m.pending.Size())
	m.metrics.MempoolEntries("transactions", m.pending.Size())

	m.notify(Event{Type: EventTransactionPending, Address: tx.Sender, Amount: tx.Amount, TxID: tx.ID()})
	return nil
}

// PendingTransactions returns up to limit pending transactions, ordered by
// descending fee.
func (m *Manager) PendingTransactions(limit uint) []*qf.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()

	txs := m.pending.All()
	slices.SortFunc(txs, func(a, b *qf.Transaction) int {
		return cmp.Compare(b.Fee, a.Fee)
	})
	if uint(len(txs)) > limit {
		txs = txs[:limit]
	}
	return txs
}

// ProcessBlock applies all transactions of the block to the wallet state.
// The whole block is validated against the current state before anything is
// mutated, so a failing transaction leaves the state untouched. Applied
// transactions are removed from the pending pool.
func (m *Manager) ProcessBlock(block *qf.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// dry run against copies of the touched wallets
	staging := make(map[string]*Wallet, len(block.Transactions))
	for _, tx := range block.Transactions {
		err := m.applyTransaction(staging, tx)
		if err != nil {
			return fmt.Errorf("transaction %x not applicable: %w", tx.ID(), err)
		}
	}

	// commit
	var staked, unstaked uint64
	var supplyBefore, supplyAfter uint64
	for address, wallet := range staging {
		if prev, ok := m.wallets[address]; ok {
			if wallet.Staked > prev.Staked {
				staked += wallet.Staked - prev.Staked
			} else {
				unstaked += prev.Staked - wallet.Staked
			}
			supplyBefore += prev.Balance + prev.Staked
		} else {
			m.network.WalletCount++
		}
		supplyAfter += wallet.Balance + wallet.Staked
		m.wallets[address] = wallet
	}
	m.network.TotalStaked += staked
	m.network.TotalStaked -= unstaked
	// fees leave circulation when a block is applied
	m.network.TotalSupply += supplyAfter
	m.network.TotalSupply -= supplyBefore
	m.network.BlocksProcessed++
	m.network.TransactionCount += uint64(len(block.Transactions))
	m.metrics.WalletCount(uint(m.network.WalletCount))
	m.metrics.TotalStaked(m.network.TotalStaked)

	for _, tx := range block.Transactions {
		_ = m.pending.Rem(tx.ID())
	}
	m.network.MempoolSize = uint64(m.pending.Size())
	m.metrics.MempoolEntries("transactions", m.pending.Size())
	m.height = block.Header.Height

	m.recomputeRoot()
	m.notify(Event{
		Type:      EventBlockProcessed,
		BlockID:   block.ID(),
		Height:    block.Header.Height,
		StateRoot: m.stateRoot,
	})
	return nil
}

// applyTransaction applies one transaction to the staging set, reading
// through to the committed wallets for addresses not yet staged. The caller
// holds the lock.
func (m *Manager) applyTransaction(staging map[string]*Wallet, tx *qf.Transaction) error {

	load := func(address string) *Wallet {
		if wallet, ok := staging[address]; ok {
			return wallet
		}
		if wallet, ok := m.wallets[address]; ok {
			cp := *wallet
			staging[address] = &cp
			return &cp
		}
		wallet := &Wallet{Address: address}
		staging[address] = wallet
		return wallet
	}

	sender := load(tx.Sender)
	cost := tx.TotalCost()

	switch tx.Data.Op {
	case qf.OperationTransfer, qf.OperationBridgeAsset, qf.OperationSyncIdentity,
		qf.OperationDeployContract, qf.OperationCallContract:
		if sender.Balance < cost {
			return InsufficientFundsError{Address: tx.Sender, Balance: sender.Balance, Requested: cost}
		}
		sender.Balance -= cost
		recipient := load(tx.Recipient)
		recipient.Balance += tx.Amount

	case qf.OperationStake, qf.OperationCreateValidator:
		if sender.Balance < cost {
			return InsufficientFundsError{Address: tx.Sender, Balance: sender.Balance, Requested: cost}
		}
		sender.Balance -= cost
		sender.Staked += tx.Amount

	case qf.OperationUnstake, qf.OperationRemoveValidator:
		if sender.Staked < tx.Amount {
			return InsufficientStakeError{Address: tx.Sender, Staked: sender.Staked, Requested: tx.Amount}
		}
		if sender.Balance < tx.Fee {
			return InsufficientFundsError{Address: tx.Sender, Balance: sender.Balance, Requested: tx.Fee}
		}
		sender.Staked -= tx.Amount
		sender.Balance += tx.Amount
		sender.Balance -= tx.Fee

	default:
		if sender.Balance < tx.Fee {
			return InsufficientFundsError{Address: tx.Sender, Balance: sender.Balance, Requested: tx.Fee}
		}
		sender.Balance -= tx.Fee
	}

	return nil
}

// StateRoot returns the current state root.
func (m *Manager) StateRoot() qf.Identifier {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stateRoot
}

// Height returns the height of the last processed block.
func (m *Manager) Height() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.height
}

// Network returns a copy of the aggregate network metrics.
func (m *Manager) Network() NetworkMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.network
}

// recomputeRoot recomputes the state root and records the duration. The
// caller holds the lock.
func (m *Manager) recomputeRoot() {
	start := time.Now()
	m.stateRoot = m.computeStateRoot()
	m.metrics.StateRootRecomputed(time.Since(start))
}

// computeStateRoot derives the state root as the merkle root over the
// canonical forms of all wallets, sorted by address. An empty state has the
// zero root.
func (m *Manager) computeStateRoot() qf.Identifier {

	addresses := maps.Keys(m.wallets)
	slices.Sort(addresses)

	if len(addresses) == 0 {
		return qf.ZeroID
	}

	leaves := make([][]byte, 0, len(addresses))
	for _, address := range addresses {
		wallet := m.wallets[address]
		leaves = append(leaves, fingerprint.Fingerprint(struct {
			Address   string
			Balance   uint64
			Staked    uint64
			PublicKey []byte
		}{
			Address:   wallet.Address,
			Balance:   wallet.Balance,
			Staked:    wallet.Staked,
			PublicKey: wallet.PublicKey,
		}))
	}

	root, err := merkle.Root(leaves)
	if err != nil {
		// only fails on zero leaves, which is handled above
		panic(fmt.Sprintf("could not compute state root: %v", err))
	}
	return qf.HashToID(root)
}
