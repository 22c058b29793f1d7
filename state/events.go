package state

import "github.com/CreoDAMO/quantumfuse-sdk/model/qf"

// EventType tags state change notifications.
type EventType uint8

const (
	EventWalletRegistered EventType = iota + 1
	EventBalanceUpdated
	EventStakeUpdated
	EventTransactionPending
	EventBlockProcessed
)

func (e EventType) String() string {
	switch e {
	case EventWalletRegistered:
		return "WALLET_REGISTERED"
	case EventBalanceUpdated:
		return "BALANCE_UPDATED"
	case EventStakeUpdated:
		return "STAKE_UPDATED"
	case EventTransactionPending:
		return "TRANSACTION_PENDING"
	case EventBlockProcessed:
		return "BLOCK_PROCESSED"
	default:
		return "UNKNOWN"
	}
}

// Event is a state change notification delivered to subscribers. Delivery is
// best-effort: a subscriber that does not keep up misses events rather than
// blocking state transitions.
type Event struct {
	Type      EventType
	Address   string
	Amount    uint64
	TxID      qf.Identifier
	BlockID   qf.Identifier
	Height    uint64
	StateRoot qf.Identifier
}
