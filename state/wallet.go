package state

// Wallet is one account in the global state: its liquid balance, the amount
// locked in stake, and the post-quantum public key used to verify its
// transaction signatures. Amounts are in base units.
type Wallet struct {
	Address   string
	Balance   uint64
	Staked    uint64
	PublicKey []byte
}

// NetworkMetrics are the aggregates the state manager maintains over all
// wallets and the mempool. They feed the hybrid consensus controller.
type NetworkMetrics struct {
	WalletCount      uint64
	TotalSupply      uint64
	TotalStaked      uint64
	MempoolSize      uint64
	BlocksProcessed  uint64
	TransactionCount uint64
}
