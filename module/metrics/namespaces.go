package metrics

// Prometheus namespace and subsystems for all collectors.
const (
	namespaceChain     = "quantumfuse"
	subsystemChain     = "chain"
	subsystemConsensus = "consensus"
	subsystemState     = "state"
	subsystemMempool   = "mempool"
	subsystemShard     = "shard"
)
