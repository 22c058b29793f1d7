// Package consensus implements the hybrid consensus engine. It selects among
// four sub-mechanisms (proof of work, proof of stake, delegated proof of
// stake, green proof of work) and adapts that choice to observed network
// conditions every adjustment cycle.
package consensus

import (
	"time"
)

// Config holds the process-wide consensus configuration, fixed at chain
// start.
type Config struct {

	// ChainID is the chain the engine produces blocks for.
	ChainID string

	// MinValidators is the minimum validator set size required at startup.
	MinValidators uint

	// BlockTime is the target interval between blocks.
	BlockTime time.Duration

	// EpochLength is the number of blocks per reward epoch.
	EpochLength uint64

	// MinimumStake is the stake a proposer must hold under proof of stake.
	MinimumStake uint64

	// BlockGasLimit is the gas limit written into mined blocks.
	BlockGasLimit uint64

	// BlockReward is the total reward distributed per block by stake-based
	// mechanisms.
	BlockReward uint64

	// InitialDifficulty is the starting difficulty (leading zero bits) for
	// the proof-of-work variants.
	InitialDifficulty uint64

	// RetargetInterval gates how often proof-of-work difficulty adjusts.
	RetargetInterval time.Duration

	// AdjustmentInterval gates how often the hybrid controller re-evaluates
	// the active mechanism.
	AdjustmentInterval time.Duration

	// DelegateCount is the size of the active delegate set under delegated
	// proof of stake.
	DelegateCount int
}

// DefaultConfig returns the consensus configuration used by local networks.
func DefaultConfig() Config {
	return Config{
		ChainID:            "quantumfuse-local",
		MinValidators:      1,
		BlockTime:          5 * time.Second,
		EpochLength:        100,
		MinimumStake:       1_000,
		BlockGasLimit:      10_000_000,
		BlockReward:        50,
		InitialDifficulty:  8,
		RetargetInterval:   time.Minute,
		AdjustmentInterval: 30 * time.Second,
		DelegateCount:      21,
	}
}

// Conditions are the observed network metrics the hybrid controller reads on
// every adjustment tick. Load, security and efficiency are each in [0,1].
type Conditions struct {
	NetworkLoad      float64
	SecurityLevel    float64
	EnergyEfficiency float64

	// AvgBlockTime is the rolling average block interval, used for
	// proof-of-work difficulty retargeting.
	AvgBlockTime time.Duration
}
