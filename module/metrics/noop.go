package metrics

import (
	"time"
)

// NoopCollector implements all metrics interfaces with no-ops, for tests and
// tools that do not report metrics.
type NoopCollector struct{}

func NewNoopCollector() *NoopCollector { return &NoopCollector{} }

func (nc *NoopCollector) BlockAppended(txCount int, gasUsed uint64, blockTime time.Duration) {}
func (nc *NoopCollector) BlockHeight(height uint64)                                          {}
func (nc *NoopCollector) TransactionProcessed()                                              {}
func (nc *NoopCollector) TransactionRejected(reason string)                                  {}
func (nc *NoopCollector) BlockValidated(valid bool)                                          {}
func (nc *NoopCollector) BlockMined(mechanism string)                                        {}
func (nc *NoopCollector) MechanismSwitched(mechanism string)                                 {}
func (nc *NoopCollector) RewardsDistributed(total uint64)                                    {}
func (nc *NoopCollector) StateRootRecomputed(duration time.Duration)                         {}
func (nc *NoopCollector) WalletCount(count uint)                                             {}
func (nc *NoopCollector) TotalStaked(total uint64)                                           {}
func (nc *NoopCollector) MempoolEntries(resource string, entries uint)                       {}
func (nc *NoopCollector) ShardLoad(shardID uint64, loadFactor float64)                       {}
func (nc *NoopCollector) CrossShardLink()                                                    {}
func (nc *NoopCollector) ShardsRebalanced(moved int)                                         {}
