package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StateCollector tracks the state manager and its memory pools.
type StateCollector struct {
	stateRootDuration prometheus.Histogram
	walletCount       prometheus.Gauge
	totalStaked       prometheus.Gauge
	mempoolEntries    *prometheus.GaugeVec
}

// NewStateCollector creates a new state collector and registers it.
func NewStateCollector(registerer prometheus.Registerer) *StateCollector {
	sc := &StateCollector{
		stateRootDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespaceChain,
			Subsystem: subsystemState,
			Name:      "root_recompute_duration_seconds",
			Help:      "time spent recomputing the global state root",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		walletCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceChain,
			Subsystem: subsystemState,
			Name:      "wallet_count",
			Help:      "number of tracked wallets",
		}),
		totalStaked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceChain,
			Subsystem: subsystemState,
			Name:      "total_staked",
			Help:      "total staked amount across all wallets in base units",
		}),
		mempoolEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespaceChain,
			Subsystem: subsystemMempool,
			Name:      "entries",
			Help:      "number of entries in the named memory pool",
		}, []string{"resource"}),
	}
	registerer.MustRegister(
		sc.stateRootDuration,
		sc.walletCount,
		sc.totalStaked,
		sc.mempoolEntries,
	)
	return sc
}

func (sc *StateCollector) StateRootRecomputed(duration time.Duration) {
	sc.stateRootDuration.Observe(duration.Seconds())
}

func (sc *StateCollector) WalletCount(count uint) {
	sc.walletCount.Set(float64(count))
}

func (sc *StateCollector) TotalStaked(total uint64) {
	sc.totalStaked.Set(float64(total))
}

func (sc *StateCollector) MempoolEntries(resource string, entries uint) {
	sc.mempoolEntries.WithLabelValues(resource).Set(float64(entries))
}
