package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ChainCollector tracks the progress of the canonical chain.
type ChainCollector struct {
	blocksAppended        prometheus.Counter
	blockHeight           prometheus.Gauge
	transactionsProcessed prometheus.Counter
	transactionsRejected  *prometheus.CounterVec
	gasUsed               prometheus.Counter
	blockTime             prometheus.Histogram
}

// NewChainCollector creates a new chain collector and registers it.
func NewChainCollector(registerer prometheus.Registerer) *ChainCollector {
	cc := &ChainCollector{
		blocksAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceChain,
			Subsystem: subsystemChain,
			Name:      "blocks_appended_total",
			Help:      "number of blocks appended to the canonical chain",
		}),
		blockHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceChain,
			Subsystem: subsystemChain,
			Name:      "block_height",
			Help:      "current height of the canonical chain",
		}),
		transactionsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceChain,
			Subsystem: subsystemChain,
			Name:      "transactions_processed_total",
			Help:      "number of transactions accepted into shard buffers",
		}),
		transactionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceChain,
			Subsystem: subsystemChain,
			Name:      "transactions_rejected_total",
			Help:      "number of rejected transactions by reason",
		}, []string{"reason"}),
		gasUsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceChain,
			Subsystem: subsystemChain,
			Name:      "gas_used_total",
			Help:      "cumulative gas consumed by appended blocks",
		}),
		blockTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespaceChain,
			Subsystem: subsystemChain,
			Name:      "block_time_seconds",
			Help:      "observed time between consecutive blocks in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		}),
	}
	registerer.MustRegister(
		cc.blocksAppended,
		cc.blockHeight,
		cc.transactionsProcessed,
		cc.transactionsRejected,
		cc.gasUsed,
		cc.blockTime,
	)
	return cc
}

func (cc *ChainCollector) BlockAppended(txCount int, gasUsed uint64, blockTime time.Duration) {
	cc.blocksAppended.Inc()
	cc.gasUsed.Add(float64(gasUsed))
	cc.blockTime.Observe(blockTime.Seconds())
}

func (cc *ChainCollector) BlockHeight(height uint64) {
	cc.blockHeight.Set(float64(height))
}

func (cc *ChainCollector) TransactionProcessed() {
	cc.transactionsProcessed.Inc()
}

func (cc *ChainCollector) TransactionRejected(reason string) {
	cc.transactionsRejected.WithLabelValues(reason).Inc()
}
