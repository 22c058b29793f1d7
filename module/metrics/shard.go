package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// ShardCollector tracks per-shard load and rebalancing activity.
type ShardCollector struct {
	shardLoad       *prometheus.GaugeVec
	crossShardLinks prometheus.Counter
	rebalancedTxs   prometheus.Counter
}

// NewShardCollector creates a new shard collector and registers it.
func NewShardCollector(registerer prometheus.Registerer) *ShardCollector {
	sc := &ShardCollector{
		shardLoad: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespaceChain,
			Subsystem: subsystemShard,
			Name:      "load_factor",
			Help:      "load factor of each shard",
		}, []string{"shard"}),
		crossShardLinks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceChain,
			Subsystem: subsystemShard,
			Name:      "cross_links_total",
			Help:      "number of cross-shard links recorded",
		}),
		rebalancedTxs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceChain,
			Subsystem: subsystemShard,
			Name:      "rebalanced_transactions_total",
			Help:      "number of transactions moved between shards by reallocation",
		}),
	}
	registerer.MustRegister(sc.shardLoad, sc.crossShardLinks, sc.rebalancedTxs)
	return sc
}

func (sc *ShardCollector) ShardLoad(shardID uint64, loadFactor float64) {
	sc.shardLoad.WithLabelValues(strconv.FormatUint(shardID, 10)).Set(loadFactor)
}

func (sc *ShardCollector) CrossShardLink() {
	sc.crossShardLinks.Inc()
}

func (sc *ShardCollector) ShardsRebalanced(moved int) {
	sc.rebalancedTxs.Add(float64(moved))
}
