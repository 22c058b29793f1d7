package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ConsensusCollector tracks validation, mining and mechanism switching in the
// consensus engine.
type ConsensusCollector struct {
	blocksValidated    *prometheus.CounterVec
	blocksMined        *prometheus.CounterVec
	mechanismSwitches  *prometheus.CounterVec
	rewardsDistributed prometheus.Counter
}

// NewConsensusCollector creates a new consensus collector and registers it.
func NewConsensusCollector(registerer prometheus.Registerer) *ConsensusCollector {
	cc := &ConsensusCollector{
		blocksValidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceChain,
			Subsystem: subsystemConsensus,
			Name:      "blocks_validated_total",
			Help:      "number of block validation attempts by outcome",
		}, []string{"outcome"}),
		blocksMined: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceChain,
			Subsystem: subsystemConsensus,
			Name:      "blocks_mined_total",
			Help:      "number of mined blocks by mechanism",
		}, []string{"mechanism"}),
		mechanismSwitches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceChain,
			Subsystem: subsystemConsensus,
			Name:      "mechanism_switches_total",
			Help:      "number of hybrid mechanism switches by target mechanism",
		}, []string{"mechanism"}),
		rewardsDistributed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceChain,
			Subsystem: subsystemConsensus,
			Name:      "rewards_distributed_total",
			Help:      "cumulative validator rewards paid out in base units",
		}),
	}
	registerer.MustRegister(
		cc.blocksValidated,
		cc.blocksMined,
		cc.mechanismSwitches,
		cc.rewardsDistributed,
	)
	return cc
}

func (cc *ConsensusCollector) BlockValidated(valid bool) {
	outcome := "valid"
	if !valid {
		outcome = "invalid"
	}
	cc.blocksValidated.WithLabelValues(outcome).Inc()
}

func (cc *ConsensusCollector) BlockMined(mechanism string) {
	cc.blocksMined.WithLabelValues(mechanism).Inc()
}

func (cc *ConsensusCollector) MechanismSwitched(mechanism string) {
	cc.mechanismSwitches.WithLabelValues(mechanism).Inc()
}

func (cc *ConsensusCollector) RewardsDistributed(total uint64) {
	cc.rewardsDistributed.Add(float64(total))
}
