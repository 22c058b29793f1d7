package consensus

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
	"github.com/CreoDAMO/quantumfuse-sdk/module"
)

// SelectMechanism applies the hybrid decision table to the observed network
// conditions. It is a pure function of its input. The table is ordered and
// the first match wins: congestion response takes priority over security
// response, which takes priority over sustainability response.
func SelectMechanism(cond Conditions) qf.Mechanism {
	switch {
	case cond.NetworkLoad > 0.9:
		return qf.MechanismDelegatedProofOfStake
	case cond.SecurityLevel < 0.7:
		return qf.MechanismProofOfWork
	case cond.EnergyEfficiency < 0.5:
		return qf.MechanismGreenProofOfWork
	default:
		return qf.MechanismProofOfStake
	}
}

// Controller is the hybrid meta-mechanism. It owns the current mechanism
// selection; the full read-decide-write sequence of an adjustment runs under
// one exclusive critical section so concurrent adjustments cannot lose
// updates.
type Controller struct {
	mu         sync.Mutex
	log        zerolog.Logger
	metrics    module.ConsensusMetrics
	mechanisms map[qf.Mechanism]Mechanism
	current    qf.Mechanism
	lastSwitch time.Time
	interval   time.Duration
}

// NewController creates the hybrid controller over the given sub-mechanisms,
// starting with proof of stake.
func NewController(
	log zerolog.Logger,
	metrics module.ConsensusMetrics,
	interval time.Duration,
	mechanisms map[qf.Mechanism]Mechanism,
) *Controller {
	return &Controller{
		log:        log.With().Str("component", "hybrid_controller").Logger(),
		metrics:    metrics,
		mechanisms: mechanisms,
		current:    qf.MechanismProofOfStake,
		interval:   interval,
	}
}

// Current returns the currently selected mechanism.
func (c *Controller) Current() Mechanism {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mechanisms[c.current]
}

// CurrentType returns the type of the currently selected mechanism.
func (c *Controller) CurrentType() qf.Mechanism {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// ByType returns the sub-mechanism for the given type.
func (c *Controller) ByType(mechanism qf.Mechanism) (Mechanism, bool) {
	m, ok := c.mechanisms[mechanism]
	return m, ok
}

// Adjust runs one adjustment tick: it re-evaluates the decision table
// against the given conditions and switches the current mechanism if the
// outcome changed. Adjustments are gated by the configured interval.
func (c *Controller) Adjust(cond Conditions) qf.Mechanism {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	if !c.lastSwitch.IsZero() && now.Sub(c.lastSwitch) < c.interval {
		return c.current
	}

	selected := SelectMechanism(cond)
	if selected != c.current {
		c.log.Info().
			Str("from", c.current.String()).
			Str("to", selected.String()).
			Float64("network_load", cond.NetworkLoad).
			Float64("security_level", cond.SecurityLevel).
			Float64("energy_efficiency", cond.EnergyEfficiency).
			Msg("switching consensus mechanism")
		c.current = selected
		c.metrics.MechanismSwitched(selected.String())
	}
	c.lastSwitch = now

	return c.current
}
