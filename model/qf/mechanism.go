package qf

// Mechanism enumerates the consensus sub-mechanisms the engine can run.
type Mechanism uint8

const (
	// MechanismProofOfWork validates a nonce against a difficulty target.
	MechanismProofOfWork Mechanism = iota
	// MechanismProofOfStake validates proposer stake and signature.
	MechanismProofOfStake
	// MechanismDelegatedProofOfStake validates the proposer against the
	// active delegate set.
	MechanismDelegatedProofOfStake
	// MechanismGreenProofOfWork is proof of work gated on a renewable-energy
	// attestation.
	MechanismGreenProofOfWork
	// MechanismHybrid is the meta-mechanism that picks one of the other four
	// every adjustment cycle.
	MechanismHybrid
)

// String returns the string representation of a consensus mechanism.
func (m Mechanism) String() string {
	return [...]string{"POW", "POS", "DPOS", "GREEN_POW", "HYBRID"}[m]
}
