package qf

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
)

// Identity represents a validator identity with its consensus weights.
type Identity struct {
	NodeID     Identifier
	Address    string
	Stake      uint64
	Reputation uint64
	Delegate   bool
	Renewable  bool

	// ML-DSA public key the validator signs blocks with
	StakingPubKey []byte
}

// String returns a string representation of the identity.
func (iy Identity) String() string {
	return fmt.Sprintf("%s@%s=%d", iy.NodeID.String(), iy.Address, iy.Stake)
}

// ID returns a unique identifier for the identity.
func (iy Identity) ID() Identifier {
	return iy.NodeID
}

// Checksum returns a checksum for the identity including mutable attributes.
func (iy Identity) Checksum() Identifier {
	return MakeID(iy.canonicalForm())
}

type identityCanonicalForm struct {
	NodeID        Identifier
	Address       string
	Stake         uint64
	Reputation    uint64
	Delegate      bool
	Renewable     bool
	StakingPubKey []byte
}

func (iy Identity) canonicalForm() identityCanonicalForm {
	return identityCanonicalForm{
		NodeID:        iy.NodeID,
		Address:       iy.Address,
		Stake:         iy.Stake,
		Reputation:    iy.Reputation,
		Delegate:      iy.Delegate,
		Renewable:     iy.Renewable,
		StakingPubKey: iy.StakingPubKey,
	}
}

// IdentityList is the ordered validator set referenced by blocks and the
// consensus engine.
type IdentityList []*Identity

// TotalStake returns the total stake of all validators in the list.
func (il IdentityList) TotalStake() uint64 {
	var total uint64
	for _, identity := range il {
		total += identity.Stake
	}
	return total
}

// Count returns the number of validators in the list.
func (il IdentityList) Count() uint {
	return uint(len(il))
}

// ByNodeID returns the validator with the given node ID, if it exists.
func (il IdentityList) ByNodeID(nodeID Identifier) (*Identity, bool) {
	for _, identity := range il {
		if identity.NodeID == nodeID {
			return identity, true
		}
	}
	return nil, false
}

// ByAddress returns the validator with the given address, if it exists.
func (il IdentityList) ByAddress(address string) (*Identity, bool) {
	for _, identity := range il {
		if identity.Address == address {
			return identity, true
		}
	}
	return nil, false
}

// Delegates returns the sublist of validators flagged as active delegates.
func (il IdentityList) Delegates() IdentityList {
	var delegates IdentityList
	for _, identity := range il {
		if identity.Delegate {
			delegates = append(delegates, identity)
		}
	}
	return delegates
}

// Renewable returns the sublist of validators with a renewable-energy flag.
func (il IdentityList) Renewable() IdentityList {
	var renewable IdentityList
	for _, identity := range il {
		if identity.Renewable {
			renewable = append(renewable, identity)
		}
	}
	return renewable
}

// Sorted returns a copy of the list sorted canonically by node ID.
func (il IdentityList) Sorted() IdentityList {
	dup := make(IdentityList, len(il))
	copy(dup, il)
	sort.Slice(dup, func(i, j int) bool {
		return bytes.Compare(dup[i].NodeID[:], dup[j].NodeID[:]) < 0
	})
	return dup
}

// Hash returns a commitment to the validator set, independent of the order
// the identities were added in.
func (il IdentityList) Hash() Identifier {
	sorted := il.Sorted()
	canonical := make([]identityCanonicalForm, 0, len(sorted))
	for _, identity := range sorted {
		canonical = append(canonical, identity.canonicalForm())
	}
	return MakeID(canonical)
}

// CheckConsistency verifies that the validator set is internally consistent:
// non-empty, unique node IDs, unique addresses and positive stake on every
// member.
func (il IdentityList) CheckConsistency() error {
	if len(il) == 0 {
		return errors.New("validator set is empty")
	}
	seenIDs := make(map[Identifier]struct{}, len(il))
	seenAddrs := make(map[string]struct{}, len(il))
	for _, identity := range il {
		if _, ok := seenIDs[identity.NodeID]; ok {
			return fmt.Errorf("duplicate node ID %x", identity.NodeID)
		}
		if _, ok := seenAddrs[identity.Address]; ok {
			return fmt.Errorf("duplicate address %s", identity.Address)
		}
		if identity.Stake == 0 {
			return fmt.Errorf("validator %x has zero stake", identity.NodeID)
		}
		seenIDs[identity.NodeID] = struct{}{}
		seenAddrs[identity.Address] = struct{}{}
	}
	return nil
}
