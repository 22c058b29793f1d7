package pqc

import (
	"crypto/rand"
	"fmt"
)

// BeaconLength is the byte length of a randomness beacon value.
const BeaconLength = 32

// Beacon draws a fresh 32-byte randomness value from the operating system
// CSPRNG. Earlier revisions called this a "quantum random beacon"; no quantum
// hardware is involved.
func Beacon() ([]byte, error) {
	value := make([]byte, BeaconLength)
	if _, err := rand.Read(value); err != nil {
		return nil, fmt.Errorf("could not read beacon randomness: %w", err)
	}
	return value, nil
}
