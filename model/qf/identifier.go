package qf

import (
	"encoding/hex"
	"fmt"

	"github.com/CreoDAMO/quantumfuse-sdk/model/fingerprint"
	qhash "github.com/CreoDAMO/quantumfuse-sdk/model/hash"
)

// Identifier represents a 32-byte unique identifier for an entity.
type Identifier [32]byte

// ZeroID is the lowest value in the 32-byte ID space.
var ZeroID = Identifier{}

// String returns the hex string representation of the identifier.
func (id Identifier) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the identifier as a byte slice.
func (id Identifier) Bytes() []byte {
	return id[:]
}

// MarshalText implements encoding.TextMarshaler.
func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identifier) UnmarshalText(text []byte) error {
	decoded, err := HexStringToIdentifier(string(text))
	if err != nil {
		return err
	}
	*id = decoded
	return nil
}

// HexStringToIdentifier converts a hex string to an identifier. The hex
// string must be 64 characters long, otherwise an error is returned.
func HexStringToIdentifier(hexString string) (Identifier, error) {
	var id Identifier
	n, err := hex.Decode(id[:], []byte(hexString))
	if err != nil {
		return id, err
	}
	if n != 32 {
		return id, fmt.Errorf("malformed input, expected 32 bytes (64 characters), decoded %d", n)
	}
	return id, nil
}

// HashToID converts a raw digest to an identifier. The digest must be at
// least 32 bytes long; longer digests are truncated.
func HashToID(hash []byte) Identifier {
	var id Identifier
	copy(id[:], hash)
	return id
}

// MakeID creates an ID for an entity by hashing its canonical encoding with
// the default chain hasher.
func MakeID(entity interface{}) Identifier {
	data := fingerprint.Fingerprint(entity)
	digest := qhash.DefaultHasher.ComputeHash(data)
	return HashToID(digest)
}
