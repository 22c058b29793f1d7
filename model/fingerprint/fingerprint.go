package fingerprint

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// Fingerprinter is implemented by entities that define their own canonical
// encoding for hashing purposes.
type Fingerprinter interface {
	Fingerprint() []byte
}

// Fingerprint returns a deterministic binary representation of the entity.
// Entities can override the default RLP encoding by implementing the
// Fingerprinter interface, which is the required path for entities that
// contain maps, floats or timestamps.
func Fingerprint(entity interface{}) []byte {
	if fingerprinter, ok := entity.(Fingerprinter); ok {
		return fingerprinter.Fingerprint()
	}

	data, err := rlp.EncodeToBytes(entity)
	if err != nil {
		panic(fmt.Sprintf("fingerprint: could not encode entity: %s", err))
	}

	return data
}
