package operation

import (
	"encoding/binary"

	"github.com/CreoDAMO/quantumfuse-sdk/model/qf"
)

const (
	codeBlock          = 1 // block by ID
	codeHeightToBlock  = 2 // height index to block ID
	codeFinalizedState = 3 // finalized chain boundary
	codeCommitLog      = 4 // in-flight block application

	// codes 5 and 6 hold CBOR snapshots, written directly by the
	// snapshot store

)

// makeKey assembles a storage key from a prefix code and typed parts.
func makeKey(code byte, parts ...interface{}) []byte {
	key := []byte{code}
	for _, part := range parts {
		switch p := part.(type) {
		case qf.Identifier:
			key = append(key, p[:]...)
		case uint64:
			key = binary.BigEndian.AppendUint64(key, p)
		default:
			panic("unsupported key part type")
		}
	}
	return key
}
