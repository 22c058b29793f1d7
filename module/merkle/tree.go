// Package merkle computes binary Merkle roots over ordered leaf lists using
// the default chain hasher.
package merkle

import (
	"errors"

	qhash "github.com/CreoDAMO/quantumfuse-sdk/model/hash"
)

// ErrNoLeaves is returned when computing a root over an empty leaf list.
var ErrNoLeaves = errors.New("cannot compute merkle root of empty leaf list")

// Root computes the Merkle root over the given leaves in order. The result is
// deterministic for a given input order. Levels with an odd node count carry
// the last node up unpaired.
func Root(leaves [][]byte) ([]byte, error) {
	if len(leaves) == 0 {
		return nil, ErrNoLeaves
	}

	level := make([][]byte, len(leaves))
	for i, leaf := range leaves {
		level[i] = qhash.DefaultHasher.ComputeHash(leaf)
	}

	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			combined := make([]byte, 0, len(level[i])+len(level[i+1]))
			combined = append(combined, level[i]...)
			combined = append(combined, level[i+1]...)
			next = append(next, qhash.DefaultHasher.ComputeHash(combined))
		}
		level = next
	}

	return level[0], nil
}
