// Package random provides cryptographic seed generation helpers.
//
// It uses crypto/rand to generate the high-entropy seeds emitted with
// bonding facts, suitable for initializing pseudo-random number
// generators in deterministic downstream systems.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return binary.BigEndian.Uint64(b[:]), nil
}
